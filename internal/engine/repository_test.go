package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/store"
)

func TestRepositoryRejectsDuplicateNames(t *testing.T) {
	a := New(Options{Name: "repo-dup", Config: testConfig(), Store: store.NewInMemoryStore(), Factory: noopFactory()})
	b := New(Options{Name: "repo-dup", Config: testConfig(), Store: store.NewInMemoryStore(), Factory: noopFactory()})

	require.NoError(t, Register(a))
	defer defaultRepository.remove("repo-dup")

	err := Register(b)
	assert.ErrorIs(t, err, ErrDuplicateScheduler)
	assert.Same(t, a, Lookup("repo-dup"))
}

func TestShutdownRemovesFromRepository(t *testing.T) {
	f := New(Options{Name: "repo-gone", Config: testConfig(), Store: store.NewInMemoryStore(), Factory: noopFactory()})
	require.NoError(t, Register(f))
	require.NoError(t, f.Start(context.Background()))

	require.NoError(t, f.Shutdown(context.Background(), true))
	assert.Nil(t, Lookup("repo-gone"))
}
