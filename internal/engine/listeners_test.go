package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/models"
)

type namedJobListener struct {
	name string
}

func (l *namedJobListener) Name() string                                      { return l.name }
func (l *namedJobListener) JobToBeExecuted(*models.JobExecutionContext)       {}
func (l *namedJobListener) JobExecutionVetoed(*models.JobExecutionContext)    {}
func (l *namedJobListener) JobWasExecuted(*models.JobExecutionContext, error) {}

func TestListenerRegistryRejectsEmptyName(t *testing.T) {
	r := newListenerRegistry(nil)
	err := r.addJobListener(&namedJobListener{name: ""}, false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListenerRegistrySnapshotOrdersGlobalBeforeInternal(t *testing.T) {
	r := newListenerRegistry(nil)
	g1 := &namedJobListener{name: "g1"}
	g2 := &namedJobListener{name: "g2"}
	i1 := &namedJobListener{name: "i1"}

	require.NoError(t, r.addJobListener(g1, false))
	require.NoError(t, r.addJobListener(i1, true))
	require.NoError(t, r.addJobListener(g2, false))

	snap := r.jobListenerSnapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "g1", snap[0].Name())
	assert.Equal(t, "g2", snap[1].Name())
	assert.Equal(t, "i1", snap[2].Name(), "internal listeners run after every global listener")
}

func TestListenerRegistryRemoveByName(t *testing.T) {
	r := newListenerRegistry(nil)
	require.NoError(t, r.addJobListener(&namedJobListener{name: "a"}, false))
	require.NoError(t, r.addJobListener(&namedJobListener{name: "b"}, false))
	require.NoError(t, r.addJobListener(&namedJobListener{name: "c"}, false))

	assert.True(t, r.removeJobListener("b"))
	assert.False(t, r.removeJobListener("b"), "second removal finds nothing")

	snap := r.jobListenerSnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Name())
	assert.Equal(t, "c", snap[1].Name())
}

func TestListenerRegistryReplacesSameName(t *testing.T) {
	r := newListenerRegistry(nil)
	first := &namedJobListener{name: "dup"}
	second := &namedJobListener{name: "dup"}
	require.NoError(t, r.addJobListener(first, false))
	require.NoError(t, r.addJobListener(second, false))

	snap := r.jobListenerSnapshot()
	require.Len(t, snap, 1)
	assert.Same(t, second, snap[0].(*namedJobListener))
}
