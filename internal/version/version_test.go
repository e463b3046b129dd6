package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minisource/jobengine/internal/version"
)

func TestStringOmitsUnknownCommit(t *testing.T) {
	assert.Equal(t, version.Version, version.String())
}

func TestStringIncludesCommitWhenSet(t *testing.T) {
	orig := version.Commit
	version.Commit = "abc123"
	defer func() { version.Commit = orig }()

	assert.True(t, strings.HasSuffix(version.String(), "+abc123"))
}
