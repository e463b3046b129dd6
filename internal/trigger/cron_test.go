package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/trigger"
)

func TestNewCronTriggerRejectsInvalidExpression(t *testing.T) {
	_, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "not a cron expr", 0)
	assert.Error(t, err)
}

func TestCronTriggerComputesNextFromEverySecond(t *testing.T) {
	tr, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "* * * * * *", 0)
	require.NoError(t, err)

	first := tr.ComputeFirstFireTime(nil)
	require.NotNil(t, first)
	assert.True(t, first.After(time.Now().Add(-time.Second)))
	assert.True(t, first.Before(time.Now().Add(2*time.Second)))
}

func TestCronTriggerAlwaysMayFireAgain(t *testing.T) {
	tr, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "@every 1s", 0)
	require.NoError(t, err)
	tr.ComputeFirstFireTime(nil)
	tr.Triggered(nil)
	assert.True(t, tr.MayFireAgain())
}

func TestCronTriggerTriggeredAdvancesPastPrevious(t *testing.T) {
	tr, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "* * * * * *", 0)
	require.NoError(t, err)

	first := tr.ComputeFirstFireTime(nil)
	require.NotNil(t, first)
	tr.Triggered(nil)

	next := tr.NextFireTime()
	prev := tr.PreviousFireTime()
	require.NotNil(t, next)
	require.NotNil(t, prev)
	assert.Equal(t, *first, *prev)
	assert.True(t, next.After(*prev) || next.Equal(*prev))
}

func TestCronTriggerMisfireFireOnceNowDefaultSkipsToFuture(t *testing.T) {
	tr, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "0 0 0 1 1 *", 0)
	require.NoError(t, err)
	tr.ComputeFirstFireTime(nil)

	tr.UpdateAfterMisfire(nil)
	next := tr.NextFireTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
}

func TestCronTriggerMisfireIgnoreFiresImmediately(t *testing.T) {
	tr, err := trigger.NewCronTrigger("t1", "DEFAULT", "j", "DEFAULT", "0 0 0 1 1 *", 0)
	require.NoError(t, err)
	tr.WithMisfirePolicy(trigger.MisfireIgnore)
	tr.ComputeFirstFireTime(nil)

	before := time.Now()
	tr.UpdateAfterMisfire(nil)
	next := tr.NextFireTime()
	require.NotNil(t, next)
	assert.WithinDuration(t, before, *next, 50*time.Millisecond)
}
