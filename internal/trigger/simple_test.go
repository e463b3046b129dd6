package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/trigger"
)

type excludeAll struct{}

func (excludeAll) IsTimeExcluded(time.Time) bool { return true }

func TestSimpleTriggerOneShotLifecycle(t *testing.T) {
	start := time.Now().Add(time.Minute)
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", start, 0, 0, 0)

	first := tr.ComputeFirstFireTime(nil)
	require.NotNil(t, first)
	assert.WithinDuration(t, start, *first, time.Millisecond)
	assert.True(t, tr.MayFireAgain())

	tr.Triggered(nil)
	assert.False(t, tr.MayFireAgain(), "a zero-repeat trigger must not fire again after its single fire")
	assert.Nil(t, tr.NextFireTime())
}

func TestSimpleTriggerRepeatingAdvancesByInterval(t *testing.T) {
	start := time.Now()
	interval := 100 * time.Millisecond
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", start, interval, 2, 0)

	first := tr.ComputeFirstFireTime(nil)
	require.NotNil(t, first)

	tr.Triggered(nil)
	assert.True(t, tr.MayFireAgain())
	next := tr.NextFireTime()
	require.NotNil(t, next)
	assert.WithinDuration(t, first.Add(interval), *next, 5*time.Millisecond)

	tr.Triggered(nil)
	assert.True(t, tr.MayFireAgain(), "repeatCount=2 allows a 3rd fire (fires 0,1,2)")

	tr.Triggered(nil)
	assert.False(t, tr.MayFireAgain(), "after the 3rd fire (timesFired=3) repeatCount=2 is exhausted")
}

func TestSimpleTriggerIndefiniteRepeatNeverExhausts(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", time.Now(), 10*time.Millisecond, -1, 0)
	tr.ComputeFirstFireTime(nil)
	for i := 0; i < 50; i++ {
		tr.Triggered(nil)
	}
	assert.True(t, tr.MayFireAgain())
	assert.NotNil(t, tr.NextFireTime())
}

func TestSimpleTriggerNeverFiresUnderExcludingCalendar(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", time.Now(), 0, 0, 0)
	first := tr.ComputeFirstFireTime(excludeAll{})
	assert.Nil(t, first, "a one-shot trigger fully excluded by its calendar can never fire")
}

func TestSimpleTriggerMisfireIgnoreFiresImmediately(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", time.Now().Add(-time.Hour), time.Minute, -1, 0)
	tr.WithMisfirePolicy(trigger.MisfireIgnore)
	tr.ComputeFirstFireTime(nil)

	before := time.Now()
	tr.UpdateAfterMisfire(nil)
	next := tr.NextFireTime()
	require.NotNil(t, next)
	assert.WithinDuration(t, before, *next, 50*time.Millisecond)
}

func TestSimpleTriggerMisfireSmartSkipsToFuture(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", time.Now().Add(-90*time.Second), 30*time.Second, -1, 0)
	tr.ComputeFirstFireTime(nil)

	tr.UpdateAfterMisfire(nil)
	next := tr.NextFireTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()), "smart misfire must skip ahead to a fire time not already in the past")
}

func TestSimpleTriggerMisfireDoNothingLeavesUnchanged(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "DEFAULT", "j", "DEFAULT", time.Now().Add(-time.Hour), time.Minute, -1, 0)
	tr.WithMisfirePolicy(trigger.MisfireDoNothing)
	first := tr.ComputeFirstFireTime(nil)

	tr.UpdateAfterMisfire(nil)
	assert.Equal(t, *first, *tr.NextFireTime())
}

func TestSimpleTriggerSnapshotReflectsKey(t *testing.T) {
	tr := trigger.NewSimpleTrigger("t1", "grp", "j", "jgrp", time.Now(), 0, 0, 7)
	tr.ComputeFirstFireTime(nil)
	snap := tr.Snapshot(models.TriggerStateNormal)
	assert.Equal(t, "t1", snap.Name)
	assert.Equal(t, "grp", snap.Group)
	assert.Equal(t, 7, snap.Priority)
}
