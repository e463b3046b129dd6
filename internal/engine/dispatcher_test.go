package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/models"
	"github.com/minisource/jobengine/internal/store"
	"github.com/minisource/jobengine/internal/trigger"
)

// eventLog is shared by listeners and job bodies so a test can assert the
// exact cross-component ordering of one firing.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) index(e string) int {
	for i, v := range l.snapshot() {
		if v == e {
			return i
		}
	}
	return -1
}

type orderTriggerListener struct {
	log  *eventLog
	veto bool
}

func (o *orderTriggerListener) Name() string { return "orderTriggerListener" }
func (o *orderTriggerListener) TriggerFired(*models.JobExecutionContext) bool {
	o.log.add("triggerFired")
	return o.veto
}
func (o *orderTriggerListener) TriggerComplete(*models.JobExecutionContext, models.InstructionCode) {
	o.log.add("triggerComplete")
}

type orderJobListener struct {
	log *eventLog
}

func (o *orderJobListener) Name() string { return "orderJobListener" }
func (o *orderJobListener) JobToBeExecuted(*models.JobExecutionContext) {
	o.log.add("toBeExecuted")
}
func (o *orderJobListener) JobExecutionVetoed(*models.JobExecutionContext) {
	o.log.add("vetoed")
}
func (o *orderJobListener) JobWasExecuted(*models.JobExecutionContext, error) {
	o.log.add("wasExecuted")
}

// completionRecordingStore wraps a JobStore and logs TriggeredJobComplete,
// closing the ordering chain at the store boundary.
type completionRecordingStore struct {
	store.JobStore
	log *eventLog
}

func (s *completionRecordingStore) TriggeredJobComplete(ctx context.Context, trig store.Trigger, job *models.JobDetail, code models.InstructionCode) error {
	s.log.add("storeComplete")
	return s.JobStore.TriggeredJobComplete(ctx, trig, job, code)
}

// TestListenerOrderingAcrossOneFiring asserts the full per-execution
// sequence: triggerFired, toBeExecuted, the job body, wasExecuted,
// triggerComplete, then the store's completion callback.
func TestListenerOrderingAcrossOneFiring(t *testing.T) {
	log := &eventLog{}
	st := &completionRecordingStore{JobStore: store.NewInMemoryStore(), log: log}
	facade := New(Options{
		Name:   "ordering",
		Config: testConfig(),
		Store:  st,
		Factory: JobFactoryFunc(func(*models.JobDetail) (Job, error) {
			return JobFunc(func(context.Context, *models.JobExecutionContext) error {
				log.add("body")
				return nil
			}), nil
		}),
	})
	require.NoError(t, facade.AddTriggerListener(&orderTriggerListener{log: log}))
	require.NoError(t, facade.AddJobListener(&orderJobListener{log: log}))

	ctx := context.Background()
	jd := &models.JobDetail{Name: "a", Group: "DEFAULT"}
	trig := trigger.NewSimpleTrigger("t1", "DEFAULT", "a", "DEFAULT", time.Now().Add(50*time.Millisecond), 0, 0, 0)
	_, err := facade.ScheduleJob(ctx, jd, trig)
	require.NoError(t, err)
	require.NoError(t, facade.Start(ctx))
	defer facade.Shutdown(ctx, true)

	waitFor(t, 2*time.Second, func() bool { return log.index("storeComplete") >= 0 })

	order := []string{"triggerFired", "toBeExecuted", "body", "wasExecuted", "triggerComplete", "storeComplete"}
	for i := 1; i < len(order); i++ {
		prev, cur := log.index(order[i-1]), log.index(order[i])
		require.GreaterOrEqual(t, prev, 0, order[i-1])
		require.GreaterOrEqual(t, cur, 0, order[i])
		assert.Less(t, prev, cur, "%s must precede %s", order[i-1], order[i])
	}
}

// TestVetoSkipsJobBody asserts that a vetoing trigger listener prevents
// the job body from running and that JobExecutionVetoed is delivered
// exactly once.
func TestVetoSkipsJobBody(t *testing.T) {
	log := &eventLog{}
	st := store.NewInMemoryStore()
	facade := New(Options{
		Name:   "veto",
		Config: testConfig(),
		Store:  st,
		Factory: JobFactoryFunc(func(*models.JobDetail) (Job, error) {
			return JobFunc(func(context.Context, *models.JobExecutionContext) error {
				log.add("body")
				return nil
			}), nil
		}),
	})
	require.NoError(t, facade.AddTriggerListener(&orderTriggerListener{log: log, veto: true}))
	require.NoError(t, facade.AddJobListener(&orderJobListener{log: log}))

	ctx := context.Background()
	jd := &models.JobDetail{Name: "v", Group: "DEFAULT"}
	trig := trigger.NewSimpleTrigger("t1", "DEFAULT", "v", "DEFAULT", time.Now().Add(50*time.Millisecond), 0, 0, 0)
	_, err := facade.ScheduleJob(ctx, jd, trig)
	require.NoError(t, err)
	require.NoError(t, facade.Start(ctx))
	defer facade.Shutdown(ctx, true)

	waitFor(t, 2*time.Second, func() bool { return log.index("vetoed") >= 0 })
	time.Sleep(100 * time.Millisecond)

	events := log.snapshot()
	vetoCount := 0
	for _, e := range events {
		if e == "vetoed" {
			vetoCount++
		}
		assert.NotEqual(t, "body", e, "a vetoed execution must not run the job body")
		assert.NotEqual(t, "toBeExecuted", e, "a vetoed execution must not reach JobToBeExecuted")
	}
	assert.Equal(t, 1, vetoCount)
}

// TestFireInstanceIDsAreUnique collects the fire-instance id of every
// execution across a repeating trigger and asserts pairwise distinctness.
func TestFireInstanceIDsAreUnique(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)

	st := store.NewInMemoryStore()
	facade := New(Options{
		Name:   "uniqueness",
		Config: testConfig(),
		Store:  st,
		Factory: JobFactoryFunc(func(*models.JobDetail) (Job, error) {
			return JobFunc(func(_ context.Context, ec *models.JobExecutionContext) error {
				mu.Lock()
				seen[ec.FireInstanceID]++
				mu.Unlock()
				return nil
			}), nil
		}),
	})

	ctx := context.Background()
	jd := &models.JobDetail{Name: "u", Group: "DEFAULT"}
	trig := trigger.NewSimpleTrigger("t1", "DEFAULT", "u", "DEFAULT", time.Now(), 40*time.Millisecond, 4, 0)
	_, err := facade.ScheduleJob(ctx, jd, trig)
	require.NoError(t, err)
	require.NoError(t, facade.Start(ctx))
	defer facade.Shutdown(ctx, true)

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 5
	})

	mu.Lock()
	defer mu.Unlock()
	for id, count := range seen {
		assert.Equal(t, 1, count, "fire instance id %s observed more than once", id)
	}
}

// TestJobErrorInstructionSteersStore: a job error carrying an instruction
// code makes the store delete the trigger rather than keep rescheduling it.
func TestJobErrorInstructionSteersStore(t *testing.T) {
	st := store.NewInMemoryStore()
	fired := make(chan struct{}, 16)
	facade := New(Options{
		Name:   "instruction",
		Config: testConfig(),
		Store:  st,
		Factory: JobFactoryFunc(func(*models.JobDetail) (Job, error) {
			return JobFunc(func(context.Context, *models.JobExecutionContext) error {
				fired <- struct{}{}
				return unscheduleError{}
			}), nil
		}),
	})

	ctx := context.Background()
	jd := &models.JobDetail{Name: "e", Group: "DEFAULT", Durable: true}
	trig := trigger.NewSimpleTrigger("t1", "DEFAULT", "e", "DEFAULT", time.Now(), 30*time.Millisecond, -1, 0)
	_, err := facade.ScheduleJob(ctx, jd, trig)
	require.NoError(t, err)
	require.NoError(t, facade.Start(ctx))
	defer facade.Shutdown(ctx, true)

	<-fired
	waitFor(t, 2*time.Second, func() bool {
		got, _ := st.RetrieveTrigger(ctx, models.TriggerKey{Name: "t1", Group: "DEFAULT"})
		return got == nil
	})
}

// unscheduleError is a job error whose instruction code tells the store to
// delete the firing trigger.
type unscheduleError struct{}

func (unscheduleError) Error() string { return "stop firing this trigger" }
func (unscheduleError) InstructionCode() models.InstructionCode {
	return models.DeleteTrigger
}
