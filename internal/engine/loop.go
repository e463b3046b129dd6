package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minisource/jobengine/config"
	"github.com/minisource/jobengine/internal/logging"
	"github.com/minisource/jobengine/internal/store"
)

// loopState is the scheduling loop's three-state machine.
type loopState int

const (
	loopPaused loopState = iota
	loopRunning
	loopHalted
)

// schedulingLoop is the single background control goroutine: it acquires
// due triggers from the store, sleeps until their fire times, and hands
// fired bundles to the dispatcher. Waits are driven by the signaler so a
// facade mutation that brings work forward cuts the sleep short.
type schedulingLoop struct {
	cfg        config.SchedulerConfig
	store      store.JobStore
	pool       *WorkerPool
	signaler   *signaler
	dispatcher *dispatcher
	log        *logging.Logger

	stateMu sync.RWMutex
	state   loopState

	done chan struct{}
}

func newSchedulingLoop(cfg config.SchedulerConfig, st store.JobStore, pool *WorkerPool, sig *signaler, disp *dispatcher, log *logging.Logger) *schedulingLoop {
	return &schedulingLoop{
		cfg:        cfg,
		store:      st,
		pool:       pool,
		signaler:   sig,
		dispatcher: disp,
		log:        log,
		state:      loopPaused,
		done:       make(chan struct{}),
	}
}

func (l *schedulingLoop) setState(s loopState) {
	l.stateMu.Lock()
	l.state = s
	l.stateMu.Unlock()
	l.signaler.wakeNow()
}

func (l *schedulingLoop) getState() loopState {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.state
}

// run is the loop's goroutine body; it returns once the state is set to
// loopHalted and the current wait/delay has been observed.
func (l *schedulingLoop) run(ctx context.Context) {
	defer close(l.done)
	for {
		if ctx.Err() != nil {
			return
		}
		switch l.getState() {
		case loopHalted:
			return
		case loopPaused:
			l.signaler.wait(l.cfg.IdleWaitTime, time.Time{})
			continue
		}

		available := l.pool.AvailableSlots()
		if available <= 0 {
			l.signaler.wait(50*time.Millisecond, time.Time{})
			continue
		}

		batchSize := available
		if batchSize < l.cfg.BatchSizeMin {
			batchSize = l.cfg.BatchSizeMin
		}
		if batchSize > l.cfg.BatchSizeMax {
			batchSize = l.cfg.BatchSizeMax
		}

		triggers, err := l.store.AcquireNextTriggers(ctx, time.Now().Add(l.cfg.BatchTimeWindow), batchSize, l.cfg.BatchTimeWindow)
		if err != nil {
			if l.dispatcher != nil {
				l.dispatcher.listeners.notifySchedulerError("acquireNextTriggers", err)
			}
			l.signaler.wait(l.cfg.DBFailureRetryInterval, time.Time{})
			continue
		}

		if len(triggers) == 0 {
			l.signaler.wait(l.cfg.IdleWaitTime, time.Now().Add(l.cfg.IdleWaitTime))
			continue
		}

		sortBatch(triggers)
		l.fireBatch(ctx, triggers)
	}
}

// sortBatch orders a batch by ascending nextFireTime, then descending
// priority, then identity.
func sortBatch(triggers []store.Trigger) {
	sort.SliceStable(triggers, func(i, j int) bool {
		ti, tj := triggers[i].NextFireTime(), triggers[j].NextFireTime()
		switch {
		case ti == nil && tj == nil:
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.Before(*tj)
		}
		if triggers[i].Priority() != triggers[j].Priority() {
			return triggers[i].Priority() > triggers[j].Priority()
		}
		ki, kj := triggers[i].Key(), triggers[j].Key()
		if ki.Group != kj.Group {
			return ki.Group < kj.Group
		}
		return ki.Name < kj.Name
	})
}

func (l *schedulingLoop) fireBatch(ctx context.Context, triggers []store.Trigger) {
	for i, t := range triggers {
		nft := t.NextFireTime()
		if nft == nil {
			continue
		}
		delay := time.Until(*nft)
		if delay > 0 {
			woken := l.signaler.wait(delay, *nft)
			if woken {
				// An earlier candidate arrived: release the unfired
				// remainder of the batch back to the store and restart.
				// Triggers already fired in this pass keep their stored
				// state.
				l.releaseBatch(ctx, triggers[i:])
				return
			}
		}

		results, err := l.store.TriggersFired(ctx, []store.Trigger{t})
		if err != nil {
			l.dispatcher.listeners.notifySchedulerError("triggersFired", err)
			continue
		}
		for _, fr := range results {
			if fr.NoFire || fr.Err != nil {
				if fr.Err != nil {
					l.dispatcher.listeners.notifySchedulerError("triggersFired result", fr.Err)
				}
				continue
			}
			l.dispatcher.Dispatch(ctx, fr, t)
		}
	}
}

func (l *schedulingLoop) releaseBatch(ctx context.Context, triggers []store.Trigger) {
	for _, t := range triggers {
		if err := l.store.ReleaseAcquiredTrigger(ctx, t); err != nil {
			l.dispatcher.listeners.notifySchedulerError("releaseAcquiredTrigger", err)
		}
	}
}

// waitHalted blocks until the loop goroutine has returned.
func (l *schedulingLoop) waitHalted() {
	<-l.done
}
