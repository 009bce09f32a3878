// Package cron implements spec.md §4.G: the periodic maintenance pass,
// run on cron's own ticker at 1000/hz ms, plus the BeforeSleep hook the
// reactor runs once per iteration.
//
// Grounded on the teacher's coordinator.HealthMonitor (internal/coordinator/
// health_monitor.go): a ticker-driven goroutine with Start/Stop, a
// WaitGroup for graceful shutdown, and a context for cancellation — the
// same shape, repurposed from node health polling to keyspace
// maintenance.
package cron

import (
	"context"
	"sync"
	"time"

	"github.com/pwanbul/redis-3.0/internal/jobs"
	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/persist"
)

// replicaFlusher is the narrow slice of propagation.Sink cron needs for
// its periodic replication cron step and the BeforeSleep AOF-adjacent
// flush.
type replicaFlusher interface {
	FlushReplicaBuffers()
}

// metricsSampler is the narrow slice of internal/metrics.Recorder cron's
// 100ms metric resample step needs (spec.md §4.G, §9 "AMBIENT STACK").
type metricsSampler interface {
	SampleKeyspace(expiredKeys, evictedKeys uint64)
}

// defaultHZ matches spec.md's documented default (10 ticks/second).
const defaultHZ = 10

// Cron drives spec.md §4.G's per-tick maintenance. It owns no client
// list of its own — spec.md's "client maintenance slice" sizing rule
// (max(numclients/(hz*10), 50)) is the caller's job, surfaced through
// ClientMaintenance below, since internal/cron has no visibility into
// connections (those live in internal/server).
type Cron struct {
	ks    *keyspace.Keyspace
	child persist.Child
	sink  replicaFlusher
	hz    int

	// ClientMaintenance, if set, is invoked once per tick with the
	// client-slice size spec.md's formula computes. cmd/redis-server
	// does not set it, and internal/server has no idle/timeout sweep.
	ClientMaintenance func(sliceSize int)
	// NumClients reports the current connection count, used only to
	// size the per-tick client maintenance slice.
	NumClients func() int
	// OnShutdownRequested fires exactly once, the first tick after
	// RequestShutdown is called.
	OnShutdownRequested func()
	// Metrics, if set, receives the 100ms keyspace gauge resample.
	Metrics metricsSampler
	// Jobs, if set, offloads the 1000ms replication flush onto the
	// background job pool's LogFsync queue instead of running it inline
	// on the cron goroutine — the same "don't block on a slow syscall"
	// contract internal/jobs exists for (spec.md §4.H).
	Jobs *jobs.Pool

	mu                sync.Mutex
	ticks             uint64
	shutdownRequested bool
	shutdownFired     bool
	lastReplCronMs    int64
	lastMetricsMs     int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Cron at the given hz (ticks/second); hz<=0 uses spec.md's
// default of 10.
func New(ks *keyspace.Keyspace, child persist.Child, sink replicaFlusher, hz int) *Cron {
	if hz <= 0 {
		hz = defaultHZ
	}
	return &Cron{ks: ks, child: child, sink: sink, hz: hz}
}

// Period is the tick interval, 1000/hz ms.
func (cr *Cron) Period() time.Duration {
	return time.Second / time.Duration(cr.hz)
}

// RequestShutdown sets the shutdown flag cron consumes on its next tick
// (spec.md §4.G "shutdown-flag handling"); a second call is a no-op.
func (cr *Cron) RequestShutdown() {
	cr.mu.Lock()
	cr.shutdownRequested = true
	cr.mu.Unlock()
}

// Start runs Tick on a ticker until ctx is canceled or Stop is called.
func (cr *Cron) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	cr.cancel = cancel

	cr.wg.Add(1)
	defer cr.wg.Done()

	ticker := time.NewTicker(cr.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cr.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the running ticker loop and waits for it to exit.
func (cr *Cron) Stop() {
	if cr.cancel != nil {
		cr.cancel()
	}
	cr.wg.Wait()
}

// Tick runs one pass of per-cycle maintenance: LRU clock refresh (once
// every hz ticks), the slow active-expire cycle (skipped while a
// persistence child is alive), a non-blocking reap of that child, the
// client-maintenance slice, the 1000ms replication flush, the 100ms
// metrics resample, and shutdown-flag handling. It does not resize or
// rehash the keyspace dicts. The
// cluster/sentinel 100ms timers spec.md names are permanently no-ops at
// this scope (see SPEC_FULL.md §9.3) and are not represented here.
func (cr *Cron) Tick() {
	cr.mu.Lock()
	cr.ticks++
	ticks := cr.ticks
	shutdownRequested := cr.shutdownRequested
	shutdownFired := cr.shutdownFired
	cr.mu.Unlock()

	// LRU clock advances once per wall-clock second, i.e. every hz ticks.
	if int(ticks)%cr.hz == 0 {
		cr.ks.TickLRUClock()
	}

	childAlive := cr.child != nil && cr.child.Alive()
	if !childAlive {
		cr.ks.ActiveExpireCycle(keyspace.ExpireSlow, cr.Period().Milliseconds())
	}
	if cr.child != nil {
		if _, ok := cr.child.Wait(); ok {
			// Child exited; nothing further to reap at this scope since
			// no concrete snapshot/rewrite artifact exists to finalize
			// (SPEC_FULL.md §9.2).
		}
	}

	if cr.ClientMaintenance != nil && cr.NumClients != nil {
		sliceSize := cr.NumClients() / (cr.hz * 10)
		if sliceSize < 50 {
			sliceSize = 50
		}
		cr.ClientMaintenance(sliceSize)
	}

	now := time.Now().UnixMilli()
	if now-cr.lastReplCronMs >= 1000 {
		cr.lastReplCronMs = now
		if cr.sink != nil {
			if cr.Jobs != nil {
				sink := cr.sink
				cr.Jobs.Enqueue(jobs.Job{Type: jobs.LogFsync, Run: sink.FlushReplicaBuffers})
			} else {
				cr.sink.FlushReplicaBuffers()
			}
		}
	}
	if now-cr.lastMetricsMs >= 100 {
		cr.lastMetricsMs = now
		if cr.Metrics != nil {
			stats := cr.ks.Stats()
			cr.Metrics.SampleKeyspace(stats.ExpiredKeys, stats.EvictedKeys)
		}
	}

	if shutdownRequested && !shutdownFired {
		cr.mu.Lock()
		cr.shutdownFired = true
		cr.mu.Unlock()
		if cr.OnShutdownRequested != nil {
			cr.OnShutdownRequested()
		}
	}
}

// BeforeSleep runs spec.md §4.G's per-reactor-iteration hook: a bounded
// fast expire pass, then a flush of the propagation sink, which sends
// pending replica batches and syncs the append-only log when one is
// attached. There is no fsync-policy setting: the sync runs on every
// call. Replica ACK
// solicitation and unblocked-client command processing have no
// SPEC_FULL.md component to drive them (no blocking commands, no
// replica ACK protocol, at this scope) and are omitted rather than
// stubbed as dead branches.
func (cr *Cron) BeforeSleep() {
	cr.ks.ActiveExpireCycle(keyspace.ExpireFast, cr.Period().Milliseconds())
	if cr.sink != nil {
		cr.sink.FlushReplicaBuffers()
	}
}
