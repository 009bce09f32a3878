package command

import (
	"strings"
	"sync"
	"time"

	"github.com/pwanbul/redis-3.0/internal/eviction"
	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/persist"
	"github.com/pwanbul/redis-3.0/internal/propagation"
	"github.com/pwanbul/redis-3.0/internal/txn"
)

// Propagator is the slice of propagation.Sink the dispatcher needs.
type Propagator interface {
	Propagate(dbID int, name string, args []string)
}

// MonitorSink receives a formatted line for every executed command, the
// in-scope stand-in for MONITOR subscriber fan-out.
type MonitorSink interface {
	Feed(line string)
}

// MetricsSink receives per-command timing; internal/metrics wires this
// to a Prometheus counter/histogram pair (spec.md §9 "AMBIENT STACK").
type MetricsSink interface {
	Observe(name string, elapsed time.Duration)
}

// SlowLogEntry is one ring-buffer entry (spec.md §4.E: "slow log kept
// in-scope as a bounded ring buffer").
type SlowLogEntry struct {
	ID        int64
	Timestamp int64
	DurationUs int64
	Args      []string
}

// Dispatcher owns every cross-cutting piece Dispatch/Call touch: the
// keyspace, the watch tracker, the optional evictor/propagator, and the
// server-wide gates (auth, replica mode, persistence health).
type Dispatcher struct {
	Keyspace *keyspace.Keyspace
	Tracker  *txn.Tracker
	Evictor  *eviction.Evictor
	Sink     Propagator
	Monitor  MonitorSink
	Metrics  MetricsSink
	Child    persist.Child
	// Shutdown, if set, is invoked by the SHUTDOWN command before closing
	// the connection — wired by cmd/redis-server to the process's
	// graceful-stop signal.
	Shutdown func()

	// RequirePassword, if non-empty, gates every command but AUTH/QUIT/
	// HELLO behind a matching AUTH.
	RequirePassword string
	// ReadOnlyReplica rejects write commands from ordinary clients.
	ReadOnlyReplica bool
	// StopWritesOnBgsaveError rejects writes when LastBgsaveOK is false.
	StopWritesOnBgsaveError bool
	LastBgsaveOK            bool
	// ClusterEnabled is set from --cluster-enabled, but cluster slot
	// routing is out of scope: Dispatch's cluster-redirect gate is an
	// empty branch, so no command is ever redirected whatever its value.
	ClusterEnabled bool

	MemoryLimit int64
	MemoryUsage func() int64

	SlowLogThresholdUs int64
	slowLogMu          sync.Mutex
	slowLog            []SlowLogEntry
	slowLogNextID      int64
	slowLogCap         int

	statsMu sync.Mutex
	stats   map[string]*commandStats

	dirty         uint64
	alsoMu        sync.Mutex
	alsoPropagate []propagation.WriteCommand

	Table map[string]*Spec
}

type commandStats struct {
	Calls      int64
	TotalUs    int64
}

// NewDispatcher wires ks's write-touch hook to the dispatcher itself
// (OnWrite below), so every mutation both bumps the dirty counter used
// for propagation decisions and fans out to the WATCH tracker.
func NewDispatcher(ks *keyspace.Keyspace, tracker *txn.Tracker) *Dispatcher {
	d := &Dispatcher{
		Keyspace:      ks,
		Tracker:       tracker,
		LastBgsaveOK:  true,
		MemoryUsage:   func() int64 { return 0 },
		slowLogCap:    128,
		stats:         make(map[string]*commandStats),
		Table:         BuildTable(),
	}
	ks.SetWriteListener(d)
	return d
}

// OnWrite implements keyspace.WriteListener.
func (d *Dispatcher) OnWrite(dbID int, key string) {
	d.dirty++
	if d.Tracker != nil {
		d.Tracker.OnWrite(dbID, key)
	}
}

// QueuePropagation lets a handler override verbatim propagation (e.g.
// EXPIRE propagating as PEXPIREAT with an absolute deadline).
func (d *Dispatcher) QueuePropagation(dbID int, name string, args []string) {
	d.alsoMu.Lock()
	d.alsoPropagate = append(d.alsoPropagate, propagation.WriteCommand{DB: dbID, Name: name, Args: args})
	d.alsoMu.Unlock()
}

func (d *Dispatcher) drainAlsoPropagate() []propagation.WriteCommand {
	d.alsoMu.Lock()
	defer d.alsoMu.Unlock()
	if len(d.alsoPropagate) == 0 {
		return nil
	}
	out := d.alsoPropagate
	d.alsoPropagate = nil
	return out
}

var exemptFromMultiQueue = map[string]bool{
	"MULTI": true, "EXEC": true, "DISCARD": true, "WATCH": true,
	"UNWATCH": true, "QUIT": true, "RESET": true,
}

// Dispatch runs spec.md §4.E's ten-step pipeline for one command.
func (d *Dispatcher) Dispatch(c *Client, name string, args []string) Reply {
	upper := strings.ToUpper(name)

	// Step: QUIT special-case, handled before a table lookup since it
	// must always succeed regardless of auth/MULTI state.
	if upper == "QUIT" {
		return Reply{Kind: ReplySimpleString, Str: "OK", Close: true}
	}

	spec, ok := d.Table[upper]
	if !ok {
		if c.Txn.InMulti() && !exemptFromMultiQueue[upper] {
			c.Txn.QueueCommand(upper, args, false)
		}
		return Err("ERR unknown command '" + name + "'")
	}
	if !checkArity(spec, 1+len(args)) {
		if c.Txn.InMulti() && !exemptFromMultiQueue[upper] {
			c.Txn.QueueCommand(upper, args, false)
		}
		return Err("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
	}

	if d.RequirePassword != "" && !c.Authenticated && upper != "AUTH" {
		return Err("NOAUTH Authentication required.")
	}

	// Cluster-redirect gate: an explicit no-op branch so the pipeline
	// shape matches spec.md's ten steps. It redirects nothing, even when
	// ClusterEnabled is set.
	if d.ClusterEnabled {
		// no slot-ownership model exists, so there is nothing to redirect.
	}

	if spec.Write && d.Evictor != nil && d.MemoryLimit > 0 && d.MemoryUsage() > d.MemoryLimit {
		if err := d.Evictor.Reclaim(d.MemoryLimit); err != nil {
			return Err("OOM command not allowed when used memory > 'maxmemory'.")
		}
	}

	if spec.Write && d.StopWritesOnBgsaveError && !d.LastBgsaveOK {
		return Err("MISCONF Errors writing to the persistence backend. Write commands are disabled.")
	}

	if spec.Write && d.ReadOnlyReplica {
		return Err("READONLY You can't write against a read only replica.")
	}

	// Stale/loading/pubsub/monitor gates: no stale-replica-serving policy,
	// no RDB-loading state, and no pub/sub or MONITOR subscriber mode
	// exist at this scope (spec.md §1 Non-goals), so these always pass.

	if c.Txn.InMulti() && !exemptFromMultiQueue[upper] {
		c.Txn.QueueCommand(upper, args, true)
		return Simple("QUEUED")
	}

	return d.Call(c, spec, upper, args)
}

// Call executes spec's handler, measuring elapsed time for stats and the
// slow log, feeding MONITOR, and deciding propagation from the dirty
// counter delta (spec.md §4.E).
func (d *Dispatcher) Call(c *Client, spec *Spec, name string, args []string) Reply {
	start := time.Now()
	before := d.dirty
	reply := spec.Handler(d, c, args)
	elapsed := time.Since(start)

	d.recordStats(name, elapsed)
	if d.Monitor != nil {
		d.Monitor.Feed(monitorLine(c, name, args))
	}
	if d.Metrics != nil {
		d.Metrics.Observe(name, elapsed)
	}
	if d.SlowLogThresholdUs >= 0 && elapsed.Microseconds() >= d.SlowLogThresholdUs {
		d.recordSlowLog(elapsed, append([]string{name}, args...))
	}

	also := d.drainAlsoPropagate()
	if len(also) > 0 {
		for _, cmd := range also {
			d.Sink.Propagate(cmd.DB, cmd.Name, cmd.Args)
		}
	} else if spec.Write && d.dirty != before && d.Sink != nil {
		d.Sink.Propagate(c.DBIndex, name, args)
	}

	return reply
}

func (d *Dispatcher) recordStats(name string, elapsed time.Duration) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	s, ok := d.stats[name]
	if !ok {
		s = &commandStats{}
		d.stats[name] = s
	}
	s.Calls++
	s.TotalUs += elapsed.Microseconds()
}

func (d *Dispatcher) recordSlowLog(elapsed time.Duration, args []string) {
	d.slowLogMu.Lock()
	defer d.slowLogMu.Unlock()
	entry := SlowLogEntry{
		ID:         d.slowLogNextID,
		DurationUs: elapsed.Microseconds(),
		Args:       args,
	}
	d.slowLogNextID++
	d.slowLog = append(d.slowLog, entry)
	if over := len(d.slowLog) - d.slowLogCap; over > 0 {
		d.slowLog = d.slowLog[over:]
	}
}

// SlowLog returns up to n most recent entries, newest first; n<=0 means
// every retained entry.
func (d *Dispatcher) SlowLog(n int) []SlowLogEntry {
	d.slowLogMu.Lock()
	defer d.slowLogMu.Unlock()
	out := make([]SlowLogEntry, len(d.slowLog))
	for i, e := range d.slowLog {
		out[len(d.slowLog)-1-i] = e
	}
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// SlowLogReset clears the ring buffer.
func (d *Dispatcher) SlowLogReset() {
	d.slowLogMu.Lock()
	d.slowLog = nil
	d.slowLogMu.Unlock()
}

func monitorLine(c *Client, name string, args []string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	return b.String()
}
