package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/txn"
)

type recordingSink struct {
	calls []propagated
}

type propagated struct {
	db   int
	name string
	args []string
}

func (r *recordingSink) Propagate(dbID int, name string, args []string) {
	r.calls = append(r.calls, propagated{dbID, name, append([]string(nil), args...)})
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingSink) {
	t.Helper()
	ks := keyspace.New(4, nil, nil)
	tracker := txn.NewTracker()
	d := NewDispatcher(ks, tracker)
	sink := &recordingSink{}
	d.Sink = sink
	return d, sink
}

func newTestClient(d *Dispatcher) *Client {
	return NewClient(1, "test", d.Tracker)
}

func TestSetGetRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	reply := d.Dispatch(c, "SET", []string{"foo", "bar"})
	assert.Equal(t, ReplySimpleString, reply.Kind)

	reply = d.Dispatch(c, "GET", []string{"foo"})
	require.Equal(t, ReplyBulkString, reply.Kind)
	assert.Equal(t, "bar", reply.Str)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	reply := d.Dispatch(c, "NOTACOMMAND", nil)
	assert.Equal(t, ReplyError, reply.Kind)
}

func TestWrongArityReturnsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	reply := d.Dispatch(c, "GET", nil)
	assert.Equal(t, ReplyError, reply.Kind)
}

func TestWriteCommandPropagatesVerbatim(t *testing.T) {
	d, sink := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	require.Len(t, sink.calls, 1)
	assert.Equal(t, "SET", sink.calls[0].name)
}

func TestReadCommandDoesNotPropagate(t *testing.T) {
	d, sink := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	d.Dispatch(c, "GET", []string{"foo"})
	assert.Len(t, sink.calls, 1)
}

func TestExpirePropagatesAsPExpireAt(t *testing.T) {
	d, sink := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	d.Dispatch(c, "EXPIRE", []string{"foo", "100"})

	require.Len(t, sink.calls, 2)
	assert.Equal(t, "PEXPIREAT", sink.calls[1].name)
	assert.Equal(t, "foo", sink.calls[1].args[0])
}

func TestMultiQueuesThenExecRunsInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	reply := d.Dispatch(c, "MULTI", nil)
	assert.Equal(t, "OK", reply.Str)

	reply = d.Dispatch(c, "SET", []string{"foo", "1"})
	assert.Equal(t, "QUEUED", reply.Str)

	reply = d.Dispatch(c, "INCR", []string{"foo"})
	assert.Equal(t, "QUEUED", reply.Str)

	reply = d.Dispatch(c, "EXEC", nil)
	require.Equal(t, ReplyArray, reply.Kind)
	require.Len(t, reply.Array, 2)
	assert.Equal(t, int64(2), reply.Array[1].Int)
}

func TestExecAbortsWhenWatchedKeyChanges(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c1 := newTestClient(d)
	c2 := newTestClient(d)

	d.Dispatch(c1, "SET", []string{"foo", "1"})
	d.Dispatch(c1, "WATCH", []string{"foo"})
	d.Dispatch(c1, "MULTI", nil)
	d.Dispatch(c1, "GET", []string{"foo"})

	d.Dispatch(c2, "SET", []string{"foo", "2"})

	reply := d.Dispatch(c1, "EXEC", nil)
	assert.Equal(t, ReplyNullArray, reply.Kind)
}

func TestExecAbortWithBadQueuedArityReturnsExecAbort(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "MULTI", nil)
	reply := d.Dispatch(c, "GET", nil)
	assert.Equal(t, ReplyError, reply.Kind)

	reply = d.Dispatch(c, "EXEC", nil)
	assert.Equal(t, ReplyError, reply.Kind)
	assert.Contains(t, reply.Str, "EXECABORT")
}

func TestAppendTouchesKeyForWatchers(t *testing.T) {
	d, _ := newTestDispatcher(t)
	writer := newTestClient(d)
	watcher := newTestClient(d)

	d.Dispatch(writer, "SET", []string{"foo", "bar"})
	d.Dispatch(watcher, "WATCH", []string{"foo"})
	d.Dispatch(watcher, "MULTI", nil)
	d.Dispatch(watcher, "GET", []string{"foo"})

	d.Dispatch(writer, "APPEND", []string{"foo", "baz"})

	reply := d.Dispatch(watcher, "EXEC", nil)
	assert.Equal(t, ReplyNullArray, reply.Kind)
}

func TestSlowLogRecordsOverThreshold(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)
	d.SlowLogThresholdUs = 0

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	entries := d.SlowLog(-1)
	assert.NotEmpty(t, entries)
}

func TestRequirePasswordGatesCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.RequirePassword = "secret"
	c := newTestClient(d)

	reply := d.Dispatch(c, "GET", []string{"foo"})
	assert.Equal(t, ReplyError, reply.Kind)

	reply = d.Dispatch(c, "AUTH", []string{"wrong"})
	assert.Equal(t, ReplyError, reply.Kind)

	reply = d.Dispatch(c, "AUTH", []string{"secret"})
	assert.Equal(t, "OK", reply.Str)

	reply = d.Dispatch(c, "GET", []string{"foo"})
	assert.Equal(t, ReplyNullBulk, reply.Kind)
}

func TestReadOnlyReplicaRejectsWrites(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.ReadOnlyReplica = true
	c := newTestClient(d)

	reply := d.Dispatch(c, "SET", []string{"foo", "bar"})
	assert.Equal(t, ReplyError, reply.Kind)
	assert.Contains(t, reply.Str, "READONLY")
}

type recordingMetrics struct {
	names []string
}

func (r *recordingMetrics) Observe(name string, _ time.Duration) {
	r.names = append(r.names, name)
}

func TestMetricsSinkObservesEveryCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)
	m := &recordingMetrics{}
	d.Metrics = m

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	d.Dispatch(c, "GET", []string{"foo"})

	assert.Equal(t, []string{"SET", "GET"}, m.names)
}

func TestRenameCarriesOverTTL(t *testing.T) {
	d, _ := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "SET", []string{"foo", "bar"})
	d.Dispatch(c, "PEXPIRE", []string{"foo", "100000"})
	d.Dispatch(c, "RENAME", []string{"foo", "moved"})

	reply := d.Dispatch(c, "PTTL", []string{"moved"})
	require.Equal(t, ReplyInteger, reply.Kind)
	assert.Greater(t, reply.Int, int64(0))
}
