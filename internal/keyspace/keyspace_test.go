package keyspace

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwanbul/redis-3.0/internal/value"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) now() int64 { return c.ms }

type recordingPropagator struct{ deleted []string }

func (p *recordingPropagator) PropagateDelete(dbID int, key string) {
	p.deleted = append(p.deleted, key)
}

type recordingEvents struct{ events []Event }

func (e *recordingEvents) Notify(dbID int, event Event, key string) {
	e.events = append(e.events, event)
}

type recordingWriteListener struct{ touched []string }

func (w *recordingWriteListener) OnWrite(dbID int, key string) {
	w.touched = append(w.touched, key)
}

func newTestKeyspace() (*Keyspace, *fakeClock, *recordingPropagator, *recordingEvents, *recordingWriteListener) {
	clock := &fakeClock{ms: 1000}
	prop := &recordingPropagator{}
	events := &recordingEvents{}
	wl := &recordingWriteListener{}
	k := New(4, prop, events)
	k.SetClockSource(clock.now, clock.now)
	k.SetWriteListener(wl)
	return k, clock, prop, events, wl
}

func TestSetAndLookupForRead(t *testing.T) {
	k, _, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 0)

	c, ok := db.LookupForRead("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", c.Str)
}

func TestLookupReapsExpiredKeyOnRead(t *testing.T) {
	k, clock, prop, events, wl := newTestKeyspace()
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 1500)

	clock.ms = 1600
	_, ok := db.LookupForRead("foo")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), k.Stats().ExpiredKeys)
	assert.Contains(t, prop.deleted, "foo")
	assert.Contains(t, events.events, EventExpired)
	assert.Contains(t, wl.touched, "foo")
}

func TestExpiryIsStrictlyGreaterThan(t *testing.T) {
	k, clock, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 1500)

	clock.ms = 1500 // equal to expiry: still live
	_, ok := db.LookupForRead("foo")
	assert.True(t, ok)
}

func TestReplicaDoesNotActivelyReap(t *testing.T) {
	k, clock, prop, _, _ := newTestKeyspace()
	k.SetReplica(true)
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 1500)

	clock.ms = 2000
	_, ok := db.LookupForRead("foo")
	assert.False(t, ok, "replica must report the expired key absent")
	assert.Empty(t, prop.deleted, "replica must not itself propagate the deletion")
	assert.Equal(t, 1, db.Size(), "replica must not physically delete until told to")
}

func TestDeleteAndExists(t *testing.T) {
	k, _, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 0)
	assert.True(t, db.Exists("foo"))
	assert.True(t, db.Delete("foo"))
	assert.False(t, db.Exists("foo"))
	assert.False(t, db.Delete("foo"), "deleting an absent key is not an error")
}

func TestPersistRemovesTTL(t *testing.T) {
	k, clock, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("foo", value.NewString("bar"), 1500)
	assert.True(t, db.Persist("foo"))
	clock.ms = 9999
	_, ok := db.LookupForRead("foo")
	assert.True(t, ok)
}

func TestTTLMillis(t *testing.T) {
	k, _, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	assert.Equal(t, int64(-2), db.TTLMillis("missing"))
	db.Set("no-ttl", value.NewString("x"), 0)
	assert.Equal(t, int64(-1), db.TTLMillis("no-ttl"))
	db.Set("with-ttl", value.NewString("x"), 2000)
	assert.Equal(t, int64(1000), db.TTLMillis("with-ttl"))
}

func TestFlushDBTouchesEveryKey(t *testing.T) {
	k, _, _, _, wl := newTestKeyspace()
	db := k.DB(0)
	db.Set("a", value.NewString("1"), 0)
	db.Set("b", value.NewString("2"), 0)
	wl.touched = nil

	db.FlushDB()
	assert.ElementsMatch(t, []string{"a", "b"}, wl.touched)
	assert.Equal(t, 0, db.Size())
}

func TestKeysGlobMatch(t *testing.T) {
	k, _, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("user:1", value.NewString("a"), 0)
	db.Set("user:2", value.NewString("b"), 0)
	db.Set("order:1", value.NewString("c"), 0)

	got := db.Keys("user:*")
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, got)
}

func TestActiveExpireCycleReapsSampledKeys(t *testing.T) {
	k, clock, prop, _, _ := newTestKeyspace()
	db := k.DB(0)
	for i := 0; i < 30; i++ {
		db.Set(fmt.Sprintf("expiring-%d", i), value.NewString("v"), 1500)
	}
	clock.ms = 5000

	for i := 0; i < 20; i++ {
		k.ActiveExpireCycle(ExpireSlow, 100)
	}
	assert.NotEmpty(t, prop.deleted)
}

func TestActiveExpireCycleSkipsSparseDB(t *testing.T) {
	k, _, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	db.Set("only-key", value.NewString("v"), 9999999)
	// Should not panic or loop forever on a db with a single, unexpired key.
	k.ActiveExpireCycle(ExpireFast, 100)
	assert.Equal(t, 1, db.Size())
}

func TestActiveExpireCycleTracksSmoothedAverageTTL(t *testing.T) {
	k, clock, _, _, _ := newTestKeyspace()
	db := k.DB(0)
	for i := 0; i < 30; i++ {
		db.Set(fmt.Sprintf("live-%d", i), value.NewString("v"), clock.ms+10000)
	}

	k.ActiveExpireCycle(ExpireSlow, 100)
	assert.Greater(t, k.Stats().AvgTTLMs, int64(0))

	firstAvg := k.Stats().AvgTTLMs
	clock.ms += 5000
	k.ActiveExpireCycle(ExpireSlow, 100)
	secondAvg := k.Stats().AvgTTLMs
	assert.NotEqual(t, firstAvg, secondAvg)
}
