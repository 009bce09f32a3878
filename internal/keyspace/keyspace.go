// Package keyspace implements spec.md §4.C: the per-database dict of
// key->value plus the parallel expires dict, lazy expiration on lookup,
// and the scaffolding the active expiration cycle (expire.go) and the
// eviction engine (internal/eviction) both build on.
//
// Grounded on the teacher's internal/shard/shard.go (Shard wraps a
// storage.Store and tracks atomic operation stats) generalized from a
// single flat store to the two-dict, expiring keyspace spec.md requires.
package keyspace

import (
	"path"
	"time"

	"github.com/pwanbul/redis-3.0/internal/dict"
	"github.com/pwanbul/redis-3.0/internal/value"
)

// Event names the keyspace notifications fired by Database mutations.
type Event string

const (
	EventExpired Event = "expired"
	EventEvicted Event = "evicted"
)

// EventBus is the keyspace-event subscriber interface; a real pub/sub
// implementation is out of scope (spec.md §1), so tests and the server
// package supply a minimal implementation that just counts or logs.
type EventBus interface {
	Notify(dbID int, event Event, key string)
}

// Propagator is the narrow slice of internal/propagation.Sink the
// keyspace needs: emitting a synthetic DEL when a key is reaped or
// evicted, so replicas and the append-only log observe the deletion
// (spec.md §4.C, §4.D).
type Propagator interface {
	PropagateDelete(dbID int, key string)
}

// WriteListener is notified after every mutation to a key, in any
// database, for any reason (explicit write, lazy expiry reap, active
// expiry, eviction). internal/txn implements this to drive WATCH
// invalidation (spec.md §4.F: "any mutation of key K in DB D ... must
// call touch(D, K)").
type WriteListener interface {
	OnWrite(dbID int, key string)
}

// Stats mirrors the server-wide counters spec.md references.
type Stats struct {
	ExpiredKeys uint64
	EvictedKeys uint64
	// AvgTTLMs is ActiveExpireCycle's smoothed average remaining TTL
	// (spec.md §4.C), a 2-point running mean of each sampling pass's
	// average against the previous value — not a true historical
	// average, just enough signal to say whether keys are expiring
	// sooner or later than before.
	AvgTTLMs int64
	haveAvg  bool
}

// Database is one of the keyspace's N logical databases.
type Database struct {
	ID      int
	dict    *dict.Dict[string, *value.Cell]
	expires *dict.Dict[string, int64] // absolute expiry, unix ms
	ks      *Keyspace
}

// Keyspace owns every Database plus the cross-cutting bits (LRU clock,
// replica flag, stats, listeners) that a lookup or reap needs to touch.
type Keyspace struct {
	dbs          []*Database
	propagator   Propagator
	events       EventBus
	writeL       WriteListener
	isReplica    bool
	clock        uint32
	stats        Stats
	nowMs        func() int64
	nowMicro     func() int64
	expireCursor int
	lastFastMs   int64
}

// New builds a Keyspace with n databases (spec.md default 16).
func New(n int, propagator Propagator, events EventBus) *Keyspace {
	if n <= 0 {
		n = 16
	}
	k := &Keyspace{
		propagator: propagator,
		events:     events,
		nowMs:      func() int64 { return time.Now().UnixMilli() },
		nowMicro:   func() int64 { return time.Now().UnixMicro() },
	}
	k.dbs = make([]*Database, n)
	for i := range k.dbs {
		k.dbs[i] = &Database{
			ID:      i,
			dict:    dict.New[string, *value.Cell](dict.HashString),
			expires: dict.New[string, int64](dict.HashString),
			ks:      k,
		}
	}
	return k
}

// SetWriteListener wires the transaction/watch layer's touch hook.
func (k *Keyspace) SetWriteListener(l WriteListener) { k.writeL = l }

// SetClockSource overrides the wall-clock functions, used by tests for
// determinism; cron does not call it, so the keyspace reads the wall
// clock on every lookup.
func (k *Keyspace) SetClockSource(nowMs, nowMicro func() int64) {
	if nowMs != nil {
		k.nowMs = nowMs
	}
	if nowMicro != nil {
		k.nowMicro = nowMicro
	}
}

// SetReplica marks this instance as a replica: lookups never actively
// reap expired keys themselves (spec.md §4.C — "a slave instance must
// NOT actively expire keys itself; it waits for the synthetic deletion
// from its master to preserve order").
func (k *Keyspace) SetReplica(replica bool) { k.isReplica = replica }

func (k *Keyspace) NumDBs() int { return len(k.dbs) }

func (k *Keyspace) DB(id int) *Database {
	if id < 0 || id >= len(k.dbs) {
		return nil
	}
	return k.dbs[id]
}

func (k *Keyspace) Stats() Stats { return k.stats }

// TickLRUClock advances the approximate-LRU clock, invoked by cron.
func (k *Keyspace) TickLRUClock() { k.clock++ }

func (k *Keyspace) Clock() uint32 { return k.clock }

func (db *Database) touch(key string) {
	if db.ks.writeL != nil {
		db.ks.writeL.OnWrite(db.ID, key)
	}
}

// Touch fires the write-listener hook for key without otherwise
// mutating the database. Command handlers that mutate a *value.Cell
// in place (APPEND, LPUSH, HSET, ...) rather than calling Set/Delete
// must call this themselves so WATCH invalidation still fires.
func (db *Database) Touch(key string) { db.touch(key) }

// lookup is the shared body of LookupForRead/LookupForWrite: it reaps
// an expired key before reporting it absent, exactly as spec.md's
// "A read that observes an expired key must reap it ... before
// returning absent" requires. The open question from spec.md §9 is
// preserved exactly: expiry is "now > t", strictly greater, so a key
// whose expiry equals the current millisecond is still live.
func (db *Database) lookup(key string) (*value.Cell, bool) {
	if exp, ok := db.expires.Find(key); ok {
		now := db.ks.nowMs()
		if now > exp {
			if db.ks.isReplica {
				// Replica: logically absent, but do not mutate state;
				// wait for the master's propagated DEL.
				return nil, false
			}
			db.reap(key)
			return nil, false
		}
	}
	c, ok := db.dict.Find(key)
	if !ok {
		return nil, false
	}
	c.Touch(db.ks.clock)
	return c, true
}

// LookupForRead returns key's value, reaping it first if expired.
func (db *Database) LookupForRead(key string) (*value.Cell, bool) { return db.lookup(key) }

// LookupForWrite is semantically identical for this implementation
// (there is no separate write-intent bookkeeping beyond what Touch
// already captures); kept distinct from LookupForRead so command
// handlers document intent and so a future write-specific concern (e.g.
// copy-on-write before mutating a shared Cell) has an obvious seam.
func (db *Database) LookupForWrite(key string) (*value.Cell, bool) { return db.lookup(key) }

// reap deletes an expired or evicted key and fans the deletion out to
// the propagation sink, the keyspace-event bus, the stats counter, and
// the watch-invalidation listener.
func (db *Database) reap(key string) {
	_, _ = db.dict.DeleteNoFree(key)
	_ = db.expires.Delete(key)
	db.ks.stats.ExpiredKeys++
	if db.ks.propagator != nil {
		db.ks.propagator.PropagateDelete(db.ID, key)
	}
	if db.ks.events != nil {
		db.ks.events.Notify(db.ID, EventExpired, key)
	}
	db.touch(key)
}

// Evict deletes key for the eviction engine (internal/eviction), using
// the "evicted" event name and counter instead of "expired".
func (db *Database) Evict(key string) {
	_, _ = db.dict.DeleteNoFree(key)
	_ = db.expires.Delete(key)
	db.ks.stats.EvictedKeys++
	if db.ks.propagator != nil {
		db.ks.propagator.PropagateDelete(db.ID, key)
	}
	if db.ks.events != nil {
		db.ks.events.Notify(db.ID, EventEvicted, key)
	}
	db.touch(key)
}

// Set stores cell under key, clearing any existing TTL unless
// expireAtMs > 0 sets a new one.
func (db *Database) Set(key string, cell *value.Cell, expireAtMs int64) {
	db.dict.InsertOrReplace(key, cell)
	if expireAtMs > 0 {
		db.expires.InsertOrReplace(key, expireAtMs)
	} else {
		_ = db.expires.Delete(key)
	}
	cell.Touch(db.ks.clock)
	db.touch(key)
}

// Delete removes key, returning whether it was present. Deleting a
// missing key is a no-op, not an error (spec.md's idempotent-delete
// convention, carried from the teacher's storage.Store.Delete).
func (db *Database) Delete(key string) bool {
	err := db.dict.Delete(key)
	_ = db.expires.Delete(key)
	db.touch(key)
	return err == nil
}

// Exists reports presence without the write-touch side effect beyond
// what lazy expiration itself requires.
func (db *Database) Exists(key string) bool {
	_, ok := db.LookupForRead(key)
	return ok
}

// ExpireAt sets key's absolute expiry in unix milliseconds, returning
// false if the key does not exist.
func (db *Database) ExpireAt(key string, whenMs int64) bool {
	if _, ok := db.dict.Find(key); !ok {
		return false
	}
	db.expires.InsertOrReplace(key, whenMs)
	db.touch(key)
	return true
}

// Persist removes key's TTL, returning whether it had one.
func (db *Database) Persist(key string) bool {
	err := db.expires.Delete(key)
	if err == nil {
		db.touch(key)
	}
	return err == nil
}

// TTLMillis returns the remaining TTL in ms, -1 if key has no TTL, -2
// if key does not exist (the conventional trio INCR/TTL callers expect).
func (db *Database) TTLMillis(key string) int64 {
	if _, ok := db.dict.Find(key); !ok {
		return -2
	}
	exp, ok := db.expires.Find(key)
	if !ok {
		return -1
	}
	remaining := exp - db.ks.nowMs()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpireAtRaw returns key's absolute expiry in unix ms exactly as
// stored, with no "now" arithmetic, so callers like RENAME can carry a
// TTL over to a new key name without rounding.
func (db *Database) ExpireAtRaw(key string) (int64, bool) {
	return db.expires.Find(key)
}

// Size returns the number of live keys (lazily-expired keys still
// counted as live until a lookup or the active cycle reaps them,
// exactly mirroring Redis's DBSIZE semantics).
func (db *Database) Size() int { return db.dict.Len() }

// RandomKey returns one key chosen at random, or "" if the database is
// empty.
func (db *Database) RandomKey() (string, bool) {
	k, _, ok := db.dict.RandomEntry()
	return k, ok
}

// Keys returns every key matching a glob pattern (the same subset of
// glob syntax path.Match supports: *, ?, and [...] classes).
func (db *Database) Keys(pattern string) []string {
	var out []string
	db.dict.ForEach(func(k string, _ *value.Cell) bool {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
		return true
	})
	return out
}

// Scan is the cursor-based iteration backing the SCAN command.
func (db *Database) Scan(cursor uint64, count int) (keys []string, next uint64) {
	remaining := count
	if remaining <= 0 {
		remaining = 10
	}
	next = db.dict.Scan(cursor, func(k string, _ *value.Cell) {
		keys = append(keys, k)
	})
	return keys, next
}

// FlushDB clears every key in this database, touching each one first so
// WATCH invalidation fires exactly as spec.md's FLUSHDB/FLUSHALL rule
// requires ("mark DIRTY_CAS for every watched key that exists in the
// flushed databases").
func (db *Database) FlushDB() {
	db.dict.ForEach(func(k string, _ *value.Cell) bool {
		db.touch(k)
		return true
	})
	db.dict = dict.New[string, *value.Cell](dict.HashString)
	db.expires = dict.New[string, int64](dict.HashString)
}

// ExpiresDict exposes the raw expires dict for the eviction engine's
// sampling. Exported because the eviction engine lives in a sibling
// package that needs direct access to RandomEntries without keyspace
// re-exposing every dict method individually.
func (db *Database) ExpiresDict() *dict.Dict[string, int64] { return db.expires }

// Dict exposes the raw key/value dict, for the same reason.
func (db *Database) Dict() *dict.Dict[string, *value.Cell] { return db.dict }
