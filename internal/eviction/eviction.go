// Package eviction implements spec.md §4.D: picking keys to delete when
// the configured memory ceiling is exceeded, using the same "sample a
// few candidates, keep a small pool of the best ones seen so far"
// strategy as the source's maxmemory policy, translated into ordinary
// Go slices instead of a hand-rolled sorted array.
//
// Grounded on internal/keyspace's Database (candidate source) and on the
// teacher's internal/shard/shard.go OwnsKey, whose FNV-1a hash already
// established this repo's sampling-by-hash idiom.
package eviction

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/pwanbul/redis-3.0/internal/keyspace"
)

// Policy selects which keys are eligible for eviction and how idle time
// is estimated, mirroring spec.md's six maxmemory policies.
type Policy int

const (
	NoEviction Policy = iota
	AllKeysLRU
	VolatileLRU
	AllKeysRandom
	VolatileRandom
	VolatileTTL
)

// ErrOutOfMemory is returned by Reclaim when NoEviction is configured,
// or when a full sampling pass frees nothing (every database empty of
// eligible candidates).
var ErrOutOfMemory = errors.New("eviction: out of memory")

// ReplicaBufferFlusher is the narrow slice of propagation.Sink the
// eviction loop calls periodically, matching spec.md's "a long eviction
// loop must periodically flush the replica output buffers so a slow
// reclaim doesn't starve replication" rule.
type ReplicaBufferFlusher interface {
	FlushReplicaBuffers()
}

// candidate is one pool slot: a key in a specific database together
// with its idle estimate (LRU policies) or remaining TTL (VolatileTTL).
type candidate struct {
	dbID int
	key  string
	idle uint32 // larger = more evictable
}

// poolSize is the fixed candidate pool width spec.md names (16).
const poolSize = 16

// Pool holds up to poolSize candidates, sorted ascending by idle so the
// best eviction target is always the last element.
type Pool struct {
	slots []candidate
}

func newPool() *Pool { return &Pool{slots: make([]candidate, 0, poolSize)} }

// offer inserts c in idle-ascending order and, if that pushes the pool
// past poolSize, drops the weakest (least idle) slot — the
// populate/displace rule spec.md describes.
func (p *Pool) offer(c candidate) {
	i := sort.Search(len(p.slots), func(i int) bool { return p.slots[i].idle >= c.idle })
	p.slots = append(p.slots, candidate{})
	copy(p.slots[i+1:], p.slots[i:])
	p.slots[i] = c
	if len(p.slots) > poolSize {
		p.slots = p.slots[1:]
	}
}

func (p *Pool) best() (candidate, bool) {
	if len(p.slots) == 0 {
		return candidate{}, false
	}
	c := p.slots[len(p.slots)-1]
	p.slots = p.slots[:len(p.slots)-1]
	return c, true
}

func (p *Pool) removeKey(dbID int, key string) {
	for i, c := range p.slots {
		if c.dbID == dbID && c.key == key {
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}

// Evictor drives spec.md's Reclaim(need) loop.
type Evictor struct {
	Policy      Policy
	SampleSize  int
	MemoryLimit int64
	MemoryUsage func() int64
	Clock       func() uint32

	ks       *keyspace.Keyspace
	pool     *Pool
	flusher  ReplicaBufferFlusher
	dbCursor int
	evicted  uint64
}

// New builds an Evictor. sampleSize<=0 defaults to 5, spec.md's default.
func New(ks *keyspace.Keyspace, policy Policy, memoryLimit int64, memoryUsage func() int64, clock func() uint32, flusher ReplicaBufferFlusher) *Evictor {
	return &Evictor{
		Policy:      policy,
		SampleSize:  5,
		MemoryLimit: memoryLimit,
		MemoryUsage: memoryUsage,
		Clock:       clock,
		ks:          ks,
		pool:        newPool(),
		flusher:     flusher,
	}
}

func (e *Evictor) EvictedKeys() uint64 { return e.evicted }

// isVolatile reports whether the policy only considers keys that carry
// a TTL.
func (p Policy) isVolatile() bool {
	return p == VolatileLRU || p == VolatileRandom || p == VolatileTTL
}

func (p Policy) isRandom() bool {
	return p == AllKeysRandom || p == VolatileRandom
}

// Reclaim evicts keys until MemoryUsage() falls to or below need (a
// target ceiling, typically MemoryLimit) or returns ErrOutOfMemory if
// eviction cannot proceed or stalls.
func (e *Evictor) Reclaim(need int64) error {
	if e.Policy == NoEviction {
		if e.MemoryUsage() > need {
			return ErrOutOfMemory
		}
		return nil
	}

	n := e.ks.NumDBs()
	if n == 0 {
		return ErrOutOfMemory
	}

	passes := 0
	for e.MemoryUsage() > need {
		freedThisPass := false
		for attempt := 0; attempt < n; attempt++ {
			dbID := e.dbCursor % n
			e.dbCursor++
			db := e.ks.DB(dbID)
			if e.sampleInto(dbID, db) {
				freedThisPass = true
			}
			if c, ok := e.pool.best(); ok {
				db := e.ks.DB(c.dbID)
				db.Evict(c.key)
				e.evicted++
				freedThisPass = true
			}
			if e.MemoryUsage() <= need {
				return nil
			}
		}
		if !freedThisPass {
			return ErrOutOfMemory
		}
		passes++
		if passes%4 == 0 && e.flusher != nil {
			e.flusher.FlushReplicaBuffers()
		}
	}
	return nil
}

// sampleInto draws up to SampleSize random candidate keys from db
// (restricted to keys with a TTL for volatile policies) and offers them
// to the pool, scored by idle time (LRU policies) or remaining TTL
// (VolatileTTL, where "idle" is inverted: less TTL remaining = more
// evictable = larger score).
func (e *Evictor) sampleInto(dbID int, db *keyspace.Database) bool {
	if e.Policy.isRandom() {
		var key string
		var ok bool
		if e.Policy == VolatileRandom {
			if kv, has := firstExpireEntry(db); has {
				key, ok = kv, true
			}
		} else {
			key, ok = db.RandomKey()
		}
		if !ok {
			return false
		}
		e.pool.offer(candidate{dbID: dbID, key: key, idle: uint32(rand.Intn(1 << 20))})
		return true
	}

	size := e.SampleSize
	if size <= 0 {
		size = 5
	}

	if e.Policy.isVolatile() {
		entries := db.ExpiresDict().RandomEntries(size)
		if len(entries) == 0 {
			return false
		}
		// Expiry deadlines are absolute unix ms, so compare them against
		// the wall clock, not the LRU clock.
		now := time.Now().UnixMilli()
		for _, kv := range entries {
			var idle uint32
			if e.Policy == VolatileTTL {
				remaining := kv.Val - now
				if remaining < 0 {
					remaining = 0
				}
				if remaining > 0x7fffffff {
					remaining = 0x7fffffff
				}
				// Less remaining TTL must score as MORE evictable, so
				// invert: a key with 0 ms left gets the max idle score.
				idle = uint32(1<<31) - uint32(remaining)
			} else {
				cell, ok := db.Dict().Find(kv.Key)
				if !ok {
					continue
				}
				idle = cell.IdleSince(e.clockOr0())
			}
			e.pool.offer(candidate{dbID: dbID, key: kv.Key, idle: idle})
		}
		return len(entries) > 0
	}

	// AllKeysLRU
	entries := db.Dict().RandomEntries(size)
	if len(entries) == 0 {
		return false
	}
	for _, kv := range entries {
		e.pool.offer(candidate{dbID: dbID, key: kv.Key, idle: kv.Val.IdleSince(e.clockOr0())})
	}
	return true
}

func (e *Evictor) clockOr0() uint32 {
	if e.Clock == nil {
		return 0
	}
	return e.Clock()
}

// firstExpireEntry is a small helper for VolatileRandom: any key drawn
// from the expires dict already satisfies "has a TTL".
func firstExpireEntry(db *keyspace.Database) (string, bool) {
	entries := db.ExpiresDict().RandomEntries(1)
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].Key, true
}
