package eviction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/value"
)

type noopFlusher struct{ calls int }

func (f *noopFlusher) FlushReplicaBuffers() { f.calls++ }

func TestPoolKeepsOnlyStrongestCandidates(t *testing.T) {
	p := newPool()
	for i := 0; i < poolSize+5; i++ {
		p.offer(candidate{key: fmt.Sprintf("k%d", i), idle: uint32(i)})
	}
	assert.Len(t, p.slots, poolSize)
	best, ok := p.best()
	require.True(t, ok)
	assert.Equal(t, uint32(poolSize+4), best.idle, "best() must return the most idle candidate")
}

func TestNoEvictionReturnsOutOfMemoryOverLimit(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	e := New(ks, NoEviction, 100, func() int64 { return 200 }, nil, nil)
	assert.ErrorIs(t, e.Reclaim(100), ErrOutOfMemory)
}

func TestNoEvictionAllowsUnderLimit(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	e := New(ks, NoEviction, 100, func() int64 { return 50 }, nil, nil)
	assert.NoError(t, e.Reclaim(100))
}

// usageMinusEvicted models a toy "one unit of memory per key" store:
// each eviction frees exactly one unit, so the loop in Reclaim makes
// real, observable progress toward need.
func usageMinusEvicted(e **Evictor, total int64) func() int64 {
	return func() int64 {
		if *e == nil {
			return total
		}
		return total - int64((*e).EvictedKeys())
	}
}

func TestReclaimAllKeysLRUEvictsUntilUnderLimit(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	db := ks.DB(0)
	for i := 0; i < 50; i++ {
		db.Set(fmt.Sprintf("key-%d", i), value.NewString("v"), 0)
	}

	var e *Evictor
	usage := usageMinusEvicted(&e, 50)
	e = New(ks, AllKeysLRU, 10, usage, func() uint32 { return 0 }, nil)

	require.NoError(t, e.Reclaim(10))
	assert.Equal(t, int64(10), usage())
	assert.Equal(t, uint64(40), e.EvictedKeys())
}

func TestReclaimVolatileLRUOnlyTouchesKeysWithTTL(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	db := ks.DB(0)
	for i := 0; i < 10; i++ {
		db.Set(fmt.Sprintf("persistent-%d", i), value.NewString("v"), 0)
	}
	for i := 0; i < 10; i++ {
		db.Set(fmt.Sprintf("volatile-%d", i), value.NewString("v"), 99999999)
	}

	var e *Evictor
	usage := usageMinusEvicted(&e, 20)
	e = New(ks, VolatileLRU, 15, usage, func() uint32 { return 0 }, nil)

	require.NoError(t, e.Reclaim(15))
	for i := 0; i < 10; i++ {
		assert.True(t, db.Exists(fmt.Sprintf("persistent-%d", i)), "non-volatile keys must never be evicted under VolatileLRU")
	}
}

func TestReclaimOutOfMemoryWhenNoCandidates(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	e := New(ks, AllKeysLRU, 10, func() int64 { return 100 }, func() uint32 { return 0 }, nil)
	assert.ErrorIs(t, e.Reclaim(0), ErrOutOfMemory)
}

func TestReclaimFlushesReplicaBuffersPeriodically(t *testing.T) {
	ks := keyspace.New(1, nil, nil)
	db := ks.DB(0)
	for i := 0; i < 200; i++ {
		db.Set(fmt.Sprintf("k%d", i), value.NewString("v"), 0)
	}
	flusher := &noopFlusher{}

	var e *Evictor
	usage := usageMinusEvicted(&e, 200)
	e = New(ks, AllKeysRandom, 1, usage, func() uint32 { return 0 }, flusher)

	require.NoError(t, e.Reclaim(1))
	assert.Greater(t, flusher.calls, 0)
}
