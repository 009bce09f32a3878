// Package value defines the polymorphic data cell stored in the keyspace.
//
// A Cell is tagged by Kind and carries, alongside the payload, the
// bookkeeping the rest of the core needs without reaching into the
// payload itself: an approximate-LRU clock stamp (for the eviction
// engine, internal/eviction) and a reference count (shared constants
// are never freed; see Shared below).
package value

import (
	"container/list"
	"sort"
)

// Kind tags the type of data held by a Cell.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// lruBits is the width of the approximate-LRU clock stamp. The source
// uses a 24-bit field packed into a larger struct; we keep the same
// width so the wrap-around behavior described in spec.md survives.
const lruBits = 24
const lruMask = 1<<lruBits - 1

// Cell is the unit of storage for every key in a Database. Ownership is
// exclusive: the keyspace owns the Cell unless it is marked shared
// (see NewShared), in which case the Cell is never mutated or
// freed in place — callers holding a shared Cell must copy-on-write.
type Cell struct {
	Str   string
	List  *list.List
	Set   map[string]struct{}
	Hash  map[string]string
	ZSet  *ZSet
	Kind  Kind
	lru   uint32 // low 24 bits significant
	refs  int32
	shared bool
}

// NewString wraps s as a string Cell.
func NewString(s string) *Cell { return &Cell{Kind: KindString, Str: s, refs: 1} }

// NewList returns an empty list Cell, backed by container/list — the
// idiomatic Go replacement for the source's hand-rolled adlist.c doubly
// linked list (see SPEC_FULL.md §9.1).
func NewList() *Cell { return &Cell{Kind: KindList, List: list.New(), refs: 1} }

// NewSet returns an empty set Cell.
func NewSet() *Cell { return &Cell{Kind: KindSet, Set: make(map[string]struct{}), refs: 1} }

// NewHash returns an empty hash Cell.
func NewHash() *Cell { return &Cell{Kind: KindHash, Hash: make(map[string]string), refs: 1} }

// NewZSet returns an empty sorted-set Cell.
func NewZSet() *Cell { return &Cell{Kind: KindZSet, ZSet: newZSet(), refs: 1} }

// NewShared marks s as a shared constant: it is never mutated and never
// freed, the Go translation of the source's interned small-integer and
// shared-reply-fragment optimization (spec.md §3, "Value").
func NewShared(s string) *Cell { return &Cell{Kind: KindString, Str: s, refs: 1, shared: true} }

// Shared reports whether this Cell must not be mutated in place.
func (c *Cell) Shared() bool { return c.shared }

// Touch stamps the Cell with the current approximate-LRU clock value,
// truncated to the low 24 bits exactly as spec.md describes.
func (c *Cell) Touch(clock uint32) { c.lru = clock & lruMask }

// IdleSince returns the idle estimate given the current clock value,
// using wrap-aware subtraction modulo 2^24 so a clock wrap since the
// last touch still yields a sane idle time for at most one wrap period;
// a key idle for longer than one wrap period reads as less idle. This is
// spec.md §9's documented open question: not "fixed", carried as-is.
func (c *Cell) IdleSince(now uint32) uint32 {
	now &= lruMask
	if now >= c.lru {
		return now - c.lru
	}
	return (lruMask + 1) - c.lru + now
}

// TypeName reports the RESP-visible type name used by the TYPE command.
func (c *Cell) TypeName() string { return c.Kind.String() }

// ZSet is a minimal sorted set: a member -> score map with no stored
// index; Range sorts the members on every call. It exists so the eviction engine's volatile-ttl
// sampling and the generic KEYS/SCAN commands have more than one
// non-string encoding to exercise, per SPEC_FULL.md §9.1.
type ZSet struct {
	scores map[string]float64
}

func newZSet() *ZSet { return &ZSet{scores: make(map[string]float64)} }

func (z *ZSet) Add(member string, score float64) { z.scores[member] = score }

func (z *ZSet) Score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

func (z *ZSet) Remove(member string) { delete(z.scores, member) }

func (z *ZSet) Len() int { return len(z.scores) }

// Range returns members sorted by ascending score, ties broken
// lexicographically for determinism.
func (z *ZSet) Range() []string {
	members := make([]string, 0, len(z.scores))
	for m := range z.scores {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := z.scores[members[i]], z.scores[members[j]]
		if si == sj {
			return members[i] < members[j]
		}
		return si < sj
	})
	return members
}
