package dict

// Iterator walks every entry in a Dict. Two modes are supported, as
// spec.md §3 requires:
//
//   - Safe: pauses rehash progress for the iterator's lifetime so
//     concurrent Insert/Delete against the dict during iteration is
//     tolerated.
//   - Unsafe: does not pause anything (cheaper), but records the dict's
//     generation at creation and checks it again on Close, so any
//     structural mutation during an unsafe iteration is detected rather
//     than silently producing undefined results.
type Iterator[K comparable, V any] struct {
	d           *Dict[K, V]
	safe        bool
	fingerprint uint64

	tables  []*table[K, V]
	ti      int
	bi      int
	cur     *entry[K, V]
	started bool
}

// NewIterator returns a fresh iterator. Callers must call Close when
// done, particularly for safe iterators (it resumes rehashing).
func (d *Dict[K, V]) NewIterator(safe bool) *Iterator[K, V] {
	it := &Iterator[K, V]{d: d, safe: safe}
	if safe {
		d.SetRehashPaused(true)
	} else {
		it.fingerprint = d.generation
	}
	tables := []*table[K, V]{d.t0}
	if d.Rehashing() {
		tables = append(tables, d.t1)
	}
	it.tables = tables
	return it
}

// Next advances the iterator, returning false once exhausted.
func (it *Iterator[K, V]) Next() (K, V, bool) {
	for {
		if it.cur != nil {
			it.cur = it.cur.next
		}
		for it.cur == nil {
			if it.ti >= len(it.tables) {
				var zk K
				var zv V
				return zk, zv, false
			}
			t := it.tables[it.ti]
			if it.bi >= t.size() {
				it.ti++
				it.bi = 0
				continue
			}
			it.cur = t.buckets[it.bi]
			it.bi++
		}
		if it.cur != nil {
			return it.cur.key, it.cur.val, true
		}
	}
}

// Close releases the iterator. For an unsafe iterator it returns false
// if the dict was mutated during iteration (misuse detected via the
// generation fingerprint); callers are expected to treat a false return
// as a programming error to fix, not a condition to recover from.
func (it *Iterator[K, V]) Close() bool {
	if it.safe {
		it.d.SetRehashPaused(false)
		return true
	}
	return it.fingerprint == it.d.generation
}
