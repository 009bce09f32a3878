package dict

// Scan implements the cursor-based scan operation from spec.md §3: a
// reverse-binary-increment cursor stepping scheme that stays correct
// across incremental resizes, visiting every key present at the start
// of a scan at least once (with bounded duplicates), without requiring
// a snapshot of the whole table. This is a direct port of the classic
// dictScan algorithm (see original_source/src/dict.h's documented
// contract), generalized over Dict's generic key/value types.
//
// fn is invoked once per entry found at the cursor's current bucket(s);
// returning the next cursor to pass on the following call. A returned
// cursor of 0 means the scan has completed a full cycle.
func (d *Dict[K, V]) Scan(cursor uint64, fn func(K, V)) uint64 {
	if d.Len() == 0 {
		return 0
	}

	if !d.Rehashing() {
		m0 := uint64(d.t0.size() - 1)
		emitBucket(d.t0, cursor&m0, fn)
		return nextCursor(cursor, m0, m0)
	}

	small, big := d.t0, d.t1
	if small.size() > big.size() {
		small, big = big, small
	}
	m0 := uint64(small.size() - 1)
	m1 := uint64(big.size() - 1)

	emitBucket(small, cursor&m0, fn)

	v := cursor
	for {
		emitBucket(big, v&m1, fn)
		v = ((v | m0) + 1) &^ m0 | (v & m0)
		if v&(m0^m1) == 0 {
			break
		}
	}
	return nextCursor(v, m0, m0)
}

func emitBucket[K comparable, V any](t *table[K, V], idx uint64, fn func(K, V)) {
	for e := t.buckets[idx]; e != nil; {
		next := e.next
		fn(e.key, e.val)
		e = next
	}
}

// nextCursor applies the reverse-binary-increment step: set all bits
// outside mask, reverse, increment, reverse again.
func nextCursor(v, m0, _ uint64) uint64 {
	v |= ^m0
	v = reverseBits(v)
	v++
	v = reverseBits(v)
	return v
}

func reverseBits(v uint64) uint64 {
	var r uint64
	for i := 0; i < 64; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
