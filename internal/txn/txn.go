// Package txn implements spec.md §4.F: the optimistic-concurrency layer
// (WATCH/MULTI/EXEC/DISCARD/UNWATCH) that sits on top of the keyspace.
//
// Grounded on internal/coordinator's ShardRegistry: the same "one RWMutex
// guards a map, readers get copies, writers hold the lock as briefly as
// possible" idiom is reused here for Tracker's key->watcher-set map.
package txn

import (
	"fmt"
	"sync"
)

// QueuedCommand is one command buffered between MULTI and EXEC.
type QueuedCommand struct {
	Name string
	Args []string
}

// Tracker fans keyspace writes out to every Session watching the
// written key. It implements keyspace.WriteListener (kept as a
// structural match rather than an import to avoid a txn->keyspace
// dependency cycle with keyspace's own command-layer callers).
type Tracker struct {
	mu       sync.RWMutex
	watchers map[string]map[*Session]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{watchers: make(map[string]map[*Session]struct{})}
}

func watchKey(dbID int, key string) string {
	return fmt.Sprintf("%d:%s", dbID, key)
}

// OnWrite marks every session watching dbID/key dirty. Called by the
// keyspace for every mutation, in any database, for any reason (spec.md
// §4.F: "any mutation ... must call touch(D, K)").
func (t *Tracker) OnWrite(dbID int, key string) {
	wk := watchKey(dbID, key)
	t.mu.RLock()
	set := t.watchers[wk]
	sessions := make([]*Session, 0, len(set))
	for s := range set {
		sessions = append(sessions, s)
	}
	t.mu.RUnlock()
	for _, s := range sessions {
		s.markDirty()
	}
}

func (t *Tracker) addWatch(s *Session, dbID int, key string) {
	wk := watchKey(dbID, key)
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.watchers[wk]
	if !ok {
		set = make(map[*Session]struct{})
		t.watchers[wk] = set
	}
	set[s] = struct{}{}
}

func (t *Tracker) removeWatch(s *Session, dbID int, key string) {
	wk := watchKey(dbID, key)
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.watchers[wk]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(t.watchers, wk)
	}
}

// Session is one client connection's transaction state: the keys it is
// watching, whether it is inside MULTI, and its queued command buffer.
type Session struct {
	mu      sync.Mutex
	tracker *Tracker

	watched  []watchedKey
	dirty    bool
	inMulti  bool
	queueErr bool
	queue    []QueuedCommand
}

type watchedKey struct {
	dbID int
	key  string
}

// NewSession returns a fresh, non-watching, non-MULTI session bound to
// tracker.
func NewSession(tracker *Tracker) *Session {
	return &Session{tracker: tracker}
}

func (s *Session) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Watch registers a watch on dbID/key. It registers even inside MULTI:
// "WATCH inside MULTI is an error" is rejected by the caller (the WATCH
// command handler) before Watch is reached, and Watch itself does not
// re-check InMulti so the handler stays the single place that enforces
// it.
func (s *Session) Watch(dbID int, key string) {
	s.mu.Lock()
	s.watched = append(s.watched, watchedKey{dbID, key})
	s.mu.Unlock()
	s.tracker.addWatch(s, dbID, key)
}

// Unwatch clears every watch this session holds and resets its dirty
// flag, used by UNWATCH, DISCARD, and after EXEC (successful or
// aborted) — watches never survive a transaction boundary.
func (s *Session) Unwatch() {
	s.mu.Lock()
	watched := s.watched
	s.watched = nil
	s.dirty = false
	s.mu.Unlock()
	for _, w := range watched {
		s.tracker.removeWatch(s, w.dbID, w.key)
	}
}

// MultiStart enters MULTI, returning false if already inside one.
func (s *Session) MultiStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inMulti {
		return false
	}
	s.inMulti = true
	s.queue = nil
	s.queueErr = false
	return true
}

// InMulti reports whether the session is buffering commands.
func (s *Session) InMulti() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inMulti
}

// QueueCommand appends a command to the buffer, or records that the
// transaction must abort (EXECABORT) because the queued command itself
// was malformed/unknown — the caller (the dispatcher) decides what
// "malformed" means and passes valid=false in that case.
func (s *Session) QueueCommand(name string, args []string, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !valid {
		s.queueErr = true
		return
	}
	s.queue = append(s.queue, QueuedCommand{Name: name, Args: args})
}

// Discard exits MULTI without executing, clearing the queue and every
// watch.
func (s *Session) Discard() {
	s.mu.Lock()
	s.inMulti = false
	s.queue = nil
	s.queueErr = false
	s.mu.Unlock()
	s.Unwatch()
}

// ExecResult is what EXEC needs to decide how to respond.
type ExecResult struct {
	Aborted  bool // a watched key was touched: EXEC returns a null array
	QueueErr bool // a bad command was queued: EXEC returns EXECABORT
	Queue    []QueuedCommand
}

// Exec ends MULTI and returns the buffered commands, or signals that
// the transaction must abort because a watched key changed or a queued
// command was invalid. Watches are always cleared, win or lose.
func (s *Session) Exec() ExecResult {
	s.mu.Lock()
	res := ExecResult{Aborted: s.dirty, QueueErr: s.queueErr, Queue: s.queue}
	s.inMulti = false
	s.queue = nil
	s.queueErr = false
	s.mu.Unlock()
	s.Unwatch()
	return res
}
