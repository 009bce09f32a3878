package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDetectsTouchBeforeExec(t *testing.T) {
	tr := NewTracker()
	s := NewSession(tr)
	s.Watch(0, "foo")

	tr.OnWrite(0, "foo")

	require.True(t, s.MultiStart())
	s.QueueCommand("GET", []string{"foo"}, true)
	res := s.Exec()
	assert.True(t, res.Aborted)
}

func TestWatchNotTouchedExecSucceeds(t *testing.T) {
	tr := NewTracker()
	s := NewSession(tr)
	s.Watch(0, "foo")

	require.True(t, s.MultiStart())
	s.QueueCommand("GET", []string{"foo"}, true)
	res := s.Exec()
	assert.False(t, res.Aborted)
	assert.Len(t, res.Queue, 1)
}

func TestWriteToUnwatchedKeyDoesNotAbort(t *testing.T) {
	tr := NewTracker()
	s := NewSession(tr)
	s.Watch(0, "foo")

	tr.OnWrite(0, "bar")

	require.True(t, s.MultiStart())
	res := s.Exec()
	assert.False(t, res.Aborted)
}

func TestUnwatchClearsDirtyAndRegistration(t *testing.T) {
	tr := NewTracker()
	s := NewSession(tr)
	s.Watch(0, "foo")
	tr.OnWrite(0, "foo")
	s.Unwatch()

	// After Unwatch, a further write to foo must not re-dirty the session
	// because it is no longer registered.
	tr.OnWrite(0, "foo")
	require.True(t, s.MultiStart())
	res := s.Exec()
	assert.False(t, res.Aborted)
}

func TestDiscardClearsQueueAndWatches(t *testing.T) {
	tr := NewTracker()
	s := NewSession(tr)
	s.Watch(0, "foo")
	require.True(t, s.MultiStart())
	s.QueueCommand("SET", []string{"foo", "1"}, true)
	s.Discard()

	assert.False(t, s.InMulti())
	require.True(t, s.MultiStart())
	res := s.Exec()
	assert.Empty(t, res.Queue)
}

func TestNestedMultiRejected(t *testing.T) {
	s := NewSession(NewTracker())
	require.True(t, s.MultiStart())
	assert.False(t, s.MultiStart(), "MULTI inside MULTI must be rejected")
}

func TestQueueErrorAbortsExec(t *testing.T) {
	s := NewSession(NewTracker())
	require.True(t, s.MultiStart())
	s.QueueCommand("BOGUS", nil, false)
	res := s.Exec()
	assert.True(t, res.QueueErr)
}

func TestMultipleSessionsWatchingSameKeyAllMarkedDirty(t *testing.T) {
	tr := NewTracker()
	a := NewSession(tr)
	b := NewSession(tr)
	a.Watch(0, "shared")
	b.Watch(0, "shared")

	tr.OnWrite(0, "shared")

	require.True(t, a.MultiStart())
	require.True(t, b.MultiStart())
	assert.True(t, a.Exec().Aborted)
	assert.True(t, b.Exec().Aborted)
}
