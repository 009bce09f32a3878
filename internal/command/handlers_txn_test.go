package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecBracketsWriteBatchWithMultiExecSentinels(t *testing.T) {
	d, sink := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "MULTI", nil)
	d.Dispatch(c, "SET", []string{"foo", "bar"})
	reply := d.Dispatch(c, "EXEC", nil)
	require.Equal(t, ReplyArray, reply.Kind)

	require.Len(t, sink.calls, 3)
	assert.Equal(t, "MULTI", sink.calls[0].name)
	assert.Equal(t, "SET", sink.calls[1].name)
	assert.Equal(t, "EXEC", sink.calls[2].name)
}

func TestExecOfReadOnlyBatchSkipsSentinels(t *testing.T) {
	d, sink := newTestDispatcher(t)
	c := newTestClient(d)

	d.Dispatch(c, "MULTI", nil)
	d.Dispatch(c, "GET", []string{"foo"})
	reply := d.Dispatch(c, "EXEC", nil)
	require.Equal(t, ReplyArray, reply.Kind)

	assert.Empty(t, sink.calls)
}
