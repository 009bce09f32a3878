package proto

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwanbul/redis-3.0/internal/command"
)

func TestReadCommandParsesInlineRequest(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("PING\r\n"))
	args, err := ReadCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"PING"}, args)
}

func TestReadCommandParsesInlineRequestWithMultipleFields(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("SET foo bar\r\n"))
	args, err := ReadCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "foo", "bar"}, args)
}

func TestReadCommandParsesMultibulkRequest(t *testing.T) {
	raw := "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	args, err := ReadCommand(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"SET", "foo", "bar"}, args)
}

func TestReadCommandRejectsEmptyInline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\r\n"))
	_, err := ReadCommand(r)
	assert.Error(t, err)
}

func TestReadCommandRejectsBadMultibulkCount(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*-5\r\n"))
	_, err := ReadCommand(r)
	assert.Error(t, err)
}

func TestWriteReplySimpleString(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.OK()))
	require.NoError(t, w.Flush())
	assert.Equal(t, "+OK\r\n", buf.String())
}

func TestWriteReplyError(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Err("ERR boom")))
	require.NoError(t, w.Flush())
	assert.Equal(t, "-ERR boom\r\n", buf.String())
}

func TestWriteReplyInteger(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Integer(42)))
	require.NoError(t, w.Flush())
	assert.Equal(t, ":42\r\n", buf.String())
}

func TestWriteReplyBulkString(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Bulk("hello")))
	require.NoError(t, w.Flush())
	assert.Equal(t, "$5\r\nhello\r\n", buf.String())
}

func TestWriteReplyNullBulk(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.NilBulk()))
	require.NoError(t, w.Flush())
	assert.Equal(t, "$-1\r\n", buf.String())
}

func TestWriteReplyNullArray(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.NilArray()))
	require.NoError(t, w.Flush())
	assert.Equal(t, "*-1\r\n", buf.String())
}

func TestWriteReplyArrayNested(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	reply := command.Array(command.Bulk("a"), command.Integer(1), command.NilBulk())
	require.NoError(t, WriteReply(w, reply))
	require.NoError(t, w.Flush())
	assert.Equal(t, "*3\r\n$1\r\na\r\n:1\r\n$-1\r\n", buf.String())
}

func TestRoundTripMultibulkThenEncodeReply(t *testing.T) {
	raw := "*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	args, err := ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, []string{"ECHO", "hi"}, args)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteReply(w, command.Bulk(args[1])))
	require.NoError(t, w.Flush())
	assert.Equal(t, "$2\r\nhi\r\n", buf.String())
}
