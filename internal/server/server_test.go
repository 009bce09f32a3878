package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwanbul/redis-3.0/internal/command"
	"github.com/pwanbul/redis-3.0/internal/keyspace"
	"github.com/pwanbul/redis-3.0/internal/reactor"
	"github.com/pwanbul/redis-3.0/internal/txn"
)

func newTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	ks := keyspace.New(4, nil, nil)
	tracker := txn.NewTracker()
	dispatcher := command.NewDispatcher(ks, tracker)
	r := reactor.New(0)

	srv, err := New("127.0.0.1:0", dispatcher, r, tracker)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	go srv.Serve(ctx)

	t.Cleanup(func() { cancel() })
	return srv, cancel
}

func dial(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func TestServerRespondsToInlinePing(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("PING\r\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "+PONG\r\n", line)
}

func TestServerRespondsToMultibulkSetGet(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	require.NoError(t, err)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "+OK\r\n", line)

	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "$3\r\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "bar\r\n", line)
}

func TestServerClosesConnectionOnQuit(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, reader := dial(t, srv)

	_, err := conn.Write([]byte("QUIT\r\n"))
	require.NoError(t, err)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "+OK\r\n", line)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = reader.ReadString('\n')
	assert.Error(t, err, "server should close the connection after QUIT")
}

func TestServerTracksConnectedClientCount(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, 0, srv.NumClients())

	conn, _ := dial(t, srv)
	require.Eventually(t, func() bool { return srv.NumClients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return srv.NumClients() == 0 }, time.Second, 5*time.Millisecond)
}
