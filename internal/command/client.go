package command

import "github.com/pwanbul/redis-3.0/internal/txn"

// Client is the command layer's view of one connection: the bits
// Dispatch/Call need to decide how to route and propagate a command.
// internal/server owns the actual socket and RESP framing; it embeds a
// Client to participate in dispatch.
type Client struct {
	ID            uint64
	Addr          string
	DBIndex       int
	Authenticated bool
	Name          string
	Txn           *txn.Session
	Closing       bool
}

// NewClient returns a Client selected to db 0, unauthenticated, bound to
// its own fresh transaction session on tracker.
func NewClient(id uint64, addr string, tracker *txn.Tracker) *Client {
	return &Client{ID: id, Addr: addr, Txn: txn.NewSession(tracker)}
}
