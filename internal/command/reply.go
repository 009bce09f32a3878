// Package command implements spec.md §4.E: the static command table and
// the Dispatch/Call pipeline that sits between the wire protocol
// (internal/server/proto) and the keyspace/txn/eviction/propagation
// layers.
//
// Grounded on the teacher's handleShardRequest (cmd/node/main.go): parse
// an identifier, switch-dispatch to a handler, encode a structured
// reply. Here the identifier is a command name instead of an HTTP verb
// and URL path, and the gates (steps 3-9 in Dispatch) are new logic
// grounded directly on spec.md's prose, since no example repo implements
// an ACL/OOM/persistence-health pipeline.
package command

// ReplyKind tags the shape of a Reply, mirroring RESP's five reply
// types plus the two "null" variants.
type ReplyKind int

const (
	ReplySimpleString ReplyKind = iota
	ReplyError
	ReplyInteger
	ReplyBulkString
	ReplyNullBulk
	ReplyArray
	ReplyNullArray
)

// Reply is the command layer's protocol-agnostic result; internal/server
// encodes it to RESP bytes.
type Reply struct {
	Kind  ReplyKind
	Str   string
	Int   int64
	Array []Reply
	// Close asks the caller to terminate the connection after writing
	// this reply (set by QUIT and SHUTDOWN).
	Close bool
}

func OK() Reply                 { return Reply{Kind: ReplySimpleString, Str: "OK"} }
func Simple(s string) Reply     { return Reply{Kind: ReplySimpleString, Str: s} }
func Err(msg string) Reply      { return Reply{Kind: ReplyError, Str: msg} }
func Integer(n int64) Reply     { return Reply{Kind: ReplyInteger, Int: n} }
func Bulk(s string) Reply       { return Reply{Kind: ReplyBulkString, Str: s} }
func NilBulk() Reply            { return Reply{Kind: ReplyNullBulk} }
func NilArray() Reply           { return Reply{Kind: ReplyNullArray} }
func Array(items ...Reply) Reply { return Reply{Kind: ReplyArray, Array: items} }

// BulkOrNil returns a bulk reply for s if ok, else a null bulk reply —
// the shape nearly every read command (GET, HGET, LINDEX, ...) needs.
func BulkOrNil(s string, ok bool) Reply {
	if !ok {
		return NilBulk()
	}
	return Bulk(s)
}

// StringArray converts a []string to a RESP array of bulk strings.
func StringArray(items []string) Reply {
	out := make([]Reply, len(items))
	for i, s := range items {
		out[i] = Bulk(s)
	}
	return Array(out...)
}
