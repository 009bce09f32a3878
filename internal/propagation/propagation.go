// Package propagation implements spec.md §4.I: the sink that feeds
// every write a client commits out to whatever consumes it next —
// replicas over the wire, and (out of scope here) an append-only log.
//
// The wire shape and the "POST a JSON body, don't let a slow/unreachable
// peer block the caller" idiom are reused nearly verbatim from the
// teacher's internal/cluster.PostJSON/NodeInfo/BroadcastRequest: a
// replica is addressed the same way a torua node is ({id, addr}), and a
// propagated write batch is POSTed the same way a cluster broadcast is.
package propagation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ReplicaInfo addresses one replica, the propagation analogue of the
// teacher's cluster.NodeInfo.
type ReplicaInfo struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// WriteCommand is one propagated command, tagged with the database it
// ran against so a replica applying it selects the right db first.
type WriteCommand struct {
	DB   int      `json:"db"`
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// replicaBatch is the JSON body POSTed to a replica's apply endpoint.
type replicaBatch struct {
	Commands []WriteCommand `json:"commands"`
}

// ReplicaLink is the narrow interface a replica connection exposes to
// the propagation sink; httpReplicaLink is the concrete HTTP
// implementation, grounded on cluster.PostJSON.
type ReplicaLink interface {
	Send(ctx context.Context, batch []WriteCommand) error
	Info() ReplicaInfo
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

type httpReplicaLink struct {
	info ReplicaInfo
}

// NewHTTPReplicaLink returns a ReplicaLink that POSTs batches as JSON to
// replica's /replicate endpoint, the propagation-specific analogue of
// the teacher's cluster broadcast path.
func NewHTTPReplicaLink(info ReplicaInfo) ReplicaLink {
	return &httpReplicaLink{info: info}
}

func (l *httpReplicaLink) Info() ReplicaInfo { return l.info }

func (l *httpReplicaLink) Send(ctx context.Context, batch []WriteCommand) error {
	body, err := json.Marshal(replicaBatch{Commands: batch})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s/replicate", l.info.Addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("propagation: replica %s: http %d", l.info.ID, resp.StatusCode)
	}
	return nil
}

// replicaState tracks one replica's pending buffer and last write
// health, independently of every other replica — a single stuck replica
// must not block propagation to the others (spec.md §4.I).
type replicaState struct {
	link    ReplicaLink
	pending []WriteCommand
	lastErr error
}

// Sink is the in-scope slice of the full replication/AOF subsystem: a
// command feed fanned out to every registered replica as self-describing
// JSON (each WriteCommand already carries its DB, so no textual SELECT
// elision is needed on that path), a bounded backlog for newly-attached
// replicas, and — via the optional log field — the append-only-log feed
// spec.md §4.I lists first. The concrete RDB snapshot/AOF rewrite
// machinery is out of scope (spec.md §1); Sink only ever needs
// "propagate this command", "is my last write healthy", and "append
// this command to the log".
type Sink struct {
	mu          sync.Mutex
	replicas    map[string]*replicaState
	backlog     []WriteCommand
	backlogCap  int
	lastWriteOK bool
	log         *LogBuffer
	lastLogErr  error
}

// NewSink returns a Sink with a backlog capacity of backlogCap commands
// (0 disables the backlog).
func NewSink(backlogCap int) *Sink {
	return &Sink{
		replicas:    make(map[string]*replicaState),
		backlogCap:  backlogCap,
		lastWriteOK: true,
	}
}

// AttachReplica registers a replica link; it starts receiving every
// subsequent Propagate call.
func (s *Sink) AttachReplica(link ReplicaLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replicas[link.Info().ID] = &replicaState{link: link}
}

// DetachReplica removes a replica, e.g. on disconnect.
func (s *Sink) DetachReplica(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replicas, id)
}

// SetLogBuffer attaches the append-only-log feed; nil (the default)
// disables log-feed writes entirely, leaving replica fan-out/backlog
// unaffected.
func (s *Sink) SetLogBuffer(b *LogBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = b
}

// LastLogError reports the most recent append-only-log write/fsync
// failure, if any; background-worker errors like this are logged by the
// caller, never propagated back to the client that triggered them
// (spec.md §7).
func (s *Sink) LastLogError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLogErr
}

// LastWriteOK reports whether the most recent flush to every replica
// succeeded. internal/command's dispatcher does not read it; its
// persistence-health gate uses the dispatcher's own LastBgsaveOK.
func (s *Sink) LastWriteOK() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWriteOK
}

// Propagate buffers one write command for every attached replica and
// appends it to the backlog, for commands committed by a client (spec.md
// §4.E: "decides propagation via the dirty counter delta").
func (s *Sink) Propagate(dbID int, name string, args []string) {
	cmd := WriteCommand{DB: dbID, Name: name, Args: args}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.replicas {
		r.pending = append(r.pending, cmd)
	}
	if s.backlogCap > 0 {
		s.backlog = append(s.backlog, cmd)
		if over := len(s.backlog) - s.backlogCap; over > 0 {
			s.backlog = s.backlog[over:]
		}
	}
	if s.log != nil {
		if err := s.log.Append(dbID, name, args); err != nil {
			s.lastLogErr = err
		}
	}
}

// PropagateDelete is the keyspace.Propagator implementation: a
// synthetic DEL fired when a key is lazily reaped or evicted.
func (s *Sink) PropagateDelete(dbID int, key string) {
	s.Propagate(dbID, "DEL", []string{key})
}

// FlushReplicaBuffers sends every replica's pending batch and clears it,
// called periodically from cron and from a long eviction loop (spec.md
// §4.D, §4.G) so propagation doesn't fall arbitrarily far behind.
func (s *Sink) FlushReplicaBuffers() {
	s.mu.Lock()
	type job struct {
		id    string
		link  ReplicaLink
		batch []WriteCommand
	}
	var jobs []job
	for id, r := range s.replicas {
		if len(r.pending) == 0 {
			continue
		}
		jobs = append(jobs, job{id: id, link: r.link, batch: r.pending})
		r.pending = nil
	}
	s.mu.Unlock()

	ok := true
	for _, j := range jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := j.link.Send(ctx, j.batch)
		cancel()
		s.mu.Lock()
		if rs, present := s.replicas[j.id]; present {
			rs.lastErr = err
		}
		s.mu.Unlock()
		if err != nil {
			ok = false
		}
	}
	s.mu.Lock()
	s.lastWriteOK = ok
	s.mu.Unlock()

	// before_sleep fsync-policy flush (spec.md §4.I): every reactor
	// idle pass gets a chance to durably sync the log, the same cadence
	// FlushReplicaBuffers already rides for replica fan-out.
	s.mu.Lock()
	log := s.log
	s.mu.Unlock()
	if log != nil {
		if err := log.Sync(); err != nil {
			s.mu.Lock()
			s.lastLogErr = err
			s.mu.Unlock()
		}
	}
}

// Backlog returns a copy of the current backlog, e.g. to seed a
// newly-attached replica before it starts receiving live Propagate
// calls.
func (s *Sink) Backlog() []WriteCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WriteCommand, len(s.backlog))
	copy(out, s.backlog)
	return out
}

// LogBuffer is the append-only-log feed spec.md §4.I lists first: every
// committed write is formatted as a wire-protocol multibulk request and
// appended to w, SELECT-prefixed whenever the target DB differs from
// the previous entry written. The durable file/rotation machinery
// behind w is out of scope (spec.md §1); LogBuffer only owns the
// framing and the SELECT-elision, the same division of labor
// internal/server/proto draws between parsing and transport.
type LogBuffer struct {
	mu     sync.Mutex
	w      io.Writer
	lastDB int
	hasDB  bool
}

// NewLogBuffer wraps w (typically an *os.File opened in append mode)
// as an append-only-log feed.
func NewLogBuffer(w io.Writer) *LogBuffer {
	return &LogBuffer{w: w}
}

// Append writes one command frame to the log, prepending a SELECT
// frame first if dbID differs from the last-logged DB (spec.md §4.I).
func (b *LogBuffer) Append(dbID int, name string, args []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasDB || b.lastDB != dbID {
		if _, err := b.w.Write(encodeMultibulk([]string{"SELECT", strconv.Itoa(dbID)})); err != nil {
			return err
		}
		b.lastDB = dbID
		b.hasDB = true
	}

	frame := append([]string{name}, args...)
	_, err := b.w.Write(encodeMultibulk(frame))
	return err
}

// Sync flushes the log to stable storage, if w supports it; the
// before_sleep fsync-policy flush (spec.md §4.I) calls this every
// reactor idle pass. A writer with no Sync method (e.g. a plain
// bytes.Buffer in tests) is simply a no-op here.
func (b *LogBuffer) Sync() error {
	b.mu.Lock()
	w := b.w
	b.mu.Unlock()
	if syncer, ok := w.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// encodeMultibulk renders args as a RESP multibulk request, the same
// format internal/server/proto.ReadCommand parses back out. Kept
// private to internal/propagation rather than shared from
// internal/server/proto: that package imports internal/command, which
// already imports internal/propagation, so importing proto back here
// would close an import cycle.
func encodeMultibulk(args []string) []byte {
	var b bytes.Buffer
	b.WriteByte('*')
	b.WriteString(strconv.Itoa(len(args)))
	b.WriteString("\r\n")
	for _, a := range args {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(len(a)))
		b.WriteString("\r\n")
		b.WriteString(a)
		b.WriteString("\r\n")
	}
	return b.Bytes()
}
