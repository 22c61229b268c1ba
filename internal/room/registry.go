// internal/room/registry.go
package room

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// sendBufferSize bounds the per-connection outbound queue. A peer that cannot
// drain 16 snapshots is dropped-to rather than allowed to stall the room.
const sendBufferSize = 16

// Conn is one live client connection as the registry sees it: a bounded
// outbound byte-frame queue drained by the session's write pump. The registry
// holds Conns only for fan-out; closing the underlying socket is always the
// session handler's job.
type Conn struct {
	remote string

	out  chan []byte
	done chan struct{}
	once sync.Once
}

// NewConn builds a connection handle. remote is used only in log lines.
func NewConn(remote string) *Conn {
	return &Conn{
		remote: remote,
		out:    make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Out is the frame queue the write pump drains.
func (c *Conn) Out() <-chan []byte { return c.out }

// Remote is the peer address, for log lines.
func (c *Conn) Remote() string { return c.remote }

// Done is closed once the connection is dead (write pump failure or session
// teardown). Broadcast uses it to prune the registry lazily.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close marks the connection dead. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Write enqueues a frame without blocking. It reports false when the
// connection is dead or its buffer is full; the frame is dropped in either
// case.
func (c *Conn) Write(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Registry maps room ids to their live connections. All methods are safe for
// concurrent use from any number of session goroutines. The mutex is never
// held across a send: Broadcast snapshots the set, releases, then enqueues.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[*Conn]struct{}
	log   *logrus.Logger
}

func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Conn]struct{}),
		log:   log,
	}
}

// Register adds conn to roomID's set, creating the set if absent. The target
// room must already exist in the store; the registry itself does not check.
func (r *Registry) Register(roomID string, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.rooms[roomID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes conn from roomID's set and reports whether the set
// became empty (and was therefore dropped), so the caller can evaluate room
// deletion. Unknown room or conn is a no-op.
func (r *Registry) Unregister(roomID string, conn *Conn) (becameEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.rooms, roomID)
		return true
	}
	return false
}

// Count returns the number of live connections registered for roomID.
func (r *Registry) Count(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}

// Broadcast enqueues frame to every connection registered for roomID and
// returns the number of successful deliveries. Dead connections found along
// the way are unregistered and skipped; one broken peer never aborts delivery
// to the rest. Broadcasting to an unknown room is a no-op.
func (r *Registry) Broadcast(roomID string, frame []byte) int {
	r.mu.Lock()
	set, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return 0
	}
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	delivered := 0
	for _, c := range conns {
		if c.Closed() {
			r.Unregister(roomID, c)
			continue
		}
		if c.Write(frame) {
			delivered++
		} else if r.log != nil {
			r.log.Warnf("registry: dropped frame for room %s peer %s (queue full or closed)", roomID, c.remote)
		}
	}
	return delivered
}
