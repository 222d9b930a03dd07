package broker

import "sync"

// Envelope is a single message passed across a BiQ in either direction.
type Envelope struct {
	// Peer is the remote peer a message came from, or the peer an
	// outbound message should be (or was) sent to. Zero value means
	// "let the broker pick" on the outbound side.
	Peer PeerId
	// HasPeer distinguishes a zero-value PeerId from "peer unset".
	HasPeer bool

	MsgType []byte
	Payload [][]byte

	// Err is set on the recv side when the broker could not honor a send
	// (e.g. ErrNoPeers); Payload/MsgType are meaningless in that case.
	Err error
}

// unboundedQueue is a simple growable FIFO guarded by a mutex. ZMQ sockets
// aside, this is the only concurrent structure a client worker ever
// touches, and it is built on the standard library deliberately: the
// pack's queue/broker examples (job-queue, pub-sub) reach for the same
// mutex+slice or channel shape rather than a third-party lock-free queue,
// and at the scale this broker runs at (per-client, not global) a lock
// around an append/pop pair is not a bottleneck worth a dependency.
type unboundedQueue struct {
	mu    sync.Mutex
	items []Envelope
}

func (q *unboundedQueue) push(e Envelope) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

func (q *unboundedQueue) pop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Envelope{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// BiQ is the bidirectional queue pairing one client worker with the
// broker: client workers push onto the send side and pop from the recv
// side, the broker does the opposite. Both sides are effectively
// single-producer/single-consumer; closing a client drops the BiQ and
// whatever is still queued on it.
type BiQ struct {
	send unboundedQueue // client -> broker
	recv unboundedQueue // broker -> client
}

// NewBiQ allocates an empty, ready-to-use BiQ.
func NewBiQ() *BiQ {
	return &BiQ{}
}

// Send enqueues an outbound message. Safe to call before the broker has
// applied this client's Register request; the message simply waits.
func (b *BiQ) Send(e Envelope) {
	b.send.push(e)
}

// TryRecv returns the next message delivered to this client, if any.
func (b *BiQ) TryRecv() (Envelope, bool) {
	return b.recv.pop()
}

// dequeueOutbound is the broker-side counterpart of Send: it pops the
// next client-originated message for the broker to route.
func (b *BiQ) dequeueOutbound() (Envelope, bool) {
	return b.send.pop()
}

// deliver is the broker-side counterpart of TryRecv: it hands a message,
// or a failed-send error entry, to the client.
func (b *BiQ) deliver(e Envelope) {
	b.recv.push(e)
}
