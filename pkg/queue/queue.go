// Package queue implements the FIFO command queue that lets any goroutine
// hand work to the single I/O goroutine that owns the TLS engine,
// reassembly buffers, and channel table (spec §4.5).
package queue

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

// Sender is the thread-confined interface a Command receives: the four send
// primitives of spec §6, safe to call only from the I/O goroutine.
type Sender interface {
	SendEncryptedMessage(channel byte, code uint16, body []byte) error
	SendEncryptedMediaPacket(channel byte, payload []byte) error
	SendUnencryptedBlob(channel byte, payload []byte) error
	SendUnencryptedMessage(channel byte, code uint16, body []byte) error
}

// Command is a move-only unit of work posted by a producer goroutine and
// run on the I/O goroutine. It must not block on network I/O; if it needs a
// reply from the peer it registers state and returns (spec §4.5).
type Command struct {
	// ID correlates a queued command with its log lines across goroutines.
	ID uuid.UUID
	// Run is invoked on the I/O goroutine with the thread-confined Sender.
	Run func(s Sender)
}

// Queue is a FIFO of Commands guarded by a mutex, backed by
// github.com/eapache/queue's ring buffer so repeated Push/Pop cycles don't
// re-allocate. Wake-up is a capacity-1 channel: the idiomatic Go substitute
// for the self-pipe described in spec §4.5 (a non-blocking send that
// coalesces multiple wake requests into one poll-loop iteration, the same
// effect a self-pipe achieves by collapsing repeated byte writes).
type Queue struct {
	mu     sync.Mutex
	ring   *queue.Queue
	wakeCh chan struct{}
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		ring:   queue.New(),
		wakeCh: make(chan struct{}, 1),
	}
}

// Push appends a command and wakes the I/O goroutine. Safe to call from any
// goroutine, including the I/O goroutine itself.
func (q *Queue) Push(run func(s Sender)) uuid.UUID {
	id := uuid.New()
	q.mu.Lock()
	q.ring.Add(Command{ID: id, Run: run})
	q.mu.Unlock()

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
	return id
}

// Pop removes and returns the oldest command, or ok=false if the queue is
// empty.
func (q *Queue) Pop() (cmd Command, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ring.Length() == 0 {
		return Command{}, false
	}
	cmd = q.ring.Peek().(Command)
	q.ring.Remove()
	return cmd, true
}

// Wake is the channel the I/O poll loop selects on alongside the
// transport's read timeout, coalesced the same way a self-pipe's read end
// would be polled alongside a socket fd (spec §4.5).
func (q *Queue) Wake() <-chan struct{} {
	return q.wakeCh
}

// Len reports the number of queued commands, mainly for tests and metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Length()
}
