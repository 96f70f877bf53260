package link

import (
	"sync"
	"sync/atomic"
)

// Chan is an in-memory link half. A NewPair behaves like a lossless
// full-duplex wire between two nodes in the same process; the DropNext
// hook injects loss for recovery testing.
type Chan struct {
	mu     sync.Mutex
	peer   *Chan
	queue  [][]byte
	closed bool

	drops    atomic.Uint64
	dropNext atomic.Int32
}

// NewPair returns two connected link halves
func NewPair() (*Chan, *Chan) {
	a := &Chan{}
	b := &Chan{}
	a.peer = b
	b.peer = a
	return a, b
}

// DropNext discards the next n outbound frames, simulating transit loss
func (c *Chan) DropNext(n int) {
	c.dropNext.Store(int32(n))
}

// Send delivers the frame to the peer's receive queue
func (c *Chan) Send(frame []byte) error {
	if c.dropNext.Load() > 0 {
		c.dropNext.Add(-1)
		return nil
	}

	out := make([]byte, len(frame))
	copy(out, frame)

	// the wire frame ends with the 0x00 delimiter
	if len(out) > 0 && out[len(out)-1] == 0x00 {
		out = out[:len(out)-1]
	}

	c.peer.mu.Lock()
	defer c.peer.mu.Unlock()
	if c.peer.closed {
		return ErrClosed
	}
	c.peer.queue = append(c.peer.queue, out)
	return nil
}

// Poll drains the receive queue
func (c *Chan) Poll() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// Drops always returns zero: frames discarded through DropNext are
// not counted
func (c *Chan) Drops() uint64 {
	return c.drops.Load()
}

// Close marks the half closed; peer sends start failing
func (c *Chan) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.queue = nil
	return nil
}
