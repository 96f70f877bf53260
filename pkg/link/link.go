// Package link provides transport-agnostic full-duplex frame channels
// for MDP nodes. A Link moves already-framed byte slices; the codec
// package owns framing, the reliability package owns delivery.
package link

import "errors"

var (
	// ErrBackpressure means the transport cannot accept the frame now;
	// the caller decides whether the loss matters.
	ErrBackpressure = errors.New("link backpressure")

	// ErrTransport wraps a fault in the underlying byte channel
	ErrTransport = errors.New("link transport fault")

	// ErrClosed means the link was closed
	ErrClosed = errors.New("link closed")
)

// Link is a full-duplex frame channel. Send submits one encoded frame
// without blocking; Poll returns every complete frame received since
// the last call, delimiter stripped, and must return promptly.
// Implementations drop oversized or overflowing input and count those
// drops. A link does not check COBS or CRC: malformed frames are
// passed up and rejected by the codec in the layer that decodes them.
type Link interface {
	Send(frame []byte) error
	Poll() [][]byte
	Drops() uint64
	Close() error
}

// Nop is the absent-link placeholder: sends are discarded and no
// frames are ever received.
type Nop struct{}

func (Nop) Send(frame []byte) error { return nil }
func (Nop) Poll() [][]byte          { return nil }
func (Nop) Drops() uint64           { return 0 }
func (Nop) Close() error            { return nil }
