package link

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// Serial adapts a byte-oriented stream (UART device, pty, pipe) into a
// frame channel. Received bytes are accumulated until the 0x00
// delimiter; an oversized accumulation resets the buffer so the reader
// resyncs on the next delimiter.
type Serial struct {
	rw     io.ReadWriteCloser
	frames chan []byte
	drops  atomic.Uint64
	done   chan struct{}
}

// NewSerial starts reading from rw immediately. rw.Read may block; the
// internal reader goroutine keeps Poll prompt.
func NewSerial(rw io.ReadWriteCloser) *Serial {
	s := &Serial{
		rw:     rw,
		frames: make(chan []byte, 32),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Serial) readLoop() {
	buf := make([]byte, 256)
	frame := make([]byte, 0, mdp.MaxFrame)

	for {
		n, err := s.rw.Read(buf)
		for _, b := range buf[:n] {
			if b == 0x00 {
				if len(frame) == 0 {
					continue
				}
				out := make([]byte, len(frame))
				copy(out, frame)
				frame = frame[:0]

				select {
				case s.frames <- out:
				default:
					s.drops.Add(1)
				}
				continue
			}

			if len(frame) < mdp.MaxFrame {
				frame = append(frame, b)
			} else {
				// oversized: resync on next delimiter
				frame = frame[:0]
				s.drops.Add(1)
			}
		}

		if err != nil {
			close(s.done)
			return
		}
	}
}

// Send writes the frame bytes to the stream
func (s *Serial) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	if _, err := s.rw.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Poll drains every complete frame received since the last call
func (s *Serial) Poll() [][]byte {
	var out [][]byte
	for {
		select {
		case f := <-s.frames:
			out = append(out, f)
		default:
			return out
		}
	}
}

// Drops returns the count of discarded oversized or overflow frames
func (s *Serial) Drops() uint64 {
	return s.drops.Load()
}

// Close closes the underlying stream
func (s *Serial) Close() error {
	return s.rw.Close()
}
