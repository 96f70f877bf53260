package link

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// UDP is a datagram link: each datagram carries exactly one frame. The
// peer address is fixed at construction; datagrams from other senders
// are dropped.
type UDP struct {
	conn   *net.UDPConn
	peer   *net.UDPAddr
	frames chan []byte
	drops  atomic.Uint64
	done   chan struct{}
}

// NewUDP binds a local address and fixes the remote peer
func NewUDP(localAddr, peerAddr string) (*UDP, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve local addr: %w", err)
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve peer addr: %w", err)
	}

	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	u := &UDP{
		conn:   conn,
		peer:   peer,
		frames: make(chan []byte, 32),
		done:   make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

func (u *UDP) readLoop() {
	buf := make([]byte, mdp.MaxFrame+1)

	for {
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			close(u.done)
			return
		}
		if n == 0 || n > mdp.MaxFrame {
			u.drops.Add(1)
			continue
		}
		if !addr.IP.Equal(u.peer.IP) || addr.Port != u.peer.Port {
			u.drops.Add(1)
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		// the wire frame ends with the 0x00 delimiter
		if frame[len(frame)-1] == 0x00 {
			frame = frame[:len(frame)-1]
		}
		if len(frame) == 0 {
			continue
		}

		select {
		case u.frames <- frame:
		default:
			u.drops.Add(1)
		}
	}
}

// Send transmits one frame as one datagram
func (u *UDP) Send(frame []byte) error {
	select {
	case <-u.done:
		return ErrClosed
	default:
	}

	if _, err := u.conn.WriteToUDP(frame, u.peer); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Poll drains every datagram received since the last call
func (u *UDP) Poll() [][]byte {
	var out [][]byte
	for {
		select {
		case f := <-u.frames:
			out = append(out, f)
		default:
			return out
		}
	}
}

// Drops returns the count of discarded datagrams
func (u *UDP) Drops() uint64 {
	return u.drops.Load()
}

// Close closes the socket
func (u *UDP) Close() error {
	return u.conn.Close()
}

// LocalAddr returns the bound address, useful when the local port was 0
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}
