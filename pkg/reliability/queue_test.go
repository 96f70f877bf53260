package reliability

import (
	"bytes"
	"testing"
)

// sendRecorder captures every transmission for inspection
type sendRecorder struct {
	sent [][]byte
}

func (r *sendRecorder) send(payload []byte) error {
	out := make([]byte, len(payload))
	copy(out, payload)
	r.sent = append(r.sent, out)
	return nil
}

func TestEnqueueTransmitsImmediately(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	seq := q.NextSeq()
	if seq != 1 {
		t.Errorf("NextSeq() = %d, want 1", seq)
	}

	payload := []byte{0xAA, 0xBB}
	if err := q.Enqueue(seq, payload, WiredRTOMS, true, 1000); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if len(rec.sent) != 1 || !bytes.Equal(rec.sent[0], payload) {
		t.Errorf("sent = %v, want one copy of payload", rec.sent)
	}
	if q.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", q.InFlight())
	}
}

func TestSeqMonotonic(t *testing.T) {
	q := NewQueue(DefaultSlots)

	prev := uint32(0)
	for i := 0; i < 100; i++ {
		seq := q.NextSeq()
		if seq <= prev {
			t.Fatalf("NextSeq() = %d after %d, not strictly increasing", seq, prev)
		}
		prev = seq
	}
}

func TestSetNextSeqNeverRegresses(t *testing.T) {
	q := NewQueue(DefaultSlots)
	q.SetNextSeq(50)
	if got := q.NextSeq(); got != 50 {
		t.Errorf("NextSeq() = %d, want 50", got)
	}

	q.SetNextSeq(10) // must not move backwards
	if got := q.NextSeq(); got != 51 {
		t.Errorf("NextSeq() = %d, want 51", got)
	}
}

func TestCumulativeAckMonotonic(t *testing.T) {
	q := NewQueue(DefaultSlots)
	q.Send = (&sendRecorder{}).send

	acks := []uint32{3, 1, 7, 5, 7, 2}
	for _, a := range acks {
		q.OnAck(a)
	}

	if q.PeerAcked() != 7 {
		t.Errorf("PeerAcked() = %d, want 7 (max of inputs)", q.PeerAcked())
	}
}

func TestAckFreesCoveredSlots(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	var freed []uint32
	q.OnAcked = func(cum uint32) { freed = append(freed, cum) }

	for i := 0; i < 4; i++ {
		seq := q.NextSeq()
		if err := q.Enqueue(seq, []byte{byte(seq)}, WiredRTOMS, true, 0); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	q.OnAck(2)
	if q.InFlight() != 2 {
		t.Errorf("InFlight() after ack 2 = %d, want 2", q.InFlight())
	}
	if len(freed) != 1 || freed[0] != 2 {
		t.Errorf("OnAcked calls = %v, want [2]", freed)
	}

	q.OnAck(4)
	if q.InFlight() != 0 {
		t.Errorf("InFlight() after ack 4 = %d, want 0", q.InFlight())
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(2)
	q.Send = (&sendRecorder{}).send

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(q.NextSeq(), []byte{1}, WiredRTOMS, true, 0); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	if err := q.Enqueue(q.NextSeq(), []byte{1}, WiredRTOMS, true, 0); err != ErrQueueFull {
		t.Errorf("Enqueue() error = %v, want %v", err, ErrQueueFull)
	}
}

func TestRetransmitBound(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	var abandoned []uint32
	q.OnAbandon = func(seq uint32) { abandoned = append(abandoned, seq) }

	seq := q.NextSeq()
	if err := q.Enqueue(seq, []byte{0x01}, 100, true, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// peer never acks: pump far past every RTO
	now := uint64(0)
	for i := 0; i < 20; i++ {
		now += 150
		q.Pump(now)
	}

	// transmitted exactly MaxRetries+1 times, then freed
	if len(rec.sent) != MaxRetries+1 {
		t.Errorf("transmissions = %d, want %d", len(rec.sent), MaxRetries+1)
	}
	if q.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0 after abandon", q.InFlight())
	}
	if len(abandoned) != 1 || abandoned[0] != seq {
		t.Errorf("abandoned = %v, want [%d]", abandoned, seq)
	}
}

func TestRetransmitKeepsSeqAndBytes(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	seq := q.NextSeq()
	if err := q.Enqueue(seq, payload, 100, true, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	q.Pump(200)
	q.Pump(400)

	if len(rec.sent) != 3 {
		t.Fatalf("transmissions = %d, want 3", len(rec.sent))
	}
	for i, sent := range rec.sent {
		if !bytes.Equal(sent, payload) {
			t.Errorf("transmission %d = % x, want % x", i, sent, payload)
		}
	}
}

func TestPumpRespectsRTO(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	if err := q.Enqueue(q.NextSeq(), []byte{1}, 1800, true, 1000); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	q.Pump(2000) // 1000ms elapsed < 1800
	if len(rec.sent) != 1 {
		t.Errorf("transmissions = %d, want 1 before RTO", len(rec.sent))
	}

	q.Pump(2900) // 1900ms elapsed >= 1800
	if len(rec.sent) != 2 {
		t.Errorf("transmissions = %d, want 2 after RTO", len(rec.sent))
	}
}

func TestBestEffortSlotNotRetransmitted(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	if err := q.Enqueue(q.NextSeq(), []byte{1}, 100, false, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	q.Pump(10000)
	if len(rec.sent) != 1 {
		t.Errorf("transmissions = %d, want 1 (no ack requested)", len(rec.sent))
	}
}

func TestOnReceiveInorderAdvance(t *testing.T) {
	q := NewQueue(DefaultSlots)

	if dup := q.OnReceive(1, false); dup {
		t.Error("OnReceive(1) dup = true, want false")
	}
	if q.PeerLastInorder() != 1 {
		t.Errorf("PeerLastInorder() = %d, want 1", q.PeerLastInorder())
	}

	// gap: accept but do not advance
	if dup := q.OnReceive(5, false); dup {
		t.Error("OnReceive(5) dup = true, want false")
	}
	if q.PeerLastInorder() != 1 {
		t.Errorf("PeerLastInorder() after gap = %d, want 1", q.PeerLastInorder())
	}

	// the gap fills in
	if dup := q.OnReceive(2, false); dup {
		t.Error("OnReceive(2) dup = true, want false")
	}
	if q.PeerLastInorder() != 2 {
		t.Errorf("PeerLastInorder() = %d, want 2", q.PeerLastInorder())
	}
}

func TestOnReceiveDuplicate(t *testing.T) {
	q := NewQueue(DefaultSlots)

	q.OnReceive(1, false)

	// replaying the same seq advances the mark at most once and
	// reports a duplicate
	if dup := q.OnReceive(1, false); !dup {
		t.Error("OnReceive(1) replay dup = false, want true")
	}
	if q.PeerLastInorder() != 1 {
		t.Errorf("PeerLastInorder() = %d, want 1", q.PeerLastInorder())
	}
}

func TestAckPendingCoalesces(t *testing.T) {
	q := NewQueue(DefaultSlots)

	q.OnReceive(1, true)
	q.OnReceive(2, true)

	if !q.TakeAckPending() {
		t.Error("TakeAckPending() = false, want true")
	}
	if q.TakeAckPending() {
		t.Error("second TakeAckPending() = true, want false (coalesced)")
	}
}

func TestPumpFreesLateAckedSlot(t *testing.T) {
	rec := &sendRecorder{}
	q := NewQueue(DefaultSlots)
	q.Send = rec.send

	seq := q.NextSeq()
	if err := q.Enqueue(seq, []byte{1}, 100, true, 0); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	q.OnAck(seq)
	q.Pump(10000)

	if len(rec.sent) != 1 {
		t.Errorf("transmissions = %d, want 1 (acked before pump)", len(rec.sent))
	}
	if q.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", q.InFlight())
	}
}
