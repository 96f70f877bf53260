package durable

import (
	"encoding/binary"
	"fmt"
	"log"
)

// DefaultSlots is the minimum ring capacity
const DefaultSlots = 8

// Metadata and per-slot keys in the kv namespace
const (
	keyHead  = "head"
	keyTail  = "tail"
	keyCount = "count"
	keyTxSeq = "tx_seq"
)

func slotSeqKey(n int) string   { return fmt.Sprintf("q%d_s", n) }
func slotLenKey(n int) string   { return fmt.Sprintf("q%d_l", n) }
func slotBytesKey(n int) string { return fmt.Sprintf("q%d_d", n) }

// Ring is the power-safe circular store of unacked outbound messages.
// When full it wraps: the oldest slot is overwritten so the most
// recent telemetry survives at the cost of the oldest. Slots are freed
// as the cumulative ack crosses their seq and replayed in seq order
// after a reboot.
type Ring struct {
	kv       KV
	capacity int

	head  int // next slot to write
	tail  int // oldest live slot
	count int
	txSeq uint32 // highest seq ever stored

	// Logger receives persist-fault diagnostics; nil means default
	Logger *log.Logger
}

// OpenRing loads ring metadata from the kv store, creating an empty
// ring on first boot
func OpenRing(kv KV, capacity int) (*Ring, error) {
	if capacity < DefaultSlots {
		capacity = DefaultSlots
	}

	r := &Ring{kv: kv, capacity: capacity}

	var err error
	if r.head, err = r.loadCounter(keyHead); err != nil {
		return nil, err
	}
	if r.tail, err = r.loadCounter(keyTail); err != nil {
		return nil, err
	}
	if r.count, err = r.loadCounter(keyCount); err != nil {
		return nil, err
	}

	raw, ok, err := kv.Get(keyTxSeq)
	if err != nil {
		return nil, err
	}
	if ok && len(raw) == 4 {
		r.txSeq = binary.LittleEndian.Uint32(raw)
	}

	if r.head >= capacity || r.tail >= capacity || r.count > capacity {
		// metadata from a build with a different capacity: start over
		r.head, r.tail, r.count = 0, 0, 0
	}

	return r, nil
}

func (r *Ring) loadCounter(key string) (int, error) {
	raw, ok, err := r.kv.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok || len(raw) != 1 {
		return 0, nil
	}
	return int(raw[0]), nil
}

// put retries a failed write once before reporting the fault, per the
// persist-fault policy: the message still goes out live, only its
// durability is weakened.
func (r *Ring) put(key string, value []byte) error {
	if err := r.kv.Put(key, value); err != nil {
		if err = r.kv.Put(key, value); err != nil {
			r.logf("durable write %s failed twice: %v", key, err)
			return err
		}
	}
	return nil
}

func (r *Ring) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (r *Ring) persistMeta() error {
	if err := r.put(keyHead, []byte{byte(r.head)}); err != nil {
		return err
	}
	if err := r.put(keyTail, []byte{byte(r.tail)}); err != nil {
		return err
	}
	return r.put(keyCount, []byte{byte(r.count)})
}

// Capacity returns the slot capacity
func (r *Ring) Capacity() int { return r.capacity }

// Count returns the number of live slots
func (r *Ring) Count() int { return r.count }

// TxSeq returns the highest sequence number ever stored; after reboot
// new telemetry continues above it
func (r *Ring) TxSeq() uint32 { return r.txSeq }

// Enqueue stores one outbound message before its first transmission.
// The write is flushed before the call returns; if power fails any
// time afterwards the slot is recoverable. A full ring drops its
// oldest slot first.
func (r *Ring) Enqueue(seq uint32, payload []byte) error {
	if r.count == r.capacity {
		// wrap-on-overflow: sacrifice the oldest
		r.tail = (r.tail + 1) % r.capacity
		r.count--
	}

	n := r.head

	var seqBuf [4]byte
	binary.LittleEndian.PutUint32(seqBuf[:], seq)
	if err := r.put(slotSeqKey(n), seqBuf[:]); err != nil {
		return err
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	if err := r.put(slotLenKey(n), lenBuf[:]); err != nil {
		return err
	}

	if err := r.put(slotBytesKey(n), payload); err != nil {
		return err
	}

	r.head = (r.head + 1) % r.capacity
	r.count++

	if seq > r.txSeq {
		r.txSeq = seq
		binary.LittleEndian.PutUint32(seqBuf[:], r.txSeq)
		if err := r.put(keyTxSeq, seqBuf[:]); err != nil {
			return err
		}
	}

	return r.persistMeta()
}

// Ack advances the tail past every slot whose stored seq is covered by
// the cumulative ack
func (r *Ring) Ack(cumulative uint32) error {
	advanced := false

	for r.count > 0 {
		raw, ok, err := r.kv.Get(slotSeqKey(r.tail))
		if err != nil {
			return err
		}
		if !ok || len(raw) != 4 {
			// unreadable slot: skip it rather than wedge the ring
			r.tail = (r.tail + 1) % r.capacity
			r.count--
			advanced = true
			continue
		}

		seq := binary.LittleEndian.Uint32(raw)
		if seq > cumulative {
			break
		}

		r.tail = (r.tail + 1) % r.capacity
		r.count--
		advanced = true
	}

	if !advanced {
		return nil
	}
	return r.persistMeta()
}

// Replay iterates live slots oldest-first, handing each stored message
// back for re-enqueue into the live reliability queue. Stored headers
// already carry their seq; no new numbers are assigned.
func (r *Ring) Replay(fn func(seq uint32, payload []byte) error) error {
	n := r.tail
	for i := 0; i < r.count; i++ {
		seqRaw, ok, err := r.kv.Get(slotSeqKey(n))
		if err != nil {
			return err
		}
		payload, ok2, err := r.kv.Get(slotBytesKey(n))
		if err != nil {
			return err
		}

		if ok && ok2 && len(seqRaw) == 4 {
			seq := binary.LittleEndian.Uint32(seqRaw)
			if err := fn(seq, payload); err != nil {
				return err
			}
		}

		n = (n + 1) % r.capacity
	}
	return nil
}
