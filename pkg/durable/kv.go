// Package durable implements the origin's power-safe storage: a
// nonvolatile key-value area, a wrap-on-overflow ring of unacked
// outbound messages replayed after reboot, and the device identity
// record.
package durable

import (
	"errors"
	"sync"
)

var ErrPersistFault = errors.New("nonvolatile write failed")

// KV is a nonvolatile byte-blob store under short ASCII keys. Put must
// be atomic per key: after a power cut a key holds either its old or
// its new value, never a torn write.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Erase(key string) error
	Close() error
}

// MemKV is an in-memory KV used by tests and by nodes that opt out of
// persistence. Snapshot/Restore simulate power cycles.
type MemKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewMemKV creates an empty in-memory store
func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string][]byte)}
}

func (kv *MemKV) Get(key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (kv *MemKV) Put(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	kv.m[key] = v
	return nil
}

func (kv *MemKV) Erase(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

func (kv *MemKV) Close() error { return nil }

// Snapshot copies the current contents, as they would survive a power
// cut at this instant
func (kv *MemKV) Snapshot() map[string][]byte {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	out := make(map[string][]byte, len(kv.m))
	for k, v := range kv.m {
		c := make([]byte, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

// Restore replaces the contents with a snapshot
func (kv *MemKV) Restore(snap map[string][]byte) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m = make(map[string][]byte, len(snap))
	for k, v := range snap {
		c := make([]byte, len(v))
		copy(c, v)
		kv.m[k] = c
	}
}
