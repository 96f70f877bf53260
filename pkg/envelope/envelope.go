// Package envelope implements the signed, deterministically-serialized
// telemetry payload carried in MDP TELEMETRY bodies.
//
// The canonical form is a deterministic CBOR map with integer keys in
// ascending order:
//
//	0: device_id (text)     6: mono_ms (uint)
//	1: device_role (text)   7: geo (map, absent without fix)
//	2: proto (uint)         8: readings (array of reading maps)
//	3: msg_id (bytes[16])   9: meta (map, absent when empty)
//	4: ts_ms (int)         10: hash (bytes[32])
//	5: seq (uint)          11: sig (bytes[64])
//
// The hash is BLAKE2b-256 over the serialization without keys 10 and
// 11; the signature is Ed25519 over "MYCO1" ++ hash. Two builds with
// identical inputs produce byte-identical output.
package envelope

import (
	"crypto/ed25519"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/MycoBrain/mycobrain-node/pkg/crypto"
)

// Transport protocol identifiers (key 2)
const (
	ProtoLoRaWAN uint8 = 1
	ProtoMQTT    uint8 = 2
	ProtoBLE     uint8 = 3
	ProtoLTE     uint8 = 4
	ProtoOther   uint8 = 5
)

// Top-level map keys
const (
	keyDeviceID   = 0
	keyDeviceRole = 1
	keyProto      = 2
	keyMsgID      = 3
	keyTimestamp  = 4
	keySeq        = 5
	keyMono       = 6
	keyGeo        = 7
	keyReadings   = 8
	keyMeta       = 9
	keyHash       = 10
	keySig        = 11
)

// Geo map keys
const (
	geoKeyLat = 0
	geoKeyLon = 1
	geoKeyAcc = 2
)

// Reading map keys
const (
	readingKeySensor  = 0
	readingKeyValue   = 1
	readingKeyScale   = 2
	readingKeyUnit    = 3
	readingKeyQuality = 4
)

var (
	ErrMissingHash  = errors.New("envelope missing hash")
	ErrMissingSig   = errors.New("envelope missing signature")
	ErrHashMismatch = errors.New("envelope hash mismatch")
	ErrBadSignature = errors.New("envelope signature invalid")
	ErrBadEnvelope  = errors.New("malformed envelope")
)

// encMode is the deterministic CBOR profile: definite lengths,
// shortest integer widths, keys in ascending order.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// Reading is one sensor sample. The reading value is
// Value * 10^(-Scale) in Unit.
type Reading struct {
	SensorID uint16
	Value    int32
	Scale    uint8
	Unit     uint16
	Quality  uint8
}

// Float returns the scaled reading value
func (r Reading) Float() float64 {
	v := float64(r.Value)
	for i := uint8(0); i < r.Scale; i++ {
		v /= 10
	}
	return v
}

// Geo is an optional position fix, fixed-point degrees
type Geo struct {
	LatE7     int32
	LonE7     int32
	AccuracyM uint16
}

// Envelope holds the unsigned telemetry fields
type Envelope struct {
	DeviceID    string
	DeviceRole  string
	Proto       uint8
	MsgID       [16]byte
	TimestampMS int64
	Seq         uint32
	MonoMS      uint64
	Geo         *Geo
	Readings    []Reading
	Meta        map[string]string
}

// NewMsgID generates a random 16-byte message id
func NewMsgID() [16]byte {
	return uuid.New()
}

func geoMap(g *Geo) map[uint64]any {
	return map[uint64]any{
		geoKeyLat: g.LatE7,
		geoKeyLon: g.LonE7,
		geoKeyAcc: g.AccuracyM,
	}
}

func readingMaps(rs []Reading) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = map[uint64]any{
			readingKeySensor:  r.SensorID,
			readingKeyValue:   r.Value,
			readingKeyScale:   r.Scale,
			readingKeyUnit:    r.Unit,
			readingKeyQuality: r.Quality,
		}
	}
	return out
}

func (e *Envelope) unsignedMap() map[uint64]any {
	m := map[uint64]any{
		keyDeviceID:   e.DeviceID,
		keyDeviceRole: e.DeviceRole,
		keyProto:      e.Proto,
		keyMsgID:      e.MsgID[:],
		keyTimestamp:  e.TimestampMS,
		keySeq:        e.Seq,
		keyMono:       e.MonoMS,
		keyReadings:   readingMaps(e.Readings),
	}
	if e.Geo != nil {
		m[keyGeo] = geoMap(e.Geo)
	}
	if len(e.Meta) > 0 {
		m[keyMeta] = e.Meta
	}
	return m
}

// Build serializes the unsigned envelope and returns the canonical
// bytes together with their BLAKE2b-256 hash
func (e *Envelope) Build() ([]byte, [32]byte, error) {
	data, err := encMode.Marshal(e.unsignedMap())
	if err != nil {
		return nil, [32]byte{}, err
	}
	return data, crypto.Hash(data), nil
}

// BuildSigned rebuilds the envelope with hash and sig appended in
// canonical key order. With a nil key the fixed-width placeholder
// signature is substituted.
func (e *Envelope) BuildSigned(key ed25519.PrivateKey) ([]byte, error) {
	_, hash, err := e.Build()
	if err != nil {
		return nil, err
	}

	var sig [64]byte
	if key != nil {
		sig = crypto.Sign(key, hash)
	} else {
		sig = crypto.PlaceholderSignature(hash)
	}

	m := e.unsignedMap()
	m[keyHash] = hash[:]
	m[keySig] = sig[:]

	return encMode.Marshal(m)
}
