package envelope

import (
	"bytes"
	"crypto/ed25519"

	"github.com/fxamacker/cbor/v2"

	"github.com/MycoBrain/mycobrain-node/pkg/crypto"
)

// canonicalUnsigned re-encodes a decoded envelope map without the hash
// and sig keys. Re-encoding rather than slicing keeps verification
// independent of how the sender laid out unknown fields.
func canonicalUnsigned(env map[any]any) ([]byte, error) {
	unsigned := make(map[any]any, len(env))
	for k, v := range env {
		if ki, ok := k.(uint64); ok && (ki == keyHash || ki == keySig) {
			continue
		}
		unsigned[k] = v
	}
	return encMode.Marshal(unsigned)
}

// Verify reparses canonical envelope bytes, recomputes the hash over
// the unsigned serialization, and checks the Ed25519 signature.
//
// verified is false with a nil error for a placeholder-signed
// envelope: the content hash is intact but no key vouches for it.
func Verify(data []byte, key ed25519.PublicKey) (verified bool, err error) {
	var env map[any]any
	if err := cbor.Unmarshal(data, &env); err != nil {
		return false, ErrBadEnvelope
	}

	hashBytes, ok := env[uint64(keyHash)].([]byte)
	if !ok || len(hashBytes) != 32 {
		return false, ErrMissingHash
	}
	sigBytes, ok := env[uint64(keySig)].([]byte)
	if !ok || len(sigBytes) != 64 {
		return false, ErrMissingSig
	}

	unsignedBytes, err := canonicalUnsigned(env)
	if err != nil {
		return false, ErrBadEnvelope
	}

	hash := crypto.Hash(unsignedBytes)
	if !bytes.Equal(hashBytes, hash[:]) {
		return false, ErrHashMismatch
	}

	var sig [64]byte
	copy(sig[:], sigBytes)

	if crypto.IsPlaceholderSignature(hash, sig) {
		return false, nil
	}

	if key == nil || !crypto.Verify(key, hash, sig) {
		return false, ErrBadSignature
	}

	return true, nil
}

// Decoded is a parsed signed envelope
type Decoded struct {
	Envelope
	Hash [32]byte
	Sig  [64]byte
}

func decodeGeo(v any) *Geo {
	m, ok := v.(map[any]any)
	if !ok {
		return nil
	}
	g := &Geo{}
	g.LatE7 = int32(asInt64(m[uint64(geoKeyLat)]))
	g.LonE7 = int32(asInt64(m[uint64(geoKeyLon)]))
	g.AccuracyM = uint16(asUint64(m[uint64(geoKeyAcc)]))
	return g
}

func decodeReadings(v any) []Reading {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Reading, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[any]any)
		if !ok {
			continue
		}
		out = append(out, Reading{
			SensorID: uint16(asUint64(m[uint64(readingKeySensor)])),
			Value:    int32(asInt64(m[uint64(readingKeyValue)])),
			Scale:    uint8(asUint64(m[uint64(readingKeyScale)])),
			Unit:     uint16(asUint64(m[uint64(readingKeyUnit)])),
			Quality:  uint8(asUint64(m[uint64(readingKeyQuality)])),
		})
	}
	return out
}

func decodeMeta(v any) map[string]string {
	m, ok := v.(map[any]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		ks, ok1 := k.(string)
		vs, ok2 := val.(string)
		if ok1 && ok2 {
			out[ks] = vs
		}
	}
	return out
}

// asInt64 accepts both CBOR integer major types: deterministic
// encoding stores non-negative values as unsigned.
func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case uint64:
		return int64(t)
	default:
		return 0
	}
}

func asUint64(v any) uint64 {
	switch t := v.(type) {
	case uint64:
		return t
	case int64:
		return uint64(t)
	default:
		return 0
	}
}

// Decode parses canonical envelope bytes into typed fields. It does
// not verify the hash or signature; use Verify for that.
func Decode(data []byte) (*Decoded, error) {
	var env map[any]any
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, ErrBadEnvelope
	}

	d := &Decoded{}

	deviceID, ok := env[uint64(keyDeviceID)].(string)
	if !ok {
		return nil, ErrBadEnvelope
	}
	d.DeviceID = deviceID
	d.DeviceRole, _ = env[uint64(keyDeviceRole)].(string)
	d.Proto = uint8(asUint64(env[uint64(keyProto)]))

	msgID, ok := env[uint64(keyMsgID)].([]byte)
	if !ok || len(msgID) != 16 {
		return nil, ErrBadEnvelope
	}
	copy(d.MsgID[:], msgID)

	d.TimestampMS = asInt64(env[uint64(keyTimestamp)])
	d.Seq = uint32(asUint64(env[uint64(keySeq)]))
	d.MonoMS = asUint64(env[uint64(keyMono)])

	if g, ok := env[uint64(keyGeo)]; ok {
		d.Geo = decodeGeo(g)
	}
	d.Readings = decodeReadings(env[uint64(keyReadings)])
	if m, ok := env[uint64(keyMeta)]; ok {
		d.Meta = decodeMeta(m)
	}

	if h, ok := env[uint64(keyHash)].([]byte); ok && len(h) == 32 {
		copy(d.Hash[:], h)
	}
	if s, ok := env[uint64(keySig)].([]byte); ok && len(s) == 64 {
		copy(d.Sig[:], s)
	}

	return d, nil
}
