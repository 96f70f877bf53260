package durable

import "errors"

// Identity key layout
const (
	keyDeviceRole = "dev_role"
	keyDeviceDisp = "dev_disp"

	maxRoleLen = 31
	maxDispLen = 63
)

var ErrIdentityTooLong = errors.New("identity string too long")

// Identity persists the externally-provisioned device identity strings
type Identity struct {
	kv KV
}

// NewIdentity wraps a kv store
func NewIdentity(kv KV) *Identity {
	return &Identity{kv: kv}
}

// Role returns the persisted device role, or the fallback when unset
func (id *Identity) Role(fallback string) string {
	raw, ok, err := id.kv.Get(keyDeviceRole)
	if err != nil || !ok || len(raw) == 0 {
		return fallback
	}
	return string(raw)
}

// SetRole persists the device role (max 31 bytes)
func (id *Identity) SetRole(role string) error {
	if len(role) > maxRoleLen {
		return ErrIdentityTooLong
	}
	return id.kv.Put(keyDeviceRole, []byte(role))
}

// DisplayName returns the persisted display name, or the fallback
func (id *Identity) DisplayName(fallback string) string {
	raw, ok, err := id.kv.Get(keyDeviceDisp)
	if err != nil || !ok || len(raw) == 0 {
		return fallback
	}
	return string(raw)
}

// SetDisplayName persists the display name (max 63 bytes)
func (id *Identity) SetDisplayName(name string) error {
	if len(name) > maxDispLen {
		return ErrIdentityTooLong
	}
	return id.kv.Put(keyDeviceDisp, []byte(name))
}
