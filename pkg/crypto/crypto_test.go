package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	data := []byte("mycobrain telemetry")

	h1 := Hash(data)
	h2 := Hash(data)
	if h1 != h2 {
		t.Error("Hash() not deterministic")
	}

	h3 := Hash([]byte("mycobrain telemetrz"))
	if h1 == h3 {
		t.Error("Hash() collision on different input")
	}
}

func TestHashString(t *testing.T) {
	s := HashString([]byte("abc"))
	if len(s) != 64 {
		t.Errorf("HashString() length = %d, want 64", len(s))
	}
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	hash := Hash([]byte("envelope bytes"))
	sig := Sign(priv, hash)

	if !Verify(pub, hash, sig) {
		t.Error("Verify() = false for valid signature")
	}

	otherHash := Hash([]byte("tampered bytes"))
	if Verify(pub, otherHash, sig) {
		t.Error("Verify() = true for wrong hash")
	}

	sig[0] ^= 0xFF
	if Verify(pub, hash, sig) {
		t.Error("Verify() = true for corrupted signature")
	}
}

func TestPlaceholderSignature(t *testing.T) {
	hash := Hash([]byte("bring-up"))

	sig := PlaceholderSignature(hash)
	if !IsPlaceholderSignature(hash, sig) {
		t.Error("IsPlaceholderSignature() = false for placeholder")
	}

	_, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	real := Sign(priv, hash)
	if IsPlaceholderSignature(hash, real) {
		t.Error("IsPlaceholderSignature() = true for real signature")
	}
}

func TestKeyPEMRoundtrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	privPEM, err := ExportPrivateKeyPEM(priv)
	if err != nil {
		t.Fatalf("ExportPrivateKeyPEM() error = %v", err)
	}
	pubPEM, err := ExportPublicKeyPEM(pub)
	if err != nil {
		t.Fatalf("ExportPublicKeyPEM() error = %v", err)
	}

	privBack, err := ImportPrivateKeyPEM(privPEM)
	if err != nil {
		t.Fatalf("ImportPrivateKeyPEM() error = %v", err)
	}
	pubBack, err := ImportPublicKeyPEM(pubPEM)
	if err != nil {
		t.Fatalf("ImportPublicKeyPEM() error = %v", err)
	}

	hash := Hash([]byte("roundtrip"))
	if !Verify(pubBack, hash, Sign(privBack, hash)) {
		t.Error("Verify() = false after PEM roundtrip")
	}
}

func TestImportInvalidPEM(t *testing.T) {
	if _, err := ImportPrivateKeyPEM([]byte("not pem")); err != ErrInvalidKey {
		t.Errorf("ImportPrivateKeyPEM() error = %v, want %v", err, ErrInvalidKey)
	}
	if _, err := ImportPublicKeyPEM([]byte("not pem")); err != ErrInvalidKey {
		t.Errorf("ImportPublicKeyPEM() error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestKeyFileRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.pem")

	_, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	pemData, err := ExportPrivateKeyPEM(priv)
	if err != nil {
		t.Fatalf("ExportPrivateKeyPEM() error = %v", err)
	}

	if err := SaveKeyToFile(path, pemData); err != nil {
		t.Fatalf("SaveKeyToFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadKeyFromFile(path)
	if err != nil {
		t.Fatalf("LoadKeyFromFile() error = %v", err)
	}
	if _, err := ImportPrivateKeyPEM(loaded); err != nil {
		t.Fatalf("ImportPrivateKeyPEM() error = %v", err)
	}
}
