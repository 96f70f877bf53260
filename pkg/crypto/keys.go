package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
)

var ErrInvalidKey = errors.New("invalid key")

// GenerateKeyPair generates a new Ed25519 key pair
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// ExportPrivateKeyPEM exports a private key to PEM format
func ExportPrivateKeyPEM(key ed25519.PrivateKey) ([]byte, error) {
	privASN1, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	privBlock := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privASN1,
	}

	return pem.EncodeToMemory(privBlock), nil
}

// ExportPublicKeyPEM exports a public key to PEM format
func ExportPublicKeyPEM(key ed25519.PublicKey) ([]byte, error) {
	pubASN1, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}

	pubBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubASN1,
	}

	return pem.EncodeToMemory(pubBlock), nil
}

// ImportPrivateKeyPEM imports a private key from PEM format
func ImportPrivateKeyPEM(pemData []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidKey
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrInvalidKey
	}

	return edKey, nil
}

// ImportPublicKeyPEM imports a public key from PEM format
func ImportPublicKeyPEM(pemData []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrInvalidKey
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	edKey, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}

	return edKey, nil
}

// LoadKeyFromFile loads PEM data from a file
func LoadKeyFromFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// SaveKeyToFile saves PEM data to a file with restricted permissions
func SaveKeyToFile(path string, pemData []byte) error {
	return os.WriteFile(path, pemData, 0600)
}
