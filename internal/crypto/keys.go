// Package crypto holds the key material handling for shared bills:
// an ed25519 identity key that signs every published snapshot, and a
// per-bill XChaCha20-Poly1305 session key that encrypts it. The relay
// only ever sees ciphertext; the session key travels in the share URL
// fragment, which browsers do not send over the wire.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrNoSigningKey is returned when an operation needs the device
// signing key and none has been generated or loaded.
var ErrNoSigningKey = errors.New("no signing key available")

// SigningKey is the device's long-lived ed25519 identity. Recipients
// pin the public half on first import and verify every later update
// against it.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// GenerateSigningKey creates a fresh ed25519 key pair.
func GenerateSigningKey() (*SigningKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &SigningKey{priv: priv}, nil
}

// SigningKeyFromSeed rebuilds a key pair from a stored 32-byte seed.
// The same seed always yields the same public key.
func SigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid signing key seed: got %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return &SigningKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed to persist. The caller owns keeping it
// out of anything that leaves the device.
func (k *SigningKey) Seed() []byte {
	return k.priv.Seed()
}

// Sign signs data and returns the signature base64-encoded.
func (k *SigningKey) Sign(data []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(k.priv, data))
}

// PublicKeyB64 returns the base64-encoded public key, the form embedded
// in published payloads.
func (k *SigningKey) PublicKeyB64() string {
	pub := k.priv.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}

// Verify checks signatureB64 over data against a base64-encoded public
// key. A nil return means the signature is genuine.
func Verify(publicKeyB64 string, data []byte, signatureB64 string) error {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return fmt.Errorf("invalid public key encoding: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key: got %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return errors.New("signature verification failed")
	}
	return nil
}
