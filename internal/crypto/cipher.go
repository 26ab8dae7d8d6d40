package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// keyAlg names the session key algorithm inside exported keys, so an
// importer can reject keys minted for something else.
const keyAlg = "XC20P"

// exportedKey is the JSON envelope a session key travels in when it is
// embedded in a share URL fragment.
type exportedKey struct {
	Alg string `json:"alg"`
	K   string `json:"k"`
}

// SessionKey encrypts one bill's snapshots. A fresh key is minted per
// bill when sharing starts and handed to recipients inside the share
// URL; rotating the bill's share means minting a new one.
type SessionKey struct {
	key []byte
}

// NewSessionKey mints a random XChaCha20-Poly1305 key.
func NewSessionKey() (*SessionKey, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return &SessionKey{key: key}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext). A
// random nonce is drawn per call, so encrypting the same payload twice
// yields different blobs.
func (k *SessionKey) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(k.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails if the blob was tampered with or
// was sealed under a different key.
func (k *SessionKey) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	aead, err := chacha20poly1305.NewX(k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(sealed))
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// ExportKey serializes the key for embedding in a URL fragment:
// unpadded base64url over a small JSON envelope naming the algorithm.
func (k *SessionKey) ExportKey() (string, error) {
	env := exportedKey{
		Alg: keyAlg,
		K:   base64.RawURLEncoding.EncodeToString(k.key),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to export session key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ImportKey parses a key produced by ExportKey.
func ImportKey(exported string) (*SessionKey, error) {
	data, err := base64.RawURLEncoding.DecodeString(exported)
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	var env exportedKey
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid key envelope: %w", err)
	}
	if env.Alg != keyAlg {
		return nil, fmt.Errorf("unsupported key algorithm %q", env.Alg)
	}
	key, err := base64.RawURLEncoding.DecodeString(env.K)
	if err != nil {
		return nil, fmt.Errorf("invalid key material encoding: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key length: got %d bytes, want %d", len(key), chacha20poly1305.KeySize)
	}
	return &SessionKey{key: key}, nil
}
