// Package crypto implements the symmetric codec used to protect stored
// credential passwords.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const prefix = "gcm:"

// ErrDecryption is returned when a ciphertext is malformed, was produced
// under a different key, or fails integrity verification.
var ErrDecryption = errors.New("crypto: decryption failed")

// Codec encrypts and decrypts credential passwords with AES-256-GCM.
// The key is derived from an injected secret so deployments can rotate it
// out-of-band and tests can supply deterministic keys.
type Codec struct {
	aead cipher.AEAD
}

// New derives an AES-256 key from secret via HKDF-SHA256 and returns a
// ready-to-use codec.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("crypto: empty encryption secret")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("keyfold credential encryption v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: init gcm: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. Encrypting the same
// plaintext twice yields different ciphertexts.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return prefix +
		base64.RawStdEncoding.EncodeToString(nonce) + ":" +
		base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any malformed payload,
// wrong key, or failed tag check yields an error wrapping ErrDecryption;
// it never silently returns an empty or garbage plaintext.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, prefix) {
		return "", fmt.Errorf("%w: missing payload prefix", ErrDecryption)
	}

	parts := strings.SplitN(strings.TrimPrefix(ciphertext, prefix), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed payload", ErrDecryption)
	}

	nonce, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: invalid nonce encoding", ErrDecryption)
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", ErrDecryption)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce size", ErrDecryption)
	}

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: integrity check failed", ErrDecryption)
	}
	return string(plain), nil
}

// IsEncrypted reports whether value carries the codec's payload prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, prefix)
}
