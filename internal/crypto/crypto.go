// Package crypto provides AES-256-GCM encryption for OAuth credentials stored at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes)
	KeySize = 32
	// NonceSize is the standard size for GCM nonces (12 bytes)
	NonceSize = 12
	// TagSize is the size of the GCM authentication tag (16 bytes)
	TagSize = 16

	separator = ":"
)

var (
	ErrInvalidKeySize      = errors.New("encryption key must be 32 bytes for AES-256")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrDecryptionFailed    = errors.New("decryption failed: authentication error")
)

// Vault encrypts and decrypts credential strings.
//
// A Vault without a key is a passthrough: Encrypt and Decrypt return their
// input unchanged. Ciphertext produced with a key has the form
// hex(nonce):hex(tag):hex(body). Rotating the key makes every previously
// stored ciphertext undecryptable.
type Vault struct {
	key []byte
}

// NewVault creates a Vault with the given raw key.
// A nil or empty key yields a passthrough vault.
func NewVault(key []byte) (*Vault, error) {
	if len(key) == 0 {
		return &Vault{}, nil
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	// Copy key to avoid external mutation
	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)

	return &Vault{key: keyCopy}, nil
}

// NewVaultFromHex creates a Vault from a hex-encoded key.
// An empty key yields a passthrough vault and logs a warning.
func NewVaultFromHex(encodedKey string, logger *zap.Logger) (*Vault, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	encodedKey = strings.TrimSpace(encodedKey)
	if encodedKey == "" {
		logger.Warn("token encryption disabled: ENCRYPTION_KEY is not set, credentials are stored in plaintext")
		return &Vault{}, nil
	}

	key, err := hex.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	return NewVault(key)
}

// Enabled reports whether the vault encrypts.
func (v *Vault) Enabled() bool {
	return len(v.key) > 0
}

// Key returns a copy of the raw key, or nil for a passthrough vault.
func (v *Vault) Key() []byte {
	if !v.Enabled() {
		return nil
	}
	out := make([]byte, len(v.key))
	copy(out, v.key)
	return out
}

// Encrypt encrypts plaintext with a fresh random nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.Enabled() {
		return plaintext, nil
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the tag to the body
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	body := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	}, separator), nil
}

// Decrypt reverses Encrypt. It never returns partially decrypted data:
// malformed input and tag mismatches both yield an error.
func (v *Vault) Decrypt(payload string) (string, error) {
	if !v.Enabled() {
		return payload, nil
	}

	parts := strings.Split(payload, separator)
	if len(parts) != 3 {
		return "", ErrMalformedCiphertext
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != NonceSize {
		return "", ErrMalformedCiphertext
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return "", ErrMalformedCiphertext
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	gcm, err := v.gcm()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (v *Vault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// GenerateKey generates a new random 32-byte key for AES-256.
// Returns the key as a hex-encoded string.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
