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

var (
	ErrCorruptCredential = errors.New("credential ciphertext is corrupt or was not produced by this vault")
	ErrEmptyPlaintext    = errors.New("plaintext must not be empty")
)

// ciphertextPrefix tags values produced by this vault so foreign blobs are
// rejected before any decryption is attempted.
const ciphertextPrefix = "dv1:"

// Vault encrypts and decrypts provider credentials with AES-256-GCM using a
// single process-wide key derived from the configured master secret.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives a 32-byte key from the master secret via HKDF-SHA256 and
// prepares the AEAD. The same secret always yields the same key, so values
// encrypted by one process decrypt in the next.
func NewVault(masterSecret string) (*Vault, error) {
	if masterSecret == "" {
		return nil, errors.New("master secret is required")
	}

	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("datavault-credential-vault"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving vault key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext and returns a printable ciphertext of the form
// "dv1:" + base64(nonce || sealed).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return ciphertextPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any ciphertext that was not produced by this
// vault's key and scheme fails with ErrCorruptCredential.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	payload, found := strings.CutPrefix(ciphertext, ciphertextPrefix)
	if !found || payload == "" {
		return "", ErrCorruptCredential
	}

	sealed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrCorruptCredential
	}
	if len(sealed) < v.aead.NonceSize() {
		return "", ErrCorruptCredential
	}

	nonce, body := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", ErrCorruptCredential
	}

	return string(plaintext), nil
}
