package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// downloadTokenBytes gives 256 bits of entropy, enough that download tokens
// cannot be guessed or enumerated.
const downloadTokenBytes = 32

// NewDownloadToken returns a random, URL-safe token for export downloads.
func NewDownloadToken() (string, error) {
	buf := make([]byte, downloadTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating download token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
