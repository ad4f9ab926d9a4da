package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretSize is the byte length of generated signing secrets.
const SecretSize = 32

// GenerateSecret returns a random hex-encoded secret of SecretSize bytes.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
