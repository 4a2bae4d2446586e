package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const updateTokenBytes = 32

// GenerateUpdateToken returns a URL-safe single-use token for member
// self-service profile edits.
func GenerateUpdateToken() (string, error) {
	buf := make([]byte, updateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate update token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
