package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Method is the only code challenge method we support
const Method = "S256"

// CodeVerifier holds a PKCE code verifier (RFC 7636)
type CodeVerifier struct {
	Value string
}

// CreateCodeVerifier generates a new random code verifier
func CreateCodeVerifier() (*CodeVerifier, error) {
	value, err := randomURLString(32)
	if err != nil {
		return nil, err
	}
	return &CodeVerifier{Value: value}, nil
}

func (v *CodeVerifier) String() string {
	return v.Value
}

// CodeChallengeS256 derives the S256 challenge for the verifier
func (v *CodeVerifier) CodeChallengeS256() string {
	sum := sha256.Sum256([]byte(v.Value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomURLString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
