package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCodeVerifier(t *testing.T) {
	assert := assert.New(t)

	v, err := CreateCodeVerifier()
	require.NoError(t, err)

	// 32 random bytes, base64url without padding
	assert.Len(v.String(), 43)

	// Should not repeat
	v2, err := CreateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(v.String(), v2.String())
}

func TestCodeChallengeS256(t *testing.T) {
	assert := assert.New(t)

	v := &CodeVerifier{Value: "test-verifier"}
	sum := sha256.Sum256([]byte("test-verifier"))
	assert.Equal(base64.RawURLEncoding.EncodeToString(sum[:]), v.CodeChallengeS256())
}
