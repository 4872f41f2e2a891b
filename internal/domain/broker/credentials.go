package broker

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// APIKeyPrefix marks marketplace broker keys
const APIKeyPrefix = "tlm_"

// Credentials is a freshly issued key pair. Secret is plaintext and must be
// shown to the broker once, then discarded.
type Credentials struct {
	APIKey string
	Secret string
}

// GenerateCredentials issues a new API key and secret
func GenerateCredentials() (Credentials, error) {
	key, err := randomHex(32)
	if err != nil {
		return Credentials{}, fmt.Errorf("generate api key: %w", err)
	}
	secret, err := generateSecret()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{APIKey: APIKeyPrefix + key, Secret: secret}, nil
}

// LooksLikeAPIKey performs a cheap shape check before a database lookup
func LooksLikeAPIKey(key string) bool {
	return strings.HasPrefix(key, APIKeyPrefix) && len(key) == len(APIKeyPrefix)+64
}

func generateSecret() (string, error) {
	s, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("generate api secret: %w", err)
	}
	return s, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
