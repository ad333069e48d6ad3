package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierEntropyBytes is well above the 32-byte floor the PKCE spec
// recommends for the verifier secret.
const verifierEntropyBytes = 64

// pkcePair binds a verifier to its S256 challenge. A pair belongs to
// exactly one authorization attempt and must never be reused.
type pkcePair struct {
	verifier  string
	challenge string
}

func newPKCEPair() (pkcePair, error) {
	buf := make([]byte, verifierEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return pkcePair{}, fmt.Errorf("failed to generate pkce verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	return pkcePair{verifier: verifier, challenge: challenge}, nil
}
