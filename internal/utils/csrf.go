package utils

import (
	"crypto/hmac"     // Keyed hashing for token derivation and comparison
	"crypto/rand"     // Secret cookie value generation
	"crypto/sha256"   // HMAC hash function
	"encoding/base64" // Secret cookie encoding
	"encoding/hex"    // Public token encoding
)

// The guard is a double-submit pair: a random secret delivered as an
// HTTP-only cookie, and a public token derived from it with a server-held
// key. A mutating request must echo the public token; the server recomputes
// it from the cookie and compares. No token state is kept server-side.

// MintCSRF generates a new secret cookie value and its public token
func MintCSRF(secret string) (publicToken, cookieValue string, err error) {
	buf := make([]byte, 32) // 32 random bytes for the secret half
	if _, err := rand.Read(buf); err != nil {
		return "", "", err // Entropy failure
	}
	cookieValue = base64.RawURLEncoding.EncodeToString(buf) // Cookie-safe encoding
	publicToken = deriveCSRF(secret, cookieValue)           // Public half derived from the secret half
	return publicToken, cookieValue, nil
}

// ValidateCSRF checks a presented public token against the secret cookie value
func ValidateCSRF(secret, publicToken, cookieValue string) bool {
	if publicToken == "" || cookieValue == "" {
		return false // Missing either half rejects
	}
	expected := deriveCSRF(secret, cookieValue) // Recompute the expected public token
	// Constant-time comparison to avoid timing leakage
	return hmac.Equal([]byte(expected), []byte(publicToken))
}

// deriveCSRF computes the public token for a given secret cookie value
func deriveCSRF(secret, cookieValue string) string {
	mac := hmac.New(sha256.New, []byte(secret)) // HMAC-SHA256 keyed with the server secret
	mac.Write([]byte(cookieValue))              // Over the cookie value
	return hex.EncodeToString(mac.Sum(nil))     // 64-character hex token
}
