package utils

import (
	"errors" // Sentinel errors
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Verification failures collapse to these two kinds; the HTTP layer maps
// both to the same opaque 401 so a caller cannot probe which check failed.
var (
	ErrSessionInvalid = errors.New("session token invalid") // Parse failure or signature mismatch
	ErrSessionExpired = errors.New("session token expired") // Past the embedded expiry
)

// SessionClaims is the payload of a signed session token
type SessionClaims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims      // Standard JWT claims (iat, exp)
}

// IssueSessionToken creates a signed session token for a given user ID
func IssueSessionToken(userID uint, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour // Default session lifetime
	}
	now := time.Now()
	claims := SessionClaims{
		UserID: userID, // Custom claim for user ID
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Embedded expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// VerifySessionToken parses a session token and checks signature and expiry
func VerifySessionToken(tokenStr, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		// Reject any signing method other than the one tokens are issued with
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return []byte(secret), nil // Return the secret key for validation
	})
	if err != nil {
		// Expiry is kept distinct for logs and tests; everything else
		// (malformed token, bad signature) is one opaque kind
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
