package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// TokenClaims represents the claims carried by a bearer token
type TokenClaims struct {
	UserID    string    `json:"id"` // UUID stored as string in token
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// SubjectID parses the user id claim
func (c *TokenClaims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken is the storage form of a one-time token. Only hashes are persisted
// so a leaked table cannot be replayed.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
