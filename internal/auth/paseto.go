package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte, duration time.Duration) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}
	if duration <= 0 {
		return nil, fmt.Errorf("token duration must be positive")
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
		duration:     duration,
		now:          time.Now,
	}, nil
}

// CreateToken generates a new PASETO v4.local token for u
func (s *PasetoService) CreateToken(u *user.User) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(s.duration))
	token.SetString("id", u.ID.String())
	token.SetString("name", u.Name)
	token.SetString("email", u.Email)
	token.SetString("role", string(u.Role))

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a PASETO v4.local token and returns the claims.
// Expiry is checked against the service clock rather than the parser's.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{IssuedAt: issuedAt, ExpiresAt: expiresAt}
	for key, dst := range map[string]*string{
		"id":    &claims.UserID,
		"name":  &claims.Name,
		"email": &claims.Email,
		"role":  &claims.Role,
	} {
		v, err := token.GetString(key)
		if err != nil {
			return nil, ErrInvalidToken
		}
		*dst = v
	}
	if claims.UserID == "" || claims.Email == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
