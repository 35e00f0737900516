package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

const minJWTSecretLen = 32

type jwtClaims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 bearer tokens
type JWTService struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewJWTService(secret []byte, duration time.Duration) (*JWTService, error) {
	if len(secret) < minJWTSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", minJWTSecretLen, len(secret))
	}
	if duration <= 0 {
		return nil, fmt.Errorf("token duration must be positive")
	}

	return &JWTService{
		secret:   secret,
		duration: duration,
		now:      time.Now,
	}, nil
}

// CreateToken issues a signed token for u valid for the configured duration
func (s *JWTService) CreateToken(u *user.User) (string, error) {
	now := s.now()

	claims := jwtClaims{
		UserID: u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the claims
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || claims.Email == "" || claims.Role == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
