package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// TokenService defines the interface for bearer token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(u *user.User) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserRepository is the credential store persistence used by the auth core.
// *user.Repository satisfies it.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	TouchLastActive(ctx context.Context, userID uuid.UUID, at time.Time) error
	ListPendingTutors(ctx context.Context) ([]*user.User, error)
	TransitionApproval(ctx context.Context, userID uuid.UUID, from, to user.ApprovalStatus) (bool, error)
}

// OneTimeTokenStore persists hashed one-time tokens.
// Implementations: Repository (PostgreSQL via bun) and RedisRepository.
type OneTimeTokenStore interface {
	// Issue saves t as the only live token for (t.UserID, t.Purpose),
	// consuming any previous live token atomically.
	Issue(ctx context.Context, t *OneTimeToken) error
	// Consume marks the token with the given hash consumed and returns it.
	// Returns ErrTokenInvalid for unknown or used tokens and ErrTokenExpired
	// for tokens past their expiry.
	Consume(ctx context.Context, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error)
	// InvalidateAll consumes every live token of purpose for the user
	InvalidateAll(ctx context.Context, userID uuid.UUID, purpose Purpose, now time.Time) error
	// DeleteExpired removes tokens that expired before the cutoff
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error
	SendTutorApprovedEmail(ctx context.Context, toEmail, name string) error
	SendTutorRejectedEmail(ctx context.Context, toEmail, name string) error
}
