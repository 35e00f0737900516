package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Purpose scopes a one-time token to a single flow
type Purpose string

const (
	PurposeEmailVerify   Purpose = "EMAIL_VERIFY"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
)

// expiredTokenRetention is how long expired tokens are kept before the
// janitor removes them
const expiredTokenRetention = 24 * time.Hour

// OneTimeToken is the stored form of an emailed token. The token value itself
// is never stored, only its hash.
type OneTimeToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Purpose    Purpose
	TokenHash  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired checks if the token has expired
func (t *OneTimeToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsConsumed checks if the token was already used or superseded
func (t *OneTimeToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// IsValid checks if the token can still be redeemed
func (t *OneTimeToken) IsValid(now time.Time) bool {
	return !t.IsConsumed() && !t.IsExpired(now)
}

// TokenManager issues and redeems email verification and password reset tokens
type TokenManager struct {
	store           OneTimeTokenStore
	users           UserRepository
	email           EmailService
	logger          *logging.Logger
	verificationTTL time.Duration
	resetTTL        time.Duration
	now             func() time.Time
}

func NewTokenManager(
	store OneTimeTokenStore,
	users UserRepository,
	email EmailService,
	logger *logging.Logger,
	verificationTTL time.Duration,
	resetTTL time.Duration,
) *TokenManager {
	return &TokenManager{
		store:           store,
		users:           users,
		email:           email,
		logger:          logger,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		now:             time.Now,
	}
}

// issue creates a token for (userID, purpose), superseding any live one,
// and returns the raw value to be emailed
func (m *TokenManager) issue(ctx context.Context, userID uuid.UUID, purpose Purpose) (string, error) {
	raw, err := generateRandomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	ttl := m.verificationTTL
	if purpose == PurposePasswordReset {
		ttl = m.resetTTL
	}

	now := m.now().UTC()
	t := &OneTimeToken{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashToken(raw),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.Issue(ctx, t); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", purpose, err)
	}

	return raw, nil
}

// consume redeems raw for purpose. When userID is given it must match the
// token's owner.
func (m *TokenManager) consume(ctx context.Context, purpose Purpose, raw string, userID *uuid.UUID) (*OneTimeToken, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	t, err := m.store.Consume(ctx, purpose, hashToken(raw), m.now().UTC())
	if err != nil {
		return nil, err
	}
	if userID != nil && *userID != t.UserID {
		return nil, ErrTokenUserMismatch
	}

	return t, nil
}

// SendEmailVerification issues a verification token for u and emails it.
// Delivery failures are logged, not returned.
func (m *TokenManager) SendEmailVerification(ctx context.Context, u *user.User) error {
	token, err := m.issue(ctx, u.ID, PurposeEmailVerify)
	if err != nil {
		return err
	}

	if err := m.email.SendVerificationEmail(ctx, u.Email, u.Name, token); err != nil {
		m.logger.Warn("failed to send verification email", "user_id", u.ID, "error", err)
	}
	return nil
}

// RequestPasswordReset emails a reset token when the account exists.
// Always returns nil to prevent email enumeration attacks.
func (m *TokenManager) RequestPasswordReset(ctx context.Context, email string) error {
	existingUser, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			m.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := m.issue(ctx, existingUser.ID, PurposePasswordReset)
	if err != nil {
		m.logger.Warn("failed to issue password reset token", "user_id", existingUser.ID, "error", err)
		return nil
	}

	if err := m.email.SendPasswordResetEmail(ctx, existingUser.Email, existingUser.Name, token); err != nil {
		m.logger.Warn("failed to send password reset email", "user_id", existingUser.ID, "error", err)
	}
	return nil
}

// ResendEmailVerification replaces the user's verification token with a new one
func (m *TokenManager) ResendEmailVerification(ctx context.Context, email string) error {
	existingUser, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if existingUser.EmailVerified {
		return ErrAlreadyVerified
	}

	return m.SendEmailVerification(ctx, existingUser)
}

// VerifyStudentEmail redeems an EMAIL_VERIFY token and marks the owner verified
func (m *TokenManager) VerifyStudentEmail(ctx context.Context, token string, userID *uuid.UUID) (*user.User, error) {
	t, err := m.consume(ctx, PurposeEmailVerify, token, userID)
	if err != nil {
		return nil, err
	}

	if err := m.users.MarkEmailAsVerified(ctx, t.UserID); err != nil {
		return nil, err
	}

	verified, err := m.users.GetByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// ConsumePasswordReset redeems a PASSWORD_RESET token and returns its owner
func (m *TokenManager) ConsumePasswordReset(ctx context.Context, token string, userID *uuid.UUID) (uuid.UUID, error) {
	t, err := m.consume(ctx, PurposePasswordReset, token, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return t.UserID, nil
}

// InvalidatePasswordResets consumes every outstanding reset token of the user
func (m *TokenManager) InvalidatePasswordResets(ctx context.Context, userID uuid.UUID) error {
	return m.store.InvalidateAll(ctx, userID, PurposePasswordReset, m.now().UTC())
}

// RunJanitor deletes long-expired tokens every interval until ctx is done
func (m *TokenManager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(ctx)
		}
	}
}

func (m *TokenManager) cleanup(ctx context.Context) {
	deleted, err := m.store.DeleteExpired(ctx, m.now().UTC().Add(-expiredTokenRetention))
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("failed to delete expired tokens", "error", err)
		}
		return
	}
	if deleted > 0 {
		m.logger.Info("deleted expired one-time tokens", "count", deleted)
	}
}
