package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tutorhub-identity/internal/database"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Repository handles one-time token persistence in PostgreSQL
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Issue stores t and consumes the user's previous live token of the same
// purpose. The user row is locked so concurrent issuers serialize.
func (r *Repository) Issue(ctx context.Context, t *OneTimeToken) error {
	dbToken := mapModelToDBToken(t)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var id uuid.UUID
		err := tx.NewSelect().
			Model((*database.User)(nil)).
			Column("id").
			Where("id = ?", t.UserID).
			For("UPDATE").
			Scan(ctx, &id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return user.ErrNotFound
			}
			return err
		}

		_, err = tx.NewUpdate().
			Model((*database.OneTimeToken)(nil)).
			Set("consumed_at = ?", t.IssuedAt).
			Where("user_id = ?", t.UserID).
			Where("purpose = ?", string(t.Purpose)).
			Where("consumed_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewInsert().Model(dbToken).Exec(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to issue token: %w", err)
	}

	return nil
}

// Consume marks the live token with the given hash consumed in a single
// conditional update, so only one caller can redeem it
func (r *Repository) Consume(ctx context.Context, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error) {
	dbToken := new(database.OneTimeToken)
	err := r.db.NewUpdate().
		Model(dbToken).
		Set("consumed_at = ?", now).
		Where("token_hash = ?", tokenHash).
		Where("purpose = ?", string(purpose)).
		Where("consumed_at IS NULL").
		Where("expires_at > ?", now).
		Returning("*").
		Scan(ctx)
	if err == nil {
		return mapDBTokenToModel(dbToken), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	// Nothing redeemed; tell an expired token apart from an unknown one
	existing := new(database.OneTimeToken)
	err = r.db.NewSelect().
		Model(existing).
		Where("token_hash = ?", tokenHash).
		Where("purpose = ?", string(purpose)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	t := mapDBTokenToModel(existing)
	if !t.IsConsumed() && t.IsExpired(now) {
		return nil, ErrTokenExpired
	}
	return nil, ErrTokenInvalid
}

// InvalidateAll consumes every live token of purpose held by the user
func (r *Repository) InvalidateAll(ctx context.Context, userID uuid.UUID, purpose Purpose, now time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*database.OneTimeToken)(nil)).
		Set("consumed_at = ?", now).
		Where("user_id = ?", userID).
		Where("purpose = ?", string(purpose)).
		Where("consumed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to invalidate tokens: %w", err)
	}

	return nil
}

// DeleteExpired removes tokens that expired before the cutoff
func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.OneTimeToken)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rowsAffected, nil
}

func mapModelToDBToken(t *OneTimeToken) *database.OneTimeToken {
	return &database.OneTimeToken{
		ID:         t.ID,
		UserID:     t.UserID,
		Purpose:    string(t.Purpose),
		TokenHash:  t.TokenHash,
		IssuedAt:   t.IssuedAt,
		ExpiresAt:  t.ExpiresAt,
		ConsumedAt: t.ConsumedAt,
	}
}

// mapDBTokenToModel converts database model to domain model
func mapDBTokenToModel(dbt *database.OneTimeToken) *OneTimeToken {
	return &OneTimeToken{
		ID:         dbt.ID,
		UserID:     dbt.UserID,
		Purpose:    Purpose(dbt.Purpose),
		TokenHash:  dbt.TokenHash,
		IssuedAt:   dbt.IssuedAt,
		ExpiresAt:  dbt.ExpiresAt,
		ConsumedAt: dbt.ConsumedAt,
	}
}
