package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tutorhub-identity/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user together with the profile its role requires.
// ID and timestamps are assigned here when unset.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := u.CheckProfile(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	dbUser := mapModelToDBUser(u)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(dbUser).Exec(ctx); err != nil {
			return err
		}
		switch u.Role {
		case RoleStudent:
			profile := &database.StudentProfile{UserID: u.ID, CreatedAt: now}
			if _, err := tx.NewInsert().Model(profile).Exec(ctx); err != nil {
				return err
			}
			u.Student.CreatedAt = now
		case RoleTutor:
			if u.Tutor.Subjects == nil {
				u.Tutor.Subjects = []string{}
			}
			profile := &database.TutorProfile{
				UserID:     u.ID,
				Bio:        u.Tutor.Bio,
				Subjects:   u.Tutor.Subjects,
				Rating:     u.Tutor.Rating,
				Reviews:    u.Tutor.Reviews,
				Experience: u.Tutor.Experience,
				CreatedAt:  now,
			}
			if _, err := tx.NewInsert().Model(profile).Exec(ctx); err != nil {
				return err
			}
		case RoleAdmin:
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Relation("Student").
		Relation("Tutor").
		Where("LOWER(u.email) = ?", NormalizeEmail(email)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Relation("Student").
		Relation("Tutor").
		Where("u.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkEmailAsVerified flags the user's email as verified
func (r *Repository) MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email_verified = ?", true).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	return requireRow(result)
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRow(result)
}

// TouchLastActive records the time of the user's latest login
func (r *Repository) TouchLastActive(ctx context.Context, userID uuid.UUID, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_active_at = ?", at).
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}

	return requireRow(result)
}

// ListPendingTutors returns tutors awaiting review, oldest first
func (r *Repository) ListPendingTutors(ctx context.Context) ([]*User, error) {
	var dbUsers []database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		Relation("Tutor").
		Where("u.role = ?", string(RoleTutor)).
		Where("u.approval_status = ?", string(ApprovalPending)).
		OrderExpr("u.created_at ASC, u.id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list pending tutors: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}
	return users, nil
}

// TransitionApproval moves a tutor from one approval status to another in a
// single conditional update. It reports false, without error, when the tutor
// exists but is not in the from state, so concurrent callers see exactly one
// winner.
func (r *Repository) TransitionApproval(ctx context.Context, userID uuid.UUID, from, to ApprovalStatus) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("approval_status = ?", string(to)).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("role = ?", string(RoleTutor)).
		Where("approval_status = ?", string(from)).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to update approval status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:             dbu.ID,
		Name:           dbu.Name,
		Email:          dbu.Email,
		PasswordHash:   dbu.PasswordHash,
		Role:           Role(dbu.Role),
		ApprovalStatus: ApprovalStatus(dbu.ApprovalStatus),
		EmailVerified:  dbu.EmailVerified,
		CreatedAt:      dbu.CreatedAt,
		UpdatedAt:      dbu.UpdatedAt,
		LastActiveAt:   dbu.LastActiveAt,
	}
	// LEFT JOINed relations may come back zero-valued, attach only what the role owns
	if u.Role == RoleStudent && dbu.Student != nil {
		u.Student = &StudentProfile{CreatedAt: dbu.Student.CreatedAt}
	}
	if u.Role == RoleTutor && dbu.Tutor != nil {
		subjects := dbu.Tutor.Subjects
		if subjects == nil {
			subjects = []string{}
		}
		u.Tutor = &TutorProfile{
			Bio:        dbu.Tutor.Bio,
			Subjects:   subjects,
			Rating:     dbu.Tutor.Rating,
			Reviews:    dbu.Tutor.Reviews,
			Experience: dbu.Tutor.Experience,
		}
	}
	return u
}

func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		ApprovalStatus: string(u.ApprovalStatus),
		EmailVerified:  u.EmailVerified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		LastActiveAt:   u.LastActiveAt,
	}
}
