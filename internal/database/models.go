package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted shape of a user account
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	Name           string     `bun:"name,notnull"`
	Email          string     `bun:"email,notnull"`
	PasswordHash   string     `bun:"password_hash,notnull"`
	Role           string     `bun:"role,notnull"`
	ApprovalStatus string     `bun:"approval_status,notnull"`
	EmailVerified  bool       `bun:"email_verified,notnull"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
	LastActiveAt   *time.Time `bun:"last_active_at"`

	Student *StudentProfile `bun:"rel:has-one,join:id=user_id"`
	Tutor   *TutorProfile   `bun:"rel:has-one,join:id=user_id"`
}

// StudentProfile is attached 1:1 to users with role STUDENT
type StudentProfile struct {
	bun.BaseModel `bun:"table:student_profiles,alias:sp"`

	UserID    uuid.UUID `bun:"user_id,pk,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// TutorProfile is attached 1:1 to users with role TUTOR
type TutorProfile struct {
	bun.BaseModel `bun:"table:tutor_profiles,alias:tp"`

	UserID     uuid.UUID `bun:"user_id,pk,type:uuid"`
	Bio        string    `bun:"bio,notnull"`
	Subjects   []string  `bun:"subjects,array"`
	Rating     float64   `bun:"rating,notnull"`
	Reviews    int       `bun:"reviews,notnull"`
	Experience int       `bun:"experience,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

// OneTimeToken stores the hash of an emailed verification or reset token
type OneTimeToken struct {
	bun.BaseModel `bun:"table:one_time_tokens,alias:ott"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID     uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	Purpose    string     `bun:"purpose,notnull"`
	TokenHash  string     `bun:"token_hash,notnull"`
	IssuedAt   time.Time  `bun:"issued_at,notnull"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull"`
	ConsumedAt *time.Time `bun:"consumed_at"`
}
