package user

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTutor:
		return RoleTutor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	default:
		return false
	}
}

// ApprovalStatus tracks the admin review of a tutor account.
// Students and admins carry ApprovalNone.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type User struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	PasswordHash   string         `json:"-"` // Never expose password hash in JSON
	Role           Role           `json:"role"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus,omitempty"`
	EmailVerified  bool           `json:"isEmailVerified"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	LastActiveAt   *time.Time     `json:"lastActive,omitempty"`

	Student *StudentProfile `json:"student,omitempty"`
	Tutor   *TutorProfile   `json:"tutor,omitempty"`
}

type StudentProfile struct {
	CreatedAt time.Time `json:"createdAt"`
}

type TutorProfile struct {
	Bio        string   `json:"bio"`
	Subjects   []string `json:"subjects"`
	Rating     float64  `json:"rating"`
	Reviews    int      `json:"reviews"`
	Experience int      `json:"experience"`
}

// MarshalJSON adds the derived isApproved flag. Students and admins are
// reported as approved since only tutors go through review.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		IsApproved bool `json:"isApproved"`
	}{
		plain:      plain(u),
		IsApproved: u.Role != RoleTutor || u.IsApproved(),
	})
}

// IsApproved reports whether the account passed tutor review.
// Only meaningful for tutors.
func (u *User) IsApproved() bool {
	return u.ApprovalStatus == ApprovalApproved
}

// CanAuthenticate reports whether the role/approval state allows a session
func (u *User) CanAuthenticate() bool {
	switch u.Role {
	case RoleTutor:
		return u.IsApproved()
	case RoleStudent, RoleAdmin:
		return true
	default:
		return false
	}
}

// CheckProfile enforces that the role owns exactly the matching profile
func (u *User) CheckProfile() error {
	switch u.Role {
	case RoleStudent:
		if u.Student == nil || u.Tutor != nil {
			return fmt.Errorf("student %s must have exactly a student profile", u.ID)
		}
	case RoleTutor:
		if u.Tutor == nil || u.Student != nil {
			return fmt.Errorf("tutor %s must have exactly a tutor profile", u.ID)
		}
	case RoleAdmin:
		if u.Tutor != nil || u.Student != nil {
			return fmt.Errorf("admin %s must not have a profile", u.ID)
		}
	default:
		return fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
	}
	return nil
}

// NormalizeEmail is the canonical form used for storage and lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
