package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

const maxEmailLength = 254

// Service handles credential and session business logic
type Service struct {
	userRepo                 UserRepository
	tokenService             TokenService
	tokens                   *TokenManager
	hasher                   *PasswordHasher
	logger                   *logging.Logger
	requireEmailVerification bool
	now                      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(
	userRepo UserRepository,
	tokenService TokenService,
	tokens *TokenManager,
	hasher *PasswordHasher,
	logger *logging.Logger,
	requireEmailVerification bool,
) *Service {
	return &Service{
		userRepo:                 userRepo,
		tokenService:             tokenService,
		tokens:                   tokens,
		hasher:                   hasher,
		logger:                   logger,
		requireEmailVerification: requireEmailVerification,
		now:                      time.Now,
	}
}

// Session is the result of a successful login
type Session struct {
	User  *user.User
	Token string
}

// CreateStudentUser registers a student and emails a verification token
func (s *Service) CreateStudentUser(ctx context.Context, name, email, password string) (*user.User, error) {
	newUser, err := s.newUser(name, email, password, user.RoleStudent)
	if err != nil {
		return nil, err
	}
	newUser.Student = &user.StudentProfile{}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, err
	}

	if err := s.tokens.SendEmailVerification(ctx, newUser); err != nil {
		// The account exists; the student can ask for a new email later
		s.logger.Warn("failed to issue verification token", "user_id", newUser.ID, "error", err)
	}

	return newUser, nil
}

// CreateTutorUser registers a tutor awaiting admin approval
func (s *Service) CreateTutorUser(ctx context.Context, name, email, password, bio string, subjects []string) (*user.User, error) {
	newUser, err := s.newUser(name, email, password, user.RoleTutor)
	if err != nil {
		return nil, err
	}
	if subjects == nil {
		subjects = []string{}
	}
	newUser.ApprovalStatus = user.ApprovalPending
	newUser.Tutor = &user.TutorProfile{
		Bio:      strings.TrimSpace(bio),
		Subjects: subjects,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, err
	}

	return newUser, nil
}

// CreateAdminUser creates a verified administrator without a profile
func (s *Service) CreateAdminUser(ctx context.Context, name, email, password string) (*user.User, error) {
	newUser, err := s.newUser(name, email, password, user.RoleAdmin)
	if err != nil {
		return nil, err
	}
	newUser.EmailVerified = true

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, err
	}

	return newUser, nil
}

func (s *Service) newUser(name, email, password string, role user.Role) (*user.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	email = user.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &user.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidEmailFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	return nil
}

// ValidateUserCredentials checks email and password and the account state
// that gates a session
func (s *Service) ValidateUserCredentials(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Spend the same hashing time as for a real account
			s.hasher.Verify(s.getDummyHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	switch existingUser.Role {
	case user.RoleTutor:
		switch existingUser.ApprovalStatus {
		case user.ApprovalApproved:
		case user.ApprovalRejected:
			return nil, ErrTutorRejected
		default:
			return nil, ErrPendingApproval
		}
	case user.RoleStudent:
		if s.requireEmailVerification && !existingUser.EmailVerified {
			return nil, ErrEmailNotVerified
		}
	case user.RoleAdmin:
	default:
		return nil, ErrInvalidCredentials
	}

	return existingUser, nil
}

// Login validates credentials, records activity and issues a bearer token
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	existingUser, err := s.ValidateUserCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastActive(ctx, existingUser.ID, now); err != nil {
		s.logger.Warn("failed to update last active", "user_id", existingUser.ID, "error", err)
	} else {
		existingUser.LastActiveAt = &now
	}

	token, err := s.tokenService.CreateToken(existingUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &Session{User: existingUser, Token: token}, nil
}

// ResetUserPassword replaces the password and invalidates all outstanding
// reset tokens of the user
func (s *Service) ResetUserPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Invalidate first so a failure leaves the old password in place
	if err := s.tokens.InvalidatePasswordResets(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate password reset tokens: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, passwordHash)
}

// ResetPassword redeems an emailed reset token and sets the new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string, userID *uuid.UUID) error {
	// Check the policy first so a weak password does not burn the token
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	owner, err := s.tokens.ConsumePasswordReset(ctx, token, userID)
	if err != nil {
		return err
	}

	return s.ResetUserPassword(ctx, owner, newPassword)
}

func (s *Service) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing-1")
		if err != nil {
			s.logger.Error("failed to create dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
