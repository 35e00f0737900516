package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// ApprovalAction is an admin decision on a pending tutor
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// ParseApprovalAction accepts an action name in any case
func ParseApprovalAction(s string) (ApprovalAction, error) {
	switch ApprovalAction(strings.ToLower(strings.TrimSpace(s))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", ErrInvalidAction
	}
}

// ApprovalWorkflow moves tutors from PENDING to APPROVED or REJECTED.
// Both targets are terminal. A rejected tutor is flagged, never deleted.
type ApprovalWorkflow struct {
	userRepo UserRepository
	email    EmailService
	logger   *logging.Logger
}

func NewApprovalWorkflow(userRepo UserRepository, email EmailService, logger *logging.Logger) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		userRepo: userRepo,
		email:    email,
		logger:   logger,
	}
}

// GetPendingTutorApprovals lists tutors awaiting review, oldest first
func (w *ApprovalWorkflow) GetPendingTutorApprovals(ctx context.Context) ([]*user.User, error) {
	tutors, err := w.userRepo.ListPendingTutors(ctx)
	if err != nil {
		return nil, err
	}
	return tutors, nil
}

// ApproveTutor approves a pending tutor. Approving an approved tutor is a no-op.
func (w *ApprovalWorkflow) ApproveTutor(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return w.transition(ctx, userID, user.ApprovalApproved)
}

// RejectTutor rejects a pending tutor. Rejecting a rejected tutor is a no-op.
func (w *ApprovalWorkflow) RejectTutor(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return w.transition(ctx, userID, user.ApprovalRejected)
}

// Apply runs the named action against the tutor
func (w *ApprovalWorkflow) Apply(ctx context.Context, userID uuid.UUID, action ApprovalAction) (*user.User, error) {
	switch action {
	case ActionApprove:
		return w.ApproveTutor(ctx, userID)
	case ActionReject:
		return w.RejectTutor(ctx, userID)
	default:
		return nil, ErrInvalidAction
	}
}

func (w *ApprovalWorkflow) transition(ctx context.Context, userID uuid.UUID, to user.ApprovalStatus) (*user.User, error) {
	tutor, err := w.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tutor.Role != user.RoleTutor {
		return nil, user.ErrNotFound
	}

	// Only the caller whose conditional update wins sends the notification
	won, err := w.userRepo.TransitionApproval(ctx, userID, user.ApprovalPending, to)
	if err != nil {
		return nil, err
	}

	if !won {
		current, err := w.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		switch current.ApprovalStatus {
		case to:
			return current, nil
		case user.ApprovalApproved:
			return nil, ErrTutorAlreadyApproved
		case user.ApprovalRejected:
			return nil, ErrTutorRejected
		default:
			return nil, fmt.Errorf("tutor %s left in approval status %q", userID, current.ApprovalStatus)
		}
	}

	tutor.ApprovalStatus = to
	w.notify(ctx, tutor)

	w.logger.Info("tutor approval status changed", "user_id", userID, "status", string(to))
	return tutor, nil
}

func (w *ApprovalWorkflow) notify(ctx context.Context, tutor *user.User) {
	var err error
	switch tutor.ApprovalStatus {
	case user.ApprovalApproved:
		err = w.email.SendTutorApprovedEmail(ctx, tutor.Email, tutor.Name)
	case user.ApprovalRejected:
		err = w.email.SendTutorRejectedEmail(ctx, tutor.Email, tutor.Name)
	}
	if err != nil {
		w.logger.Warn("failed to send approval notification", "user_id", tutor.ID, "error", err)
	}
}
