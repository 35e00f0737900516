package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// AdminHandler serves the tutor review endpoints
type AdminHandler struct {
	workflow  *ApprovalWorkflow
	validator *httputil.Validator
}

func NewAdminHandler(workflow *ApprovalWorkflow, validator *httputil.Validator) *AdminHandler {
	return &AdminHandler{workflow: workflow, validator: validator}
}

// TutorListResponse lists tutors awaiting review
type TutorListResponse struct {
	Tutors []*user.User `json:"tutors"`
}

// TutorApprovalRequest is an admin decision on one tutor
type TutorApprovalRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Action string `json:"action" validate:"required"`
}

// ListPendingTutors returns tutors awaiting approval
// @Summary      List pending tutors
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TutorListResponse
// @Failure      401 {object} httputil.ErrorResponse "Missing or invalid token"
// @Failure      403 {object} httputil.ErrorResponse "Not an admin"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/tutors [get]
func (h *AdminHandler) ListPendingTutors(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	tutors, err := h.workflow.GetPendingTutorApprovals(r.Context())
	if err != nil {
		logger.Error("failed to list pending tutors", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list pending tutors", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, TutorListResponse{Tutors: tutors}, http.StatusOK)
}

// UpdateTutorApproval approves or rejects a pending tutor
// @Summary      Approve or reject a tutor
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body TutorApprovalRequest true "Tutor id and action (approve or reject)"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid action or body"
// @Failure      404 {object} httputil.ErrorResponse "Tutor not found"
// @Failure      409 {object} httputil.ErrorResponse "Tutor already in the opposite state"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/tutors [put]
func (h *AdminHandler) UpdateTutorApproval(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req TutorApprovalRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	action, err := ParseApprovalAction(req.Action)
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAction, http.StatusBadRequest)
		return
	}
	tutorID := uuid.MustParse(req.UserID)

	logger = logger.WithFields(map[string]any{"tutor_id": tutorID, "action": string(action)})
	if admin, ok := IdentityFromContext(r.Context()); ok {
		logger = logger.WithFields(map[string]any{"admin_id": admin.UserID})
	}

	tutor, err := h.workflow.Apply(r.Context(), tutorID, action)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "tutor not found", httputil.CodeUserNotFound, http.StatusNotFound)
		case errors.Is(err, ErrTutorAlreadyApproved), errors.Is(err, ErrTutorRejected):
			logger.Warn("tutor approval conflict", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeStateConflict, http.StatusConflict)
		default:
			logger.Error("tutor approval failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to update tutor", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("tutor approval updated", "status", string(tutor.ApprovalStatus))

	message := "Tutor approved."
	if action == ActionReject {
		message = "Tutor rejected."
	}
	httputil.RespondMessage(w, message, http.StatusOK)
}
