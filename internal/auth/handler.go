package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service   *Service
	tokens    *TokenManager
	validator *httputil.Validator
}

func NewHandler(service *Service, tokens *TokenManager, validator *httputil.Validator) *Handler {
	return &Handler{
		service:   service,
		tokens:    tokens,
		validator: validator,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the authenticated user and the bearer token
type LoginResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// SignupRequest represents the registration request body.
// Bio and subjects are only used for tutors.
type SignupRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Email    string   `json:"email" validate:"required,email,max=254"`
	Password string   `json:"password" validate:"required"`
	Role     string   `json:"role" validate:"required"`
	Bio      string   `json:"bio" validate:"max=2000"`
	Subjects []string `json:"subjects" validate:"max=20,dive,required,max=100"`
}

// UserMessageResponse is a message together with the affected user
type UserMessageResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
	UserID      string `json:"userId,omitempty" validate:"omitempty,uuid"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required"`
}

// VerifyEmailRequest represents the email verification request
type VerifyEmailRequest struct {
	Token  string `json:"token" validate:"required"`
	UserID string `json:"userId,omitempty" validate:"omitempty,uuid"`
}

// MeResponse wraps the caller's identity
type MeResponse struct {
	User Identity `json:"user"`
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Tutor not approved or email not verified"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, ErrInvalidCredentials.Error(), httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrPendingApproval), errors.Is(err, ErrTutorRejected):
			// Same body for both so a rejection is not announced at login
			logger.Warn("login failed: tutor not approved", "error", err.Error())
			httputil.RespondErrorWithCode(w, "your tutor account has not been approved", httputil.CodePendingApproval, http.StatusForbidden)
		case errors.Is(err, ErrEmailNotVerified):
			logger.Warn("login failed: email not verified")
			httputil.RespondErrorWithCode(w, ErrEmailNotVerified.Error(), httputil.CodeEmailNotVerified, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in", "user_id", session.User.ID, "role", string(session.User.Role))

	httputil.RespondJSON(w, LoginResponse{User: session.User, Token: session.Token}, http.StatusOK)
}

// Signup handles student and tutor registration
// @Summary      Register a new user
// @Description  Create a student or tutor account. Students receive a verification email, tutors wait for admin approval.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Registration data"
// @Success      200 {object} UserMessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid role, duplicate email, weak password or validation error"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil || role == user.RoleAdmin {
		logger.Warn("signup failed: invalid role", "role", req.Role)
		httputil.RespondErrorWithCode(w, ErrInvalidRole.Error(), httputil.CodeInvalidRole, http.StatusBadRequest)
		return
	}

	var (
		newUser *user.User
		message string
	)
	switch role {
	case user.RoleStudent:
		newUser, err = h.service.CreateStudentUser(r.Context(), req.Name, req.Email, req.Password)
		message = "Registration successful. Please check your email to verify your account."
	case user.RoleTutor:
		newUser, err = h.service.CreateTutorUser(r.Context(), req.Name, req.Email, req.Password, req.Bio, req.Subjects)
		message = "Registration successful. Your tutor account is pending approval."
	}
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("signup failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusBadRequest)
		case errors.Is(err, ErrWeakPassword):
			logger.Warn("signup failed: weak password")
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeWeakPassword, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, ErrNameRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID, "role", string(newUser.Role))

	httputil.RespondJSON(w, UserMessageResponse{Message: message, User: newUser}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset link to the user's email. Always returns success to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Process request (always returns nil for security)
	_ = h.tokens.RequestPasswordReset(r.Context(), req.Email)

	// Always return success (prevent email enumeration)
	httputil.RespondMessage(w, "If an account exists with that email, a password reset link has been sent.", http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Reset a user's password using the emailed reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token, weak password"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, optionalUUID(req.UserID))
	if err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeWeakPassword, http.StatusBadRequest)
		case errors.Is(err, ErrTokenExpired):
			logger.Warn("password reset failed: token expired")
			httputil.RespondErrorWithCode(w, "Reset link has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenUserMismatch), errors.Is(err, user.ErrNotFound):
			logger.Warn("password reset failed: invalid token", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	httputil.RespondMessage(w, "Password reset successfully. You can now login with your new password.", http.StatusOK)
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Replace the user's verification token and email the new one
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Already verified or unknown email"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.tokens.ResendEmailVerification(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyVerified):
			httputil.RespondErrorWithCode(w, "This email is already verified. You can login now.", httputil.CodeAlreadyVerified, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusBadRequest)
		default:
			logger.Error("resend verification failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to resend verification email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondMessage(w, "A new verification link has been sent.", http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Redeem the emailed verification token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyEmailRequest true "Verification token"
// @Success      200 {object} UserMessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid, expired, or already used token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyEmailRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	verified, err := h.tokens.VerifyStudentEmail(r.Context(), req.Token, optionalUUID(req.UserID))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			logger.Warn("email verification failed: token expired")
			httputil.RespondErrorWithCode(w, "Verification link has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenUserMismatch):
			logger.Warn("email verification failed: invalid token")
			httputil.RespondErrorWithCode(w, "Invalid verification token.", httputil.CodeInvalidVerificationToken, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		default:
			logger.Error("email verification failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("email verified successfully", "user_id", verified.ID)

	httputil.RespondJSON(w, UserMessageResponse{
		Message: "Email verified successfully. You can now login.",
		User:    verified,
	}, http.StatusOK)
}

// Me returns the authenticated caller
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MeResponse
// @Failure      401 {object} httputil.ErrorResponse "Missing or invalid token"
// @Router       /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, MeResponse{User: identity}, http.StatusOK)
}

// optionalUUID parses an already validated optional id
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
