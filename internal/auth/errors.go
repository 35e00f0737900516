package auth

import "errors"

// Credential errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")        // 401
	ErrPendingApproval    = errors.New("tutor account is pending approval") // 403
	ErrTutorRejected      = errors.New("tutor account was rejected")        // 403 on login, 409 on approve
	ErrEmailNotVerified   = errors.New("email not verified, please check your inbox")
	ErrWeakPassword       = errors.New("password does not meet the password policy") // 400
	ErrInvalidEmailFormat = errors.New("invalid email format")                       // 400
	ErrNameRequired       = errors.New("name is required")                           // 400
	ErrInvalidRole        = errors.New("role must be STUDENT or TUTOR")              // 400
)

// Bearer token errors, returned by TokenService implementations
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// One-time token errors
var (
	ErrTokenInvalid      = errors.New("invalid or already used token") // 400
	ErrTokenExpired      = errors.New("token has expired")             // 400
	ErrAlreadyVerified   = errors.New("email already verified")        // 400
	ErrTokenUserMismatch = errors.New("token does not belong to user") // 400
)

// Approval workflow errors
var (
	ErrInvalidAction        = errors.New("action must be approve or reject")  // 400
	ErrTutorAlreadyApproved = errors.New("tutor account is already approved") // 409
)
