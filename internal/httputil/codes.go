package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"

	// Credentials
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodePendingApproval    = "PENDING_APPROVAL"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeInvalidRole        = "INVALID_ROLE"

	// Bearer tokens
	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"
	CodeForbidden          = "FORBIDDEN"
	CodeUserNotFound       = "USER_NOT_FOUND"

	// One-time tokens
	CodeInvalidResetToken        = "INVALID_RESET_TOKEN"
	CodeInvalidVerificationToken = "INVALID_VERIFICATION_TOKEN"
	CodeAlreadyVerified          = "ALREADY_VERIFIED"

	// Tutor approval
	CodeInvalidAction = "INVALID_ACTION"
	CodeStateConflict = "STATE_CONFLICT"
)
