package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	tokenService TokenService
	userRepo     UserRepository
}

func NewMiddleware(tokenService TokenService, userRepo UserRepository) *Middleware {
	return &Middleware{tokenService: tokenService, userRepo: userRepo}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) (string, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true, errors.New("invalid authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", true, errors.New("invalid authorization header format")
	}

	return token, true, nil
}

// RequireAuth validates the bearer token, re-loads the user it names and
// attaches the current Identity to the request context. Claims are only a
// hint: role and approval come from the store.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present, err := bearerToken(r)
		if !present {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}
		if err != nil {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "invalid user ID in token", httputil.CodeInvalidTokenUserID, http.StatusUnauthorized)
			return
		}

		current, err := m.userRepo.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
				return
			}
			logging.GetLoggerFromContext(r.Context()).Error("failed to load authenticated user", "user_id", userID, "error", err)
			httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		if !current.CanAuthenticate() {
			httputil.RespondErrorWithCode(w, "account is not approved", httputil.CodePendingApproval, http.StatusForbidden)
			return
		}

		ctx := WithIdentity(r.Context(), NewIdentity(current))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose identity holds none of roles.
// It must run after RequireAuth.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}
			if !identity.HasRole(roles...) {
				httputil.RespondErrorWithCode(w, "insufficient permissions", httputil.CodeForbidden, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
