package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

func newTestRouter(env *testEnv) http.Handler {
	v := httputil.NewValidator()
	h := NewHandler(env.service, env.tokens, v)
	admin := NewAdminHandler(env.workflow, v)
	mw := NewMiddleware(env.jwt, env.users)

	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/signup", h.Signup)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
	r.Post("/resend-verification", h.ResendVerificationEmail)
	r.Post("/verify-email", h.VerifyEmail)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/me", h.Me)
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(user.RoleAdmin))
			r.Get("/tutors", admin.ListPendingTutors)
			r.Put("/tutors", admin.UpdateTutorApproval)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if code != "" {
		if body := decodeError(t, rec); body.Code != code {
			t.Fatalf("code = %q, want %q", body.Code, code)
		}
	}
}

func TestSignupHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"student", map[string]any{"name": "Ada", "email": "ada@example.com", "password": "password1", "role": "student"}, http.StatusOK, ""},
		{"tutor", map[string]any{"name": "Tess", "email": "tess@example.com", "password": "password1", "role": "TUTOR", "bio": "hi", "subjects": []string{"math"}}, http.StatusOK, ""},
		{"admin not allowed", map[string]any{"name": "Root", "email": "root@example.com", "password": "password1", "role": "ADMIN"}, http.StatusBadRequest, httputil.CodeInvalidRole},
		{"unknown role", map[string]any{"name": "X", "email": "x@example.com", "password": "password1", "role": "parent"}, http.StatusBadRequest, httputil.CodeInvalidRole},
		{"weak password", map[string]any{"name": "W", "email": "w@example.com", "password": "password", "role": "STUDENT"}, http.StatusBadRequest, httputil.CodeWeakPassword},
		{"bad email", map[string]any{"name": "B", "email": "nope", "password": "password1", "role": "STUDENT"}, http.StatusBadRequest, httputil.CodeValidationFailed},
		{"missing name", map[string]any{"email": "n@example.com", "password": "password1", "role": "STUDENT"}, http.StatusBadRequest, httputil.CodeValidationFailed},
		{"unknown field", map[string]any{"name": "U", "email": "u@example.com", "password": "password1", "role": "STUDENT", "admin": true}, http.StatusBadRequest, httputil.CodeInvalidRequestBody},
		{"not json", "{", http.StatusBadRequest, httputil.CodeInvalidRequestBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := doJSON(t, newTestRouter(env), http.MethodPost, "/signup", "", tt.body)
			expectStatus(t, rec, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestSignupHandlerDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	env.student(t, "dup@example.com", "password1")

	rec := doJSON(t, router, http.MethodPost, "/signup", "", map[string]any{
		"name": "Dup", "email": "Dup@Example.com", "password": "password1", "role": "STUDENT",
	})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeEmailAlreadyExists)
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	env.student(t, "s@example.com", "password1")
	env.tutor(t, "pending@example.com", "password1")
	rejected := env.tutor(t, "rejected@example.com", "password1")
	env.users.setApproval(rejected.ID, user.ApprovalRejected)

	rec := doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "s@example.com", Password: "password1"})
	expectStatus(t, rec, http.StatusOK, "")
	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.User == nil || resp.User.Email != "s@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "s@example.com", Password: "wrong1234"})
	expectStatus(t, rec, http.StatusUnauthorized, httputil.CodeInvalidCredentials)
	wrongPassword := rec.Body.String()

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "ghost@example.com", Password: "wrong1234"})
	expectStatus(t, rec, http.StatusUnauthorized, httputil.CodeInvalidCredentials)
	if unknown := rec.Body.String(); unknown != wrongPassword {
		t.Fatalf("unknown email and wrong password must look the same: %q vs %q", unknown, wrongPassword)
	}

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "pending@example.com", Password: "password1"})
	expectStatus(t, rec, http.StatusForbidden, httputil.CodePendingApproval)
	pendingBody := rec.Body.String()

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "rejected@example.com", Password: "password1"})
	expectStatus(t, rec, http.StatusForbidden, httputil.CodePendingApproval)
	if rejectedBody := rec.Body.String(); rejectedBody != pendingBody {
		t.Fatalf("pending and rejected must share a body: %q vs %q", rejectedBody, pendingBody)
	}

	rec = doJSON(t, router, http.MethodPost, "/login", "", "not json")
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeInvalidRequestBody)
}

func TestForgotPasswordHandlerAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	env.student(t, "s@example.com", "password1")

	known := doJSON(t, router, http.MethodPost, "/forgot-password", "", ForgotPasswordRequest{Email: "s@example.com"})
	unknown := doJSON(t, router, http.MethodPost, "/forgot-password", "", ForgotPasswordRequest{Email: "ghost@example.com"})
	empty := doJSON(t, router, http.MethodPost, "/forgot-password", "", ForgotPasswordRequest{})

	for _, rec := range []*httptest.ResponseRecorder{known, unknown, empty} {
		expectStatus(t, rec, http.StatusOK, "")
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatal("response must not reveal whether the account exists")
	}
	if len(env.mailer.byKind("reset")) != 1 {
		t.Fatal("expected exactly one reset email")
	}

	rec := doJSON(t, router, http.MethodPost, "/forgot-password", "", "{")
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeInvalidRequestBody)
}

func TestResetPasswordHandler(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	u := env.student(t, "s@example.com", "password1")

	doJSON(t, router, http.MethodPost, "/forgot-password", "", ForgotPasswordRequest{Email: "s@example.com"})
	token := env.mailer.lastToken(t, "reset")

	rec := doJSON(t, router, http.MethodPost, "/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: "weak"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeWeakPassword)

	rec = doJSON(t, router, http.MethodPost, "/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: "newpass123", UserID: "not-a-uuid"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeValidationFailed)

	rec = doJSON(t, router, http.MethodPost, "/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: "newpass123", UserID: uuid.NewString()})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeInvalidResetToken)

	// the mismatch above consumed the token
	doJSON(t, router, http.MethodPost, "/forgot-password", "", ForgotPasswordRequest{Email: "s@example.com"})
	token = env.mailer.lastToken(t, "reset")

	rec = doJSON(t, router, http.MethodPost, "/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: "newpass123", UserID: u.ID.String()})
	expectStatus(t, rec, http.StatusOK, "")

	rec = doJSON(t, router, http.MethodPost, "/reset-password", "", ResetPasswordRequest{Token: token, NewPassword: "newpass123"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeInvalidResetToken)

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "s@example.com", Password: "newpass123"})
	expectStatus(t, rec, http.StatusOK, "")
}

func TestVerifyEmailHandler(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	u := env.student(t, "s@example.com", "password1")
	token := env.mailer.lastToken(t, "verify")

	rec := doJSON(t, router, http.MethodPost, "/verify-email", "", VerifyEmailRequest{Token: "bogus"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeInvalidVerificationToken)

	rec = doJSON(t, router, http.MethodPost, "/verify-email", "", VerifyEmailRequest{Token: token, UserID: u.ID.String()})
	expectStatus(t, rec, http.StatusOK, "")
	var resp UserMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User == nil || !resp.User.EmailVerified {
		t.Fatalf("expected verified user, got %+v", resp.User)
	}

	rec = doJSON(t, router, http.MethodPost, "/resend-verification", "", ResendVerificationRequest{Email: "s@example.com"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeAlreadyVerified)

	rec = doJSON(t, router, http.MethodPost, "/resend-verification", "", ResendVerificationRequest{Email: "ghost@example.com"})
	expectStatus(t, rec, http.StatusBadRequest, httputil.CodeUserNotFound)
}

func TestVerifyEmailHandlerUserGone(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	u := env.student(t, "s@example.com", "password1")
	token := env.mailer.lastToken(t, "verify")
	env.users.delete(u.ID)

	rec := doJSON(t, router, http.MethodPost, "/verify-email", "", VerifyEmailRequest{Token: token})
	expectStatus(t, rec, http.StatusNotFound, httputil.CodeUserNotFound)
}

func TestMeHandler(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	env.student(t, "s@example.com", "password1")
	session, err := env.service.Login(t.Context(), "s@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/me", session.Token, nil)
	expectStatus(t, rec, http.StatusOK, "")
	for _, key := range []string{`"isApproved":true`, `"isEmailVerified":true`} {
		if !strings.Contains(rec.Body.String(), key) {
			t.Errorf("missing %s in %s", key, rec.Body.String())
		}
	}
	var resp MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.UserID != session.User.ID || resp.User.Role != user.RoleStudent {
		t.Fatalf("unexpected identity: %+v", resp.User)
	}

	rec = doJSON(t, router, http.MethodGet, "/me", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized, httputil.CodeMissingAuth)
}

func TestAdminTutorHandlers(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(env)
	ctx := t.Context()

	if _, err := env.service.CreateAdminUser(ctx, "Root", "root@example.com", "password1"); err != nil {
		t.Fatalf("admin: %v", err)
	}
	adminSession, err := env.service.Login(ctx, "root@example.com", "password1")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	env.student(t, "s@example.com", "password1")
	studentSession, err := env.service.Login(ctx, "s@example.com", "password1")
	if err != nil {
		t.Fatalf("student login: %v", err)
	}
	tutor := env.tutor(t, "t@example.com", "password1")

	rec := doJSON(t, router, http.MethodGet, "/admin/tutors", studentSession.Token, nil)
	expectStatus(t, rec, http.StatusForbidden, httputil.CodeForbidden)

	rec = doJSON(t, router, http.MethodGet, "/admin/tutors", adminSession.Token, nil)
	expectStatus(t, rec, http.StatusOK, "")
	var list TutorListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Tutors) != 1 || list.Tutors[0].ID != tutor.ID {
		t.Fatalf("unexpected tutors: %+v", list.Tutors)
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"bad action", TutorApprovalRequest{UserID: tutor.ID.String(), Action: "promote"}, http.StatusBadRequest, httputil.CodeInvalidAction},
		{"bad id", TutorApprovalRequest{UserID: "x", Action: "approve"}, http.StatusBadRequest, httputil.CodeValidationFailed},
		{"unknown tutor", TutorApprovalRequest{UserID: uuid.NewString(), Action: "approve"}, http.StatusNotFound, httputil.CodeUserNotFound},
		{"approve", TutorApprovalRequest{UserID: tutor.ID.String(), Action: "approve"}, http.StatusOK, ""},
		{"approve again", TutorApprovalRequest{UserID: tutor.ID.String(), Action: "approve"}, http.StatusOK, ""},
		{"reject approved", TutorApprovalRequest{UserID: tutor.ID.String(), Action: "reject"}, http.StatusConflict, httputil.CodeStateConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPut, "/admin/tutors", adminSession.Token, tt.body)
			expectStatus(t, rec, tt.wantStatus, tt.wantCode)
		})
	}

	if n := len(env.mailer.byKind("approved")); n != 1 {
		t.Fatalf("expected one approval email, got %d", n)
	}

	rec = doJSON(t, router, http.MethodPost, "/login", "", LoginRequest{Email: "t@example.com", Password: "password1"})
	expectStatus(t, rec, http.StatusOK, "")
}
