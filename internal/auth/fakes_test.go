package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	errTest    = errors.New("test failure")
)

func testLogger() *logging.Logger {
	return logging.NewFromSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeUserRepo is an in-memory UserRepository. Approval transitions are
// conditional under the mutex like the SQL update.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*user.User
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func cloneUser(u *user.User) *user.User {
	c := *u
	if u.Student != nil {
		s := *u.Student
		c.Student = &s
	}
	if u.Tutor != nil {
		t := *u.Tutor
		t.Subjects = append([]string{}, u.Tutor.Subjects...)
		c.Tutor = &t
	}
	if u.LastActiveAt != nil {
		at := *u.LastActiveAt
		c.LastActiveAt = &at
	}
	return &c
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	if err := u.CheckProfile(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	email := user.NormalizeEmail(u.Email)
	for _, existing := range f.users {
		if existing.Email == email {
			return user.ErrDuplicateEmail
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = email
	// keep insertion order observable through CreatedAt
	u.CreatedAt = time.Now().UTC().Add(time.Duration(len(f.users)) * time.Millisecond)
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	email = user.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUserRepo) update(id uuid.UUID, fn func(u *user.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUserRepo) MarkEmailAsVerified(ctx context.Context, id uuid.UUID) error {
	return f.update(id, func(u *user.User) { u.EmailVerified = true })
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return f.update(id, func(u *user.User) { u.PasswordHash = passwordHash })
}

func (f *fakeUserRepo) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return f.update(id, func(u *user.User) { u.LastActiveAt = &at })
}

func (f *fakeUserRepo) ListPendingTutors(ctx context.Context) ([]*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*user.User
	for _, u := range f.users {
		if u.Role == user.RoleTutor && u.ApprovalStatus == user.ApprovalPending {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeUserRepo) TransitionApproval(ctx context.Context, id uuid.UUID, from, to user.ApprovalStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok || u.Role != user.RoleTutor || u.ApprovalStatus != from {
		return false, nil
	}
	u.ApprovalStatus = to
	return true, nil
}

func (f *fakeUserRepo) delete(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUserRepo) setApproval(id uuid.UUID, status user.ApprovalStatus) {
	_ = f.update(id, func(u *user.User) { u.ApprovalStatus = status })
}

// fakeTokenStore is an in-memory OneTimeTokenStore
type fakeTokenStore struct {
	mu            sync.Mutex
	tokens        map[string]*OneTimeToken
	invalidateErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*OneTimeToken)}
}

func (f *fakeTokenStore) Issue(ctx context.Context, t *OneTimeToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.tokens {
		if existing.UserID == t.UserID && existing.Purpose == t.Purpose && !existing.IsConsumed() {
			at := t.IssuedAt
			existing.ConsumedAt = &at
		}
	}
	c := *t
	f.tokens[t.TokenHash] = &c
	return nil
}

func (f *fakeTokenStore) Consume(ctx context.Context, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tokens[tokenHash]
	if !ok || t.Purpose != purpose || t.IsConsumed() {
		return nil, ErrTokenInvalid
	}
	if t.IsExpired(now) {
		return nil, ErrTokenExpired
	}
	t.ConsumedAt = &now
	c := *t
	return &c, nil
}

func (f *fakeTokenStore) InvalidateAll(ctx context.Context, userID uuid.UUID, purpose Purpose, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invalidateErr != nil {
		return f.invalidateErr
	}

	for _, t := range f.tokens {
		if t.UserID == userID && t.Purpose == purpose && !t.IsConsumed() {
			t.ConsumedAt = &now
		}
	}
	return nil
}

func (f *fakeTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for hash, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) live(userID uuid.UUID, purpose Purpose) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID && t.Purpose == purpose && !t.IsConsumed() {
			n++
		}
	}
	return n
}

type sentEmail struct {
	Kind  string
	To    string
	Token string
}

// fakeMailer records every email instead of sending it
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeMailer) record(kind, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{Kind: kind, To: to, Token: token})
	return nil
}

func (f *fakeMailer) SendVerificationEmail(ctx context.Context, toEmail, name, token string) error {
	return f.record("verify", toEmail, token)
}

func (f *fakeMailer) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	return f.record("reset", toEmail, token)
}

func (f *fakeMailer) SendTutorApprovedEmail(ctx context.Context, toEmail, name string) error {
	return f.record("approved", toEmail, "")
}

func (f *fakeMailer) SendTutorRejectedEmail(ctx context.Context, toEmail, name string) error {
	return f.record("rejected", toEmail, "")
}

func (f *fakeMailer) byKind(kind string) []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEmail
	for _, e := range f.sent {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// lastToken returns the most recent token emailed with kind
func (f *fakeMailer) lastToken(t *testing.T, kind string) string {
	t.Helper()
	emails := f.byKind(kind)
	if len(emails) == 0 {
		t.Fatalf("no %s email sent", kind)
	}
	return emails[len(emails)-1].Token
}

type testEnv struct {
	users    *fakeUserRepo
	store    *fakeTokenStore
	mailer   *fakeMailer
	clock    *testClock
	jwt      *JWTService
	tokens   *TokenManager
	service  *Service
	workflow *ApprovalWorkflow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:  newFakeUserRepo(),
		store:  newFakeTokenStore(),
		mailer: &fakeMailer{},
		clock:  newTestClock(),
	}

	jwtService, err := NewJWTService(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("jwt service: %v", err)
	}
	jwtService.now = env.clock.Now
	env.jwt = jwtService

	logger := testLogger()
	env.tokens = NewTokenManager(env.store, env.users, env.mailer, logger, 24*time.Hour, time.Hour)
	env.tokens.now = env.clock.Now

	env.service = NewService(env.users, jwtService, env.tokens, NewPasswordHasherWithParams(1, 64, 1), logger, false)
	env.service.now = env.clock.Now

	env.workflow = NewApprovalWorkflow(env.users, env.mailer, logger)
	return env
}

func (e *testEnv) student(t *testing.T, email, password string) *user.User {
	t.Helper()
	u, err := e.service.CreateStudentUser(context.Background(), "Student", email, password)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return u
}

func (e *testEnv) tutor(t *testing.T, email, password string) *user.User {
	t.Helper()
	u, err := e.service.CreateTutorUser(context.Background(), "Tutor", email, password, "bio", []string{"math"})
	if err != nil {
		t.Fatalf("create tutor: %v", err)
	}
	return u
}
