package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/auth"
	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/http/handlers"
	"github.com/safalapp/classhub/internal/repo/memory"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/security"
)

// fakeSessions implements the SessionStore interface in memory.
type fakeSessions struct {
	mu       sync.Mutex
	rows     map[string]postgres.RefreshTokenRow
	revoked  map[string]bool
	storeErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		rows:    make(map[string]postgres.RefreshTokenRow),
		revoked: make(map[string]bool),
	}
}

func (f *fakeSessions) Store(ctx context.Context, row postgres.RefreshTokenRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.storeErr != nil {
		return f.storeErr
	}

	f.rows[row.ID] = row
	return nil
}

func (f *fakeSessions) Rotate(ctx context.Context, jti, presentedHash string, next postgres.RefreshTokenRow) (postgres.RefreshTokenRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[jti]

	if !ok {
		return postgres.RefreshTokenRow{}, postgres.ErrRefreshTokenNotFound
	}

	if f.revoked[jti] {
		return postgres.RefreshTokenRow{}, postgres.ErrRefreshTokenRevoked
	}

	if row.TokenHash != presentedHash {
		return postgres.RefreshTokenRow{}, postgres.ErrRefreshTokenHash
	}

	f.revoked[jti] = true
	f.rows[next.ID] = next

	return row, nil
}

func (f *fakeSessions) RevokeByID(ctx context.Context, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, row := range f.rows {
		if row.UserID == userID {
			f.revoked[id] = true
		}
	}
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []job.Job
}

func (f *fakeQueue) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	j := job.New(req)
	f.jobs = append(f.jobs, j)
	return j, nil
}

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		JWTSecret:         "test-secret-key",
		JWTAccessTTLDays:  1,
		JWTRefreshTTLDays: 7,
		FrontendBaseURL:   "http://localhost:5173",
		DefaultFromEmail:  "no-reply@example.com",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	sessions *fakeSessions
	queue    *fakeQueue
	jwt      *auth.Manager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	users := memory.NewUsersRepo()
	sessions := newFakeSessions()
	queue := &fakeQueue{}
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())

	h := handlers.NewAuthHandler(users, sessions, queue, jwtManager, cfg, discardLogger())

	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/token/refresh", h.Refresh)
	r.POST("/logout", h.Logout)

	return &authFixture{router: r, users: users, sessions: sessions, queue: queue, jwt: jwtManager}
}

func (f *authFixture) seedUser(t *testing.T, mobile, email, password string, active bool) user.User {
	t.Helper()

	hash, err := security.HashPassword(password)

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := user.New(user.NewParams{
		MobileNumber: mobile,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Seed User",
	})
	u.IsActive = active

	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return u
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t)

	w := doJSON(t, f.router, http.MethodPost, "/register",
		`{"mobile_number":"9999999999","email":"a@x.com","password":"Secret123","full_name":"Asha"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"tokens"`
		User struct {
			MobileNumber string `json:"mobile_number"`
			Email        string `json:"email"`
		} `json:"user"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if resp.Tokens.Access == "" || resp.Tokens.Refresh == "" {
		t.Fatalf("expected non-empty token pair, body=%s", w.Body.String())
	}

	if resp.User.MobileNumber != "9999999999" {
		t.Fatalf("got mobile %q, want 9999999999", resp.User.MobileNumber)
	}

	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("response must not leak the password: %s", w.Body.String())
	}

	// refresh token must be persisted for later rotation
	if len(f.sessions.rows) != 1 {
		t.Fatalf("expected 1 stored session, got %d", len(f.sessions.rows))
	}

	// welcome email job gets queued
	if len(f.queue.jobs) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(f.queue.jobs))
	}
}

func TestRegister_DuplicateMobile(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	w := doJSON(t, f.router, http.MethodPost, "/register",
		`{"mobile_number":"9999999999","email":"b@x.com","password":"Secret123"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var fe map[string][]string

	if err := json.Unmarshal(w.Body.Bytes(), &fe); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if len(fe["mobile_number"]) == 0 {
		t.Fatalf("expected a mobile_number field error, body=%s", w.Body.String())
	}

	// nothing new persisted
	if _, err := f.users.GetByEmail(context.Background(), "b@x.com"); err == nil {
		t.Fatal("duplicate registration must not persist a record")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	w := doJSON(t, f.router, http.MethodPost, "/register", `{"mobile_number":"9999999999"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var fe map[string][]string

	if err := json.Unmarshal(w.Body.Bytes(), &fe); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	for _, field := range []string{"email", "password"} {
		if len(fe[field]) == 0 {
			t.Fatalf("expected %s field error, body=%s", field, w.Body.String())
		}
	}

	if fe["email"][0] != "This field is required." {
		t.Fatalf("got email error %q", fe["email"][0])
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	w := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"Secret123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if resp.Access == "" || resp.Refresh == "" {
		t.Fatalf("expected token pair, body=%s", w.Body.String())
	}

	if resp.Message != "Login successful! Welcome back." {
		t.Fatalf("got message %q", resp.Message)
	}

	claims, err := f.jwt.VerifyAccessToken(resp.Access)

	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}

	if claims.Mobile != "9999999999" {
		t.Fatalf("got claims mobile %q", claims.Mobile)
	}
}

func TestLogin_WrongPasswordAndUnknownUserAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	wrongPassword := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"nope-nope"}`)
	unknownUser := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"1111111111","password":"nope-nope"}`)

	if wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got status %d, want 401", wrongPassword.Code)
	}

	if unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: got status %d, want 401", unknownUser.Code)
	}

	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies must match to prevent enumeration:\n%s\nvs\n%s",
			wrongPassword.Body.String(), unknownUser.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}

	if err := json.Unmarshal(wrongPassword.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Error != "Invalid mobile number or password" {
		t.Fatalf("got error %q", resp.Error)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", false)

	w := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"Secret123"}`)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Error != "This account has been deactivated" {
		t.Fatalf("got error %q", resp.Error)
	}
}

func TestLogin_InactiveRequiresValidPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", false)

	// wrong password against an inactive account must look like any
	// other credential failure, not reveal the deactivation
	w := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"wrong-wrong"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
	}
}

func TestLogin_SessionStoreFailureReturnsGenericError(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	f.sessions.storeErr = errors.New("pool exhausted")

	w := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"Secret123"}`)

	// valid credentials, broken backend: the client still only sees
	// the generic login failure, never an internal error
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if resp.Error != "Login failed. Please try again." {
		t.Fatalf("got error %q", resp.Error)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	login := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"Secret123"}`)

	var loginResp struct {
		Refresh string `json:"refresh"`
	}

	if err := json.Unmarshal(login.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"refresh": loginResp.Refresh})
	w := doJSON(t, f.router, http.MethodPost, "/token/refresh", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Refresh == "" || resp.Refresh == loginResp.Refresh {
		t.Fatal("refresh must return a rotated token")
	}

	// the old token is now revoked
	w2 := doJSON(t, f.router, http.MethodPost, "/token/refresh", string(body))

	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: got status %d, want 401, body=%s", w2.Code, w2.Body.String())
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "9999999999", "a@x.com", "Secret123", true)

	login := doJSON(t, f.router, http.MethodPost, "/login",
		`{"mobile_number":"9999999999","password":"Secret123"}`)

	var loginResp struct {
		Refresh string `json:"refresh"`
	}

	if err := json.Unmarshal(login.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"refresh": loginResp.Refresh})

	w := doJSON(t, f.router, http.MethodPost, "/logout", string(body))

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", w.Code)
	}

	// refreshing with a logged-out token fails
	w2 := doJSON(t, f.router, http.MethodPost, "/token/refresh", string(body))

	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w2.Code, w2.Body.String())
	}
}
