package handlers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/auth"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/http/handlers"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/repo/memory"
	"github.com/safalapp/classhub/internal/security"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp: connection refused")
	}

	m.sent = append(m.sent, msg)
	return nil
}

type resetFixture struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	sessions *fakeSessions
	mailer   *recordingMailer
	tokens   *auth.ResetTokenSource
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	users := memory.NewUsersRepo()
	sessions := newFakeSessions()
	mailer := &recordingMailer{}
	tokens := auth.NewResetTokenSource(cfg.JWTSecret, 72*time.Hour)

	h := handlers.NewPasswordResetHandler(users, sessions, tokens, mailer, cfg, discardLogger())

	r := gin.New()
	r.POST("/password-reset", h.Request)
	r.POST("/password-reset-confirm", h.Confirm)

	return &resetFixture{router: r, users: users, sessions: sessions, mailer: mailer, tokens: tokens}
}

const uniformResetBody = `{"detail":"If an account with that email exists, a reset link has been sent."}`

func TestPasswordReset_MissingEmail(t *testing.T) {
	f := newResetFixture(t)

	w := doJSON(t, f.router, http.MethodPost, "/password-reset", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var fe map[string][]string

	if err := json.Unmarshal(w.Body.Bytes(), &fe); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}

	if len(fe["email"]) != 1 || fe["email"][0] != "This field is required." {
		t.Fatalf("got field errors %v", fe)
	}
}

// The core confidentiality property: an attacker probing this endpoint
// must see the exact same response whether the email exists, does not
// exist, or delivery blows up.
func TestPasswordReset_UniformResponse(t *testing.T) {
	f := newResetFixture(t)

	hash, _ := security.HashPassword("Secret123")
	seedResetUser(t, f, "9999999999", "known@x.com", hash)

	bodies := make(map[string]string)

	// existing account
	w := doJSON(t, f.router, http.MethodPost, "/password-reset", `{"email":"known@x.com"}`)
	bodies["exists"] = w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("exists: got status %d, want 200", w.Code)
	}

	// unknown account
	w = doJSON(t, f.router, http.MethodPost, "/password-reset", `{"email":"nobody@nowhere.com"}`)
	bodies["unknown"] = w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("unknown: got status %d, want 200", w.Code)
	}

	// a present-but-malformed email is NOT a validation error: only
	// absence gets a 400, everything else folds into the uniform path
	w = doJSON(t, f.router, http.MethodPost, "/password-reset", `{"email":"notanemail"}`)
	bodies["malformed"] = w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("malformed: got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	// delivery failure
	f.mailer.fail = true
	w = doJSON(t, f.router, http.MethodPost, "/password-reset", `{"email":"known@x.com"}`)
	bodies["mail_down"] = w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("mail down: got status %d, want 200", w.Code)
	}

	for name, body := range bodies {
		if body != uniformResetBody {
			t.Fatalf("%s: body %q is not the uniform response", name, body)
		}
	}

	// exactly one mail went out, for the first (successful) request
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected exactly 1 sent mail, got %d", len(f.mailer.sent))
	}

	if got := f.mailer.sent[0].To[0]; got != "known@x.com" {
		t.Fatalf("mail went to %q", got)
	}
}

func TestPasswordReset_LinkShape(t *testing.T) {
	f := newResetFixture(t)

	hash, _ := security.HashPassword("Secret123")
	u := seedResetUser(t, f, "9999999999", "known@x.com", hash)

	w := doJSON(t, f.router, http.MethodPost, "/password-reset", `{"email":"known@x.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(f.mailer.sent))
	}

	uid := base64.RawURLEncoding.EncodeToString([]byte(u.ID))
	prefix := "http://localhost:5173/reset-password/" + uid + "/"

	if !strings.Contains(f.mailer.sent[0].Body, prefix) {
		t.Fatalf("mail body does not carry the reset link prefix %q:\n%s", prefix, f.mailer.sent[0].Body)
	}
}

func TestPasswordResetConfirm_HappyPathThenTokenDies(t *testing.T) {
	f := newResetFixture(t)

	hash, _ := security.HashPassword("Secret123")
	u := seedResetUser(t, f, "9999999999", "known@x.com", hash)

	token := f.tokens.Generate(u.ID, u.PasswordHash)
	uid := base64.RawURLEncoding.EncodeToString([]byte(u.ID))

	body, _ := json.Marshal(map[string]string{
		"uid":          uid,
		"token":        token,
		"new_password": "BrandNew456",
	})

	w := doJSON(t, f.router, http.MethodPost, "/password-reset-confirm", string(body))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	// password actually changed
	updated, err := f.users.GetByID(context.Background(), u.ID)

	if err != nil {
		t.Fatalf("reload user: %v", err)
	}

	if err := security.CheckPassword(updated.PasswordHash, "BrandNew456"); err != nil {
		t.Fatal("new password does not verify after reset")
	}

	// token is bound to the old hash, so replay must fail
	w2 := doJSON(t, f.router, http.MethodPost, "/password-reset-confirm", string(body))

	if w2.Code != http.StatusBadRequest {
		t.Fatalf("replayed token: got status %d, want 400, body=%s", w2.Code, w2.Body.String())
	}
}

func TestPasswordResetConfirm_BadUID(t *testing.T) {
	f := newResetFixture(t)

	body, _ := json.Marshal(map[string]string{
		"uid":          "not-base64!!!",
		"token":        "whatever",
		"new_password": "BrandNew456",
	})

	w := doJSON(t, f.router, http.MethodPost, "/password-reset-confirm", string(body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func seedResetUser(t *testing.T, f *resetFixture, mobile, email, passwordHash string) user.User {
	t.Helper()

	u := user.New(user.NewParams{
		MobileNumber: mobile,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     "Seed User",
	})

	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return u
}
