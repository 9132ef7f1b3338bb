package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResetToken_RoundTrip(t *testing.T) {
	src := NewResetTokenSource("test-secret", time.Hour)

	token := src.Generate("user-1", "bcrypt-hash")

	if err := src.Verify("user-1", "bcrypt-hash", token); err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}
}

func TestResetToken_InvalidAfterPasswordChange(t *testing.T) {
	src := NewResetTokenSource("test-secret", time.Hour)

	token := src.Generate("user-1", "old-hash")

	err := src.Verify("user-1", "new-hash", token)

	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestResetToken_WrongUser(t *testing.T) {
	src := NewResetTokenSource("test-secret", time.Hour)

	token := src.Generate("user-1", "hash")

	if err := src.Verify("user-2", "hash", token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestResetToken_Expired(t *testing.T) {
	src := NewResetTokenSource("test-secret", time.Hour)

	token := src.generateAt("user-1", "hash", time.Now().UTC().Add(-2*time.Hour))

	if err := src.Verify("user-1", "hash", token); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestResetToken_Tampered(t *testing.T) {
	src := NewResetTokenSource("test-secret", time.Hour)

	token := src.Generate("user-1", "hash")

	cases := map[string]string{
		"no separator":  strings.ReplaceAll(token, "-", ""),
		"empty sig":     strings.SplitN(token, "-", 2)[0] + "-",
		"flipped sig":   token[:len(token)-1] + flip(token[len(token)-1]),
		"garbage ts":    "!!!!-" + strings.SplitN(token, "-", 2)[1],
		"empty token":   "",
		"only dashes":   "---",
	}

	for name, bad := range cases {
		if err := src.Verify("user-1", "hash", bad); err == nil {
			t.Fatalf("%s: expected verification failure for %q", name, bad)
		}
	}
}

func TestResetToken_DifferentSecret(t *testing.T) {
	a := NewResetTokenSource("secret-a", time.Hour)
	b := NewResetTokenSource("secret-b", time.Hour)

	token := a.Generate("user-1", "hash")

	if err := b.Verify("user-1", "hash", token); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func flip(b byte) string {
	if b == 'a' {
		return "b"
	}
	return "a"
}
