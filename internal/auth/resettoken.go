package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrResetTokenMalformed = errors.New("reset token malformed")
	ErrResetTokenExpired   = errors.New("reset token expired")
	ErrResetTokenInvalid   = errors.New("reset token invalid")
)

// ResetTokenSource mints single-use password reset tokens without any
// server-side store. The signature covers the user's current password
// hash, so a token stops verifying the moment the password changes.
type ResetTokenSource struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenSource(secret string, ttl time.Duration) *ResetTokenSource {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &ResetTokenSource{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a token of the form "<ts36>-<sig>".
func (s *ResetTokenSource) Generate(userID, passwordHash string) string {
	return s.generateAt(userID, passwordHash, time.Now().UTC())
}

func (s *ResetTokenSource) generateAt(userID, passwordHash string, issuedAt time.Time) string {
	ts := strconv.FormatInt(issuedAt.Unix(), 36)

	return ts + "-" + s.sign(userID, passwordHash, ts)
}

// Verify recomputes the signature from the user's current state and
// checks the expiry window.
func (s *ResetTokenSource) Verify(userID, passwordHash, token string) error {
	ts, sig, ok := strings.Cut(token, "-")

	if !ok || ts == "" || sig == "" {
		return ErrResetTokenMalformed
	}

	issuedUnix, err := strconv.ParseInt(ts, 36, 64)

	if err != nil {
		return ErrResetTokenMalformed
	}

	issuedAt := time.Unix(issuedUnix, 0).UTC()
	now := time.Now().UTC()

	if issuedAt.After(now) {
		return ErrResetTokenInvalid
	}

	if now.Sub(issuedAt) > s.ttl {
		return ErrResetTokenExpired
	}

	want := s.sign(userID, passwordHash, ts)

	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrResetTokenInvalid
	}

	return nil
}

func (s *ResetTokenSource) sign(userID, passwordHash, ts string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(userID))
	h.Write([]byte("|"))
	h.Write([]byte(passwordHash))
	h.Write([]byte("|"))
	h.Write([]byte(ts))

	return hex.EncodeToString(h.Sum(nil))
}
