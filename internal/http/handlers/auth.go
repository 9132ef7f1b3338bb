package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/auth"
	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/jobs"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/security"
)

// Small per-handler interfaces so tests can use the in-memory repo.

type UsersStore interface {
	Create(ctx context.Context, u user.User) error
	GetByMobile(ctx context.Context, mobile string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type SessionStore interface {
	Store(ctx context.Context, row postgres.RefreshTokenRow) error
	Rotate(ctx context.Context, jti, presentedHash string, next postgres.RefreshTokenRow) (postgres.RefreshTokenRow, error)
	RevokeByID(ctx context.Context, jti string) error
	RevokeAll(ctx context.Context, userID string) error
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users    UsersStore
	sessions SessionStore
	queue    JobEnqueuer
	jwt      *auth.Manager
	cfg      config.Config
	log      *slog.Logger
}

func NewAuthHandler(users UsersStore, sessions SessionStore, queue JobEnqueuer, jwtManager *auth.Manager, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		queue:    queue,
		jwt:      jwtManager,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterRequest struct {
	MobileNumber string   `json:"mobile_number" binding:"required,len=10,numeric"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required,min=8"`
	FullName     string   `json:"full_name"`
	District     string   `json:"district"`
	State        string   `json:"state"`
	Pincode      string   `json:"pincode"`
	BatchName    string   `json:"batch_name"`
	Subjects     []string `json:"subjects"`
}

type LoginRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fe := FieldErrorsFrom(err, &req)

		if fe == nil {
			fe = FieldErrors{"non_field_errors": {"Invalid request body."}}
		}

		ctx.JSON(http.StatusBadRequest, fe)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u := user.New(user.NewParams{
		MobileNumber: req.MobileNumber,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         "student",
		District:     req.District,
		State:        req.State,
		Pincode:      req.Pincode,
		BatchName:    req.BatchName,
		Subjects:     req.Subjects,
	})

	if err := h.users.Create(cctx, u); err != nil {
		switch {
		case errors.Is(err, postgres.ErrMobileNumberTaken):
			ctx.JSON(http.StatusBadRequest, FieldErrors{
				"mobile_number": {"A user with this mobile number already exists."},
			})
		case errors.Is(err, postgres.ErrEmailTaken):
			ctx.JSON(http.StatusBadRequest, FieldErrors{
				"email": {"A user with this email already exists."},
			})
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	access, refresh, err := h.issueTokenPair(cctx, u)

	if err != nil {
		h.log.ErrorContext(cctx, "token issue after registration failed", "user_id", u.ID, "error", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.enqueueWelcomeEmail(cctx, u)

	ctx.JSON(http.StatusCreated, gin.H{
		"tokens": gin.H{
			"access":  access,
			"refresh": refresh,
		},
		"user": u.Profile(),
	})
}

// login outcomes as a closed set so branching never depends on error
// message text
type loginOutcome int

const (
	loginOK loginOutcome = iota
	loginNotFound
	loginBadPassword
	loginInactive
	loginError
)

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fe := FieldErrorsFrom(err, &req)

		if fe == nil {
			fe = FieldErrors{"non_field_errors": {"Invalid request body."}}
		}

		ctx.JSON(http.StatusBadRequest, fe)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, outcome := h.authenticate(cctx, req.MobileNumber, req.Password)

	switch outcome {
	case loginNotFound, loginBadPassword:
		// identical body for both, so the response never reveals
		// whether the mobile number exists
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid mobile number or password",
		})
		return
	case loginInactive:
		ctx.JSON(http.StatusForbidden, gin.H{
			"error": "This account has been deactivated",
		})
		return
	case loginError:
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Login failed. Please try again.",
		})
		return
	}

	access, refresh, err := h.issueTokenPair(cctx, u)

	if err != nil {
		// last-resort fallback: nothing unexpected in the login flow
		// ever reaches the client as an internal error
		h.log.ErrorContext(cctx, "token issue on login failed", "user_id", u.ID, "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Login failed. Please try again.",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access":  access,
		"refresh": refresh,
		"message": "Login successful! Welcome back.",
	})
}

func (h *AuthHandler) authenticate(ctx context.Context, mobile, password string) (user.User, loginOutcome) {
	u, err := h.users.GetByMobile(ctx, mobile)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// burn a bcrypt comparison so lookup misses cost the same
			// as password misses
			_ = security.CheckPassword(dummyHash, password)
			return user.User{}, loginNotFound
		}

		h.log.ErrorContext(ctx, "login lookup failed", "error", err)
		return user.User{}, loginError
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.User{}, loginBadPassword
	}

	// checked after the password so a deactivated account still
	// requires valid credentials to discover
	if !u.IsActive {
		return user.User{}, loginInactive
	}

	if security.NeedsRehash(u.PasswordHash) {
		if newHash, err := security.HashPassword(password); err == nil {
			if err := h.users.UpdatePassword(ctx, u.ID, newHash); err != nil {
				h.log.WarnContext(ctx, "password rehash failed", "user_id", u.ID, "error", err)
			}
		}
	}

	return u, loginOK
}

// bcrypt hash of an unguessable throwaway value, used to equalize
// timing between unknown-user and wrong-password failures
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, FieldErrors{"refresh": {"This field is required."}})
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(req.Refresh)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(claims.UserID, claims.Mobile, claims.Role)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	next := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    claims.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	_, err = h.sessions.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(req.Refresh), next)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrRefreshTokenNotFound),
			errors.Is(err, postgres.ErrRefreshTokenRevoked),
			errors.Is(err, postgres.ErrRefreshTokenExpired),
			errors.Is(err, postgres.ErrRefreshTokenHash):
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		default:
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	access, err := h.jwt.GenerateAccessToken(claims.UserID, claims.Mobile, claims.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access":  access,
		"refresh": newRaw,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	var req RefreshRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		// nothing to revoke; treat as already logged out
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(req.Refresh)

	if err != nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// idempotent; revoking an already revoked token is fine
	if err := h.sessions.RevokeByID(cctx, claims.JTI); err != nil {
		h.log.WarnContext(cctx, "logout revoke failed", "error", err)
	}

	ctx.Status(http.StatusNoContent)
}

// helpers

func (h *AuthHandler) issueTokenPair(ctx context.Context, u user.User) (access, refresh string, err error) {
	access, err = h.jwt.GenerateAccessToken(u.ID, u.MobileNumber, u.Role)

	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}

	refresh, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.MobileNumber, u.Role)

	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(refresh),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.sessions.Store(ctx, row); err != nil {
		return "", "", fmt.Errorf("store session: %w", err)
	}

	return access, refresh, nil
}

func (h *AuthHandler) enqueueWelcomeEmail(ctx context.Context, u user.User) {
	payload, err := jobs.EncodePayload(jobs.TypeWelcomeEmail, jobs.WelcomeEmailPayload{
		UserID:      u.ID,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		h.log.ErrorContext(ctx, "welcome email payload encode failed", "user_id", u.ID, "error", err)
		return
	}

	key := "welcome:" + u.ID

	// best effort; registration already succeeded
	_, err = h.queue.Create(ctx, job.CreateRequest{
		Type:           jobs.TypeWelcomeEmail,
		Payload:        payload,
		IdempotencyKey: &key,
		UserID:         &u.ID,
	})

	if err != nil {
		h.log.ErrorContext(ctx, "welcome email enqueue failed", "user_id", u.ID, "error", err)
	}
}
