package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/auth"
	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/security"
	"github.com/safalapp/classhub/internal/utils"
)

// uniform body for every password-reset request, whether or not the
// email matched an account and whether or not the mail went out
const resetRequestDetail = "If an account with that email exists, a reset link has been sent."

type ResetUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type PasswordResetHandler struct {
	users    ResetUserStore
	sessions SessionRevoker
	tokens   *auth.ResetTokenSource
	mailer   mail.Mailer
	cfg      config.Config
	log      *slog.Logger
}

func NewPasswordResetHandler(users ResetUserStore, sessions SessionRevoker, tokens *auth.ResetTokenSource, mailer mail.Mailer, cfg config.Config, log *slog.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
	}
}

// no format validation on the email: a present-but-malformed value
// must fall through to the uniform response, only absence is a 400
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// Request handles POST /password-reset. The response is identical for
// "email exists", "email does not exist", and "mail delivery failed",
// so the endpoint cannot be used to enumerate accounts.
func (h *PasswordResetHandler) Request(ctx *gin.Context) {
	var req PasswordResetRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fe := FieldErrorsFrom(err, &req)

		if fe == nil {
			fe = FieldErrors{"email": {"This field is required."}}
		}

		ctx.JSON(http.StatusBadRequest, fe)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if !errors.Is(err, postgres.ErrUserNotFound) {
			h.log.ErrorContext(cctx, "password reset lookup failed", "error", err)
		}

		ctx.JSON(http.StatusOK, gin.H{"detail": resetRequestDetail})
		return
	}

	token := h.tokens.Generate(u.ID, u.PasswordHash)
	uid := base64.RawURLEncoding.EncodeToString([]byte(u.ID))
	link := h.cfg.FrontendBaseURL + "/reset-password/" + uid + "/" + token

	msg := mail.Message{
		Subject: "Password Reset Request",
		Body:    "Use the following link to reset your password: " + link,
		From:    h.cfg.DefaultFromEmail,
		To:      []string{u.Email},
	}

	// delivery failure is swallowed on purpose; surfacing it would
	// break the uniform response
	if err := h.mailer.Send(cctx, msg); err != nil {
		h.log.WarnContext(cctx, "password reset mail failed", "user_id", u.ID, "error", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"detail": resetRequestDetail})
}

type PasswordResetConfirmRequest struct {
	UIDExternal string `json:"uid" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Confirm handles POST /password-reset-confirm. The token is bound to
// the current password hash, so it stops working the moment the
// password changes.
func (h *PasswordResetHandler) Confirm(ctx *gin.Context) {
	var req PasswordResetConfirmRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fe := FieldErrorsFrom(err, &req)

		if fe == nil {
			fe = FieldErrors{"non_field_errors": {"Invalid request body."}}
		}

		ctx.JSON(http.StatusBadRequest, fe)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	rawUID, err := base64.RawURLEncoding.DecodeString(req.UIDExternal)

	if err != nil || !utils.IsUUID(string(rawUID)) {
		h.rejectResetLink(ctx)
		return
	}

	u, err := h.users.GetByID(cctx, string(rawUID))

	if err != nil {
		h.rejectResetLink(ctx)
		return
	}

	if err := h.tokens.Verify(u.ID, u.PasswordHash, req.Token); err != nil {
		h.rejectResetLink(ctx)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if err := h.users.UpdatePassword(cctx, u.ID, hash); err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	// force every existing session to re-authenticate
	if err := h.sessions.RevokeAll(cctx, u.ID); err != nil {
		h.log.WarnContext(cctx, "session revoke after reset failed", "user_id", u.ID, "error", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"detail": "Password has been reset successfully."})
}

func (h *PasswordResetHandler) rejectResetLink(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired reset link."})
}
