package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/domain/liveclass"
	"github.com/safalapp/classhub/internal/domain/subject"
	"github.com/safalapp/classhub/internal/jobs"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/utils"
)

type LiveClassesStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, lc liveclass.LiveClass) error
	GetByID(ctx context.Context, id string) (liveclass.LiveClass, error)
	ListUpcoming(ctx context.Context, batchID string, limit int) ([]liveclass.LiveClass, error)
	Update(ctx context.Context, id string, req liveclass.UpdateLiveClassRequest) (liveclass.LiveClass, error)
	Delete(ctx context.Context, id string) error
}

type TxJobEnqueuer interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

type LiveClassesHandler struct {
	repo     LiveClassesStore
	jobsRepo TxJobEnqueuer
	log      *slog.Logger
}

func NewLiveClassesHandler(repo LiveClassesStore, jobsRepo TxJobEnqueuer, log *slog.Logger) *LiveClassesHandler {
	return &LiveClassesHandler{repo: repo, jobsRepo: jobsRepo, log: log}
}

// Create schedules a live class and enqueues the batch notification in
// the same transaction, so a class never exists without its notice job
// and vice versa.
func (h *LiveClassesHandler) Create(ctx *gin.Context) {
	var req liveclass.CreateLiveClassRequest

	if !BindJSON(ctx, &req) {
		return
	}

	lc, err := liveclass.NewFromCreateRequest(req)

	if err != nil {
		if errors.Is(err, liveclass.ErrStartInPast) {
			RespondBadRequest(ctx, "startsAt must be in the future", nil)
			return
		}

		RespondInternal(ctx, "Could not schedule live class")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not schedule live class")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	if err := h.repo.CreateTx(cctx, tx, lc); err != nil {
		switch {
		case errors.Is(err, batch.ErrNotFound):
			RespondNotFound(ctx, "Batch not found")
		case errors.Is(err, subject.ErrNotFound):
			RespondNotFound(ctx, "Subject not found")
		default:
			RespondInternal(ctx, "Could not schedule live class")
		}
		return
	}

	payload, err := jobs.EncodePayload(jobs.TypeLiveClassNotice, jobs.LiveClassNoticePayload{
		LiveClassID: lc.ID,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		RespondInternal(ctx, "Could not schedule live class")
		return
	}

	key := "liveclass:notice:" + lc.ID

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           jobs.TypeLiveClassNotice,
		Payload:        payload,
		IdempotencyKey: &key,
	})

	if err != nil && !postgres.IsUniqueViolation(err) {
		RespondInternal(ctx, "Could not schedule live class")
		return
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not schedule live class")
		return
	}

	ctx.JSON(http.StatusCreated, lc)
}

// GET /live-classes?batchId=...&limit=20
func (h *LiveClassesHandler) ListUpcoming(ctx *gin.Context) {
	batchID := ctx.Query("batchId")

	if !utils.IsUUID(batchID) {
		RespondBadRequest(ctx, "batchId must be a valid UUID", nil)
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListUpcoming(cctx, batchID, limit)

	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			RespondNotFound(ctx, "Batch not found")
			return
		}

		RespondInternal(ctx, "Could not list live classes")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"batchId": batchID,
		"items":   items,
		"count":   len(items),
	})
}

func (h *LiveClassesHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "live class id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	lc, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, liveclass.ErrNotFound) {
			RespondNotFound(ctx, "Live class not found")
			return
		}

		RespondInternal(ctx, "Could not fetch live class")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, lc)
}

func (h *LiveClassesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "live class id must be a valid UUID", nil)
		return
	}

	var req liveclass.UpdateLiveClassRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	lc, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, liveclass.ErrNotFound):
			RespondNotFound(ctx, "Live class not found")
		case errors.Is(err, liveclass.ErrStartInPast):
			RespondBadRequest(ctx, "startsAt must be in the future", nil)
		default:
			RespondInternal(ctx, "Could not update live class")
		}
		return
	}

	ctx.JSON(http.StatusOK, lc)
}

func (h *LiveClassesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "live class id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, liveclass.ErrNotFound) {
			RespondNotFound(ctx, "Live class not found")
			return
		}

		RespondInternal(ctx, "Could not delete live class")
		return
	}

	ctx.Status(http.StatusNoContent)
}
