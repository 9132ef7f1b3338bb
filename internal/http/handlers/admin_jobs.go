package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/utils"
)

type AdminJobsStore interface {
	List(ctx context.Context, status string, limit int) ([]job.Job, error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	RetryNow(ctx context.Context, id string) error
}

type AdminJobsHandler struct {
	repo AdminJobsStore
}

func NewAdminJobsHandler(repo AdminJobsStore) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

// GET /admin/jobs?status=failed&limit=50
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	status := ctx.Query("status")

	switch status {
	case "", string(job.StatusPending), string(job.StatusProcessing), string(job.StatusDone), string(job.StatusFailed):
	default:
		RespondBadRequest(ctx, "status is not a known job status", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, status, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"limit": limit,
	})
}

// GET /admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "job id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}

		RespondInternal(ctx, "Could not fetch job")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// POST /admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "job id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.RetryNow(cctx, id)

	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, postgres.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			RespondInternal(ctx, "Could not retry job")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": "pending",
	})
}
