package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/subject"
	"github.com/safalapp/classhub/internal/utils"
)

type SubjectsStore interface {
	Create(ctx context.Context, req subject.CreateSubjectRequest) (subject.Subject, error)
	ListByBatch(ctx context.Context, batchID string) ([]subject.Subject, error)
	GetByID(ctx context.Context, id string) (subject.Subject, error)
	Update(ctx context.Context, id string, req subject.UpdateSubjectRequest) (subject.Subject, error)
	Delete(ctx context.Context, id string) error
}

type SubjectsHandler struct {
	repo SubjectsStore
}

func NewSubjectsHandler(repo SubjectsStore) *SubjectsHandler {
	return &SubjectsHandler{repo: repo}
}

func (h *SubjectsHandler) Create(ctx *gin.Context) {
	var req subject.CreateSubjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.repo.Create(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, batch.ErrNotFound):
			RespondNotFound(ctx, "Batch not found")
		case errors.Is(err, subject.ErrNameTaken):
			RespondConflict(ctx, "name_taken", "This batch already has a subject with that name.")
		default:
			RespondInternal(ctx, "Could not create subject")
		}
		return
	}

	ctx.JSON(http.StatusCreated, s)
}

// GET /subjects?batchId=...
func (h *SubjectsHandler) ListByBatch(ctx *gin.Context) {
	batchID := ctx.Query("batchId")

	if !utils.IsUUID(batchID) {
		RespondBadRequest(ctx, "batchId must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByBatch(cctx, batchID)

	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			RespondNotFound(ctx, "Batch not found")
			return
		}

		RespondInternal(ctx, "Could not list subjects")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"batchId": batchID,
		"items":   items,
		"count":   len(items),
	})
}

func (h *SubjectsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "subject id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Subject not found")
			return
		}

		RespondInternal(ctx, "Could not fetch subject")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, s)
}

func (h *SubjectsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "subject id must be a valid UUID", nil)
		return
	}

	var req subject.UpdateSubjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, subject.ErrNotFound):
			RespondNotFound(ctx, "Subject not found")
		case errors.Is(err, subject.ErrNameTaken):
			RespondConflict(ctx, "name_taken", "This batch already has a subject with that name.")
		default:
			RespondInternal(ctx, "Could not update subject")
		}
		return
	}

	ctx.JSON(http.StatusOK, s)
}

func (h *SubjectsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "subject id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Subject not found")
			return
		}

		RespondInternal(ctx, "Could not delete subject")
		return
	}

	ctx.Status(http.StatusNoContent)
}
