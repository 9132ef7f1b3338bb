package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/cache"
	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/utils"
)

type BatchesStore interface {
	Create(ctx context.Context, req batch.CreateBatchRequest) (batch.Batch, error)
	List(ctx context.Context) ([]batch.Batch, error)
	GetByID(ctx context.Context, id string) (batch.Batch, error)
	Update(ctx context.Context, id string, req batch.UpdateBatchRequest) (batch.Batch, error)
	Delete(ctx context.Context, id string) error
}

type BatchesHandler struct {
	repo  BatchesStore
	cache *cache.Cache[[]batch.Batch]
}

func NewBatchesHandler(repo BatchesStore) *BatchesHandler {
	return &BatchesHandler{
		repo:  repo,
		cache: cache.New[[]batch.Batch](10 * time.Second),
	}
}

const batchListCacheKey = "batches:all"

func (h *BatchesHandler) Create(ctx *gin.Context) {
	var req batch.CreateBatchRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, batch.ErrNameTaken) {
			RespondConflict(ctx, "name_taken", "A batch with this name already exists.")
			return
		}

		RespondInternal(ctx, "Could not create batch")
		return
	}

	h.cache.Delete(batchListCacheKey)

	ctx.JSON(http.StatusCreated, b)
}

func (h *BatchesHandler) List(ctx *gin.Context) {
	if items, ok := h.cache.Get(batchListCacheKey); ok {
		RespondJSONWithETag(ctx, http.StatusOK, gin.H{
			"items": items,
			"count": len(items),
		})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list batches")
		return
	}

	h.cache.Set(batchListCacheKey, items)

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *BatchesHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "batch id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			RespondNotFound(ctx, "Batch not found")
			return
		}

		RespondInternal(ctx, "Could not fetch batch")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, b)
}

func (h *BatchesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "batch id must be a valid UUID", nil)
		return
	}

	var req batch.UpdateBatchRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, batch.ErrNotFound):
			RespondNotFound(ctx, "Batch not found")
		case errors.Is(err, batch.ErrNameTaken):
			RespondConflict(ctx, "name_taken", "A batch with this name already exists.")
		default:
			RespondInternal(ctx, "Could not update batch")
		}
		return
	}

	h.cache.Delete(batchListCacheKey)

	ctx.JSON(http.StatusOK, b)
}

func (h *BatchesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "batch id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		switch {
		case errors.Is(err, batch.ErrNotFound):
			RespondNotFound(ctx, "Batch not found")
		case errors.Is(err, batch.ErrHasSubjects):
			RespondConflict(ctx, "batch_in_use", "Delete or move its subjects first.")
		default:
			RespondInternal(ctx, "Could not delete batch")
		}
		return
	}

	h.cache.Delete(batchListCacheKey)

	ctx.Status(http.StatusNoContent)
}
