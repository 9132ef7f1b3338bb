package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/study"
	"github.com/safalapp/classhub/internal/domain/subject"
	"github.com/safalapp/classhub/internal/utils"
)

type MaterialsStore interface {
	Create(ctx context.Context, req study.CreateMaterialRequest) (study.Material, error)
	List(ctx context.Context, filter study.ListMaterialsFilter) ([]study.Material, string, error)
	GetByID(ctx context.Context, id string) (study.Material, error)
	Update(ctx context.Context, id string, req study.UpdateMaterialRequest) (study.Material, error)
	Delete(ctx context.Context, id string) error
}

type MaterialsHandler struct {
	repo MaterialsStore
}

func NewMaterialsHandler(repo MaterialsStore) *MaterialsHandler {
	return &MaterialsHandler{repo: repo}
}

func (h *MaterialsHandler) Create(ctx *gin.Context) {
	var req study.CreateMaterialRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	m, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Subject not found")
			return
		}

		RespondInternal(ctx, "Could not create study material")
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

// GET /materials?subjectId=...&limit=20&cursor=...
func (h *MaterialsHandler) List(ctx *gin.Context) {
	subjectID := ctx.Query("subjectId")

	if !utils.IsUUID(subjectID) {
		RespondBadRequest(ctx, "subjectId must be a valid UUID", nil)
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	cursor := ctx.Query("cursor")

	if cursor != "" {
		if _, err := utils.DecodeMaterialCursor(cursor); err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, next, err := h.repo.List(cctx, study.ListMaterialsFilter{
		SubjectID: subjectID,
		Limit:     limit,
		Cursor:    cursor,
	})

	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			RespondNotFound(ctx, "Subject not found")
			return
		}

		RespondInternal(ctx, "Could not list study materials")
		return
	}

	resp := gin.H{
		"subjectId": subjectID,
		"items":     items,
		"count":     len(items),
		"limit":     limit,
	}

	if next != "" {
		resp["nextCursor"] = next
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

func (h *MaterialsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "material id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	m, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, study.ErrNotFound) {
			RespondNotFound(ctx, "Study material not found")
			return
		}

		RespondInternal(ctx, "Could not fetch study material")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, m)
}

func (h *MaterialsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "material id must be a valid UUID", nil)
		return
	}

	var req study.UpdateMaterialRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	m, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, study.ErrNotFound) {
			RespondNotFound(ctx, "Study material not found")
			return
		}

		RespondInternal(ctx, "Could not update study material")
		return
	}

	ctx.JSON(http.StatusOK, m)
}

func (h *MaterialsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "material id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, study.ErrNotFound) {
			RespondNotFound(ctx, "Study material not found")
			return
		}

		RespondInternal(ctx, "Could not delete study material")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return fallback
	}

	return n
}
