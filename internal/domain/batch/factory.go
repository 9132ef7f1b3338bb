package batch

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateBatchRequest) Batch {
	now := time.Now().UTC()

	return Batch{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
