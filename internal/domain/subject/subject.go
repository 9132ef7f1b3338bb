package subject

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("subject not found")
	ErrNameTaken = errors.New("subject name already in use for this batch")
)

type Subject struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateSubjectRequest struct {
	BatchID string `json:"batchId" binding:"required,uuid"`
	Name    string `json:"name" binding:"required,min=2,max=120"`
}

type UpdateSubjectRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=120"`
}

func NewFromCreateRequest(req CreateSubjectRequest) Subject {
	now := time.Now().UTC()

	return Subject{
		ID:        uuid.NewString(),
		BatchID:   req.BatchID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
