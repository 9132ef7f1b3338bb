package batch

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("batch not found")
	ErrNameTaken   = errors.New("batch name already in use")
	ErrHasSubjects = errors.New("batch still has subjects")
)

type Batch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateBatchRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	Description string `json:"description" binding:"max=2000"`
	Category    string `json:"category" binding:"max=120"`
}

type UpdateBatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Category    *string `json:"category" binding:"omitempty,max=120"`
}
