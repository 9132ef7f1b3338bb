package study

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("study material not found")

// Material is a downloadable study resource attached to a subject.
type Material struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subjectId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateMaterialRequest struct {
	SubjectID   string `json:"subjectId" binding:"required,uuid"`
	Title       string `json:"title" binding:"required,min=2,max=200"`
	Description string `json:"description" binding:"max=2000"`
	FileURL     string `json:"fileUrl" binding:"required,url"`
}

type UpdateMaterialRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=2,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	FileURL     *string `json:"fileUrl" binding:"omitempty,url"`
}

type ListMaterialsFilter struct {
	SubjectID string
	Limit     int
	Cursor    string
}

func NewFromCreateRequest(req CreateMaterialRequest) Material {
	now := time.Now().UTC()

	return Material{
		ID:          uuid.NewString(),
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
