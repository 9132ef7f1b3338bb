package liveclass

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("live class not found")
	ErrStartInPast = errors.New("live class cannot start in the past")
)

type LiveClass struct {
	ID         string    `json:"id"`
	BatchID    string    `json:"batchId"`
	SubjectID  string    `json:"subjectId"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"startsAt"`
	MeetingURL string    `json:"meetingUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateLiveClassRequest struct {
	BatchID    string    `json:"batchId" binding:"required,uuid"`
	SubjectID  string    `json:"subjectId" binding:"required,uuid"`
	Title      string    `json:"title" binding:"required,min=2,max=200"`
	StartsAt   time.Time `json:"startsAt" binding:"required"`
	MeetingURL string    `json:"meetingUrl" binding:"required,url"`
}

type UpdateLiveClassRequest struct {
	Title      *string    `json:"title" binding:"omitempty,min=2,max=200"`
	StartsAt   *time.Time `json:"startsAt"`
	MeetingURL *string    `json:"meetingUrl" binding:"omitempty,url"`
}

// ApplyUpdate returns a copy of lc with the non-nil fields applied.
// Rescheduling into the past is rejected the same way creation is.
func (lc LiveClass) ApplyUpdate(req UpdateLiveClassRequest) (LiveClass, error) {
	if req.Title != nil {
		lc.Title = *req.Title
	}

	if req.StartsAt != nil {
		if req.StartsAt.Before(time.Now().UTC()) {
			return LiveClass{}, ErrStartInPast
		}
		lc.StartsAt = req.StartsAt.UTC()
	}

	if req.MeetingURL != nil {
		lc.MeetingURL = *req.MeetingURL
	}

	lc.UpdatedAt = time.Now().UTC()
	return lc, nil
}

func NewFromCreateRequest(req CreateLiveClassRequest) (LiveClass, error) {
	now := time.Now().UTC()

	if req.StartsAt.Before(now) {
		return LiveClass{}, ErrStartInPast
	}

	return LiveClass{
		ID:         uuid.NewString(),
		BatchID:    req.BatchID,
		SubjectID:  req.SubjectID,
		Title:      req.Title,
		StartsAt:   req.StartsAt.UTC(),
		MeetingURL: req.MeetingURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
