package jobs

import (
	"encoding/json"
	"time"
)

// WelcomeEmailPayload greets a freshly registered account.
type WelcomeEmailPayload struct {
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (p WelcomeEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// LiveClassNoticePayload tells a batch that a live class was scheduled.
type LiveClassNoticePayload struct {
	LiveClassID string    `json:"liveClassId"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (p LiveClassNoticePayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
