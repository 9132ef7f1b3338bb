package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// MaterialCursor is an opaque keyset cursor for study-material listings
// (newest first, so the cursor walks backwards through created_at).
type MaterialCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeMaterialCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(MaterialCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeMaterialCursor(cursor string) (MaterialCursor, error) {
	if cursor == "" {
		return MaterialCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return MaterialCursor{}, err
	}

	var c MaterialCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return MaterialCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return MaterialCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
