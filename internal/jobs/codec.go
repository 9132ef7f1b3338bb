package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

func EncodePayload(t string, payload any) ([]byte, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return nil, err
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

func DecodeWelcomeEmail(raw json.RawMessage) (WelcomeEmailPayload, error) {
	var p WelcomeEmailPayload

	if err := json.Unmarshal(raw, &p); err != nil {
		return WelcomeEmailPayload{}, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if strings.TrimSpace(p.UserID) == "" {
		return WelcomeEmailPayload{}, ErrInvalidJobPayload
	}

	return p, nil
}

func DecodeLiveClassNotice(raw json.RawMessage) (LiveClassNoticePayload, error) {
	var p LiveClassNoticePayload

	if err := json.Unmarshal(raw, &p); err != nil {
		return LiveClassNoticePayload{}, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if strings.TrimSpace(p.LiveClassID) == "" {
		return LiveClassNoticePayload{}, ErrInvalidJobPayload
	}

	return p, nil
}

// ValidatePayload performs minimal type/shape validation before encoding.
func ValidatePayload(t string, payload any) error {
	if !IsValidType(t) {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case TypeWelcomeEmail:
		var p WelcomeEmailPayload
		switch v := payload.(type) {
		case WelcomeEmailPayload:
			p = v
		case *WelcomeEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case TypeLiveClassNotice:
		var p LiveClassNoticePayload
		switch v := payload.(type) {
		case LiveClassNoticePayload:
			p = v
		case *LiveClassNoticePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.LiveClassID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
