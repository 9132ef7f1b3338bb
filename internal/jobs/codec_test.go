package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodePayload_RejectsUnknownType(t *testing.T) {
	_, err := EncodePayload("not.a.job", WelcomeEmailPayload{UserID: "u1"})

	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestEncodePayload_RejectsMismatchedPayload(t *testing.T) {
	_, err := EncodePayload(TypeWelcomeEmail, LiveClassNoticePayload{LiveClassID: "lc1"})

	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayload_RejectsEmptyIDs(t *testing.T) {
	_, err := EncodePayload(TypeWelcomeEmail, WelcomeEmailPayload{UserID: "  "})

	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}

	_, err = EncodePayload(TypeLiveClassNotice, LiveClassNoticePayload{})

	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestWelcomeEmailRoundTrip(t *testing.T) {
	in := WelcomeEmailPayload{UserID: "u1", RequestedAt: time.Now().UTC().Truncate(time.Second)}

	raw, err := EncodePayload(TypeWelcomeEmail, in)

	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := DecodeWelcomeEmail(raw)

	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.UserID != in.UserID || !out.RequestedAt.Equal(in.RequestedAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestLiveClassNoticeRoundTrip(t *testing.T) {
	in := LiveClassNoticePayload{LiveClassID: "lc1", RequestedAt: time.Now().UTC().Truncate(time.Second)}

	raw, err := EncodePayload(TypeLiveClassNotice, &in)

	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := DecodeLiveClassNotice(raw)

	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.LiveClassID != in.LiveClassID {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeWelcomeEmail([]byte(`{`)); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}

	if _, err := DecodeLiveClassNotice([]byte(`{}`)); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}
