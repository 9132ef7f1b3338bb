package worker

import (
	"testing"
	"time"
)

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	cases := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 2 * time.Second, 2*time.Second + 250*time.Millisecond},
		{1, 4 * time.Second, 4*time.Second + 250*time.Millisecond},
		{2, 8 * time.Second, 8*time.Second + 250*time.Millisecond},
		{20, 5 * time.Minute, 5*time.Minute + 250*time.Millisecond},
	}

	for _, tc := range cases {
		got := ExponentialBackoff(tc.attempt)

		if got < tc.min || got > tc.max {
			t.Fatalf("attempt %d: got %v, want within [%v, %v]", tc.attempt, got, tc.min, tc.max)
		}
	}
}
