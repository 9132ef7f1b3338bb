package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/subject"
)

func TestClassifyLiveClassFK(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"live_classes_batch_id_fkey", batch.ErrNotFound},
		{"live_classes_subject_id_fkey", subject.ErrNotFound},
		{"fk_live_classes_subject", subject.ErrNotFound},
	}

	for _, tc := range cases {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{
			Code:           "23503",
			ConstraintName: tc.constraint,
		})

		if got := classifyLiveClassFK(err); !errors.Is(got, tc.want) {
			t.Errorf("constraint %q classified as %v, want %v", tc.constraint, got, tc.want)
		}
	}
}
