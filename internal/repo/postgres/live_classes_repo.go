package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/liveclass"
	"github.com/safalapp/classhub/internal/domain/subject"
)

type LiveClassesRepo struct {
	pool *pgxpool.Pool
}

func NewLiveClassesRepo(pool *pgxpool.Pool) *LiveClassesRepo {
	return &LiveClassesRepo{pool: pool}
}

func (r *LiveClassesRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// CreateTx inserts inside a caller-owned tx so the notification job can be
// enqueued atomically with the class itself.
func (r *LiveClassesRepo) CreateTx(ctx context.Context, tx pgx.Tx, lc liveclass.LiveClass) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO live_classes (id, batch_id, subject_id, title, starts_at, meeting_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		lc.ID, lc.BatchID, lc.SubjectID, lc.Title, lc.StartsAt, lc.MeetingURL, lc.CreatedAt, lc.UpdatedAt)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return classifyLiveClassFK(err)
		}
		return err
	}

	return nil
}

// classifyLiveClassFK maps a 23503 on live_classes to the referenced
// entity, so a dangling subject id never reads as "batch not found"
func classifyLiveClassFK(err error) error {
	var pgErr *pgconn.PgError
	errors.As(err, &pgErr)

	if strings.Contains(pgErr.ConstraintName, "subject") {
		return subject.ErrNotFound
	}
	return batch.ErrNotFound
}

func (r *LiveClassesRepo) GetByID(ctx context.Context, id string) (liveclass.LiveClass, error) {
	var lc liveclass.LiveClass

	err := r.pool.QueryRow(ctx, `
		SELECT id, batch_id, subject_id, title, starts_at, meeting_url, created_at, updated_at
		FROM live_classes
		WHERE id = $1
	`, id).Scan(&lc.ID, &lc.BatchID, &lc.SubjectID, &lc.Title, &lc.StartsAt, &lc.MeetingURL, &lc.CreatedAt, &lc.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return liveclass.LiveClass{}, liveclass.ErrNotFound
		}
		return liveclass.LiveClass{}, err
	}

	return lc, nil
}

// ListUpcoming returns classes starting after now, soonest first.
func (r *LiveClassesRepo) ListUpcoming(ctx context.Context, batchID string, limit int) ([]liveclass.LiveClass, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, subject_id, title, starts_at, meeting_url, created_at, updated_at
		FROM live_classes
		WHERE batch_id = $1 AND starts_at > $2
		ORDER BY starts_at ASC, id ASC
		LIMIT $3
	`, batchID, time.Now().UTC(), limit)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]liveclass.LiveClass, 0, limit)

	for rows.Next() {
		var lc liveclass.LiveClass

		if err := rows.Scan(&lc.ID, &lc.BatchID, &lc.SubjectID, &lc.Title, &lc.StartsAt, &lc.MeetingURL, &lc.CreatedAt, &lc.UpdatedAt); err != nil {
			return nil, err
		}

		out = append(out, lc)
	}

	return out, rows.Err()
}

func (r *LiveClassesRepo) Update(ctx context.Context, id string, req liveclass.UpdateLiveClassRequest) (liveclass.LiveClass, error) {
	lc, err := r.GetByID(ctx, id)

	if err != nil {
		return liveclass.LiveClass{}, err
	}

	lc, err = lc.ApplyUpdate(req)

	if err != nil {
		return liveclass.LiveClass{}, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE live_classes
		SET title = $2, starts_at = $3, meeting_url = $4, updated_at = NOW()
		WHERE id = $1
	`, lc.ID, lc.Title, lc.StartsAt, lc.MeetingURL)

	if err != nil {
		return liveclass.LiveClass{}, err
	}

	if tag.RowsAffected() == 0 {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}

	return lc, nil
}

func (r *LiveClassesRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM live_classes WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return liveclass.ErrNotFound
	}

	return nil
}
