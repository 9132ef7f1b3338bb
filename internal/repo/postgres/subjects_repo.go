package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/subject"
)

type SubjectsRepo struct {
	pool *pgxpool.Pool
}

func NewSubjectsRepo(pool *pgxpool.Pool) *SubjectsRepo {
	return &SubjectsRepo{pool: pool}
}

func (r *SubjectsRepo) Create(ctx context.Context, req subject.CreateSubjectRequest) (subject.Subject, error) {
	s := subject.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO subjects (id, batch_id, name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.BatchID, s.Name, s.CreatedAt, s.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameTaken
		}
		if IsForeignKeyViolation(err) {
			return subject.Subject{}, batch.ErrNotFound
		}
		return subject.Subject{}, err
	}

	return s, nil
}

func (r *SubjectsRepo) ListByBatch(ctx context.Context, batchID string) ([]subject.Subject, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, name, created_at, updated_at
		FROM subjects
		WHERE batch_id = $1
		ORDER BY name ASC
	`, batchID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]subject.Subject, 0)

	for rows.Next() {
		var s subject.Subject

		if err := rows.Scan(&s.ID, &s.BatchID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *SubjectsRepo) GetByID(ctx context.Context, id string) (subject.Subject, error) {
	var s subject.Subject

	err := r.pool.QueryRow(ctx, `
		SELECT id, batch_id, name, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`, id).Scan(&s.ID, &s.BatchID, &s.Name, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, err
	}

	return s, nil
}

func (r *SubjectsRepo) Update(ctx context.Context, id string, req subject.UpdateSubjectRequest) (subject.Subject, error) {
	s, err := r.GetByID(ctx, id)

	if err != nil {
		return subject.Subject{}, err
	}

	if req.Name != nil {
		s.Name = *req.Name
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE subjects
		SET name = $2, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.Name)

	if err != nil {
		if IsUniqueViolation(err) {
			return subject.Subject{}, subject.ErrNameTaken
		}
		return subject.Subject{}, err
	}

	if tag.RowsAffected() == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}

	return s, nil
}

func (r *SubjectsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return subject.ErrNotFound
	}

	return nil
}
