package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safalapp/classhub/internal/domain/batch"
)

type BatchesRepo struct {
	pool *pgxpool.Pool
}

func NewBatchesRepo(pool *pgxpool.Pool) *BatchesRepo {
	return &BatchesRepo{pool: pool}
}

func (r *BatchesRepo) Create(ctx context.Context, req batch.CreateBatchRequest) (batch.Batch, error) {
	b := batch.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO batches (id, name, description, category, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.Name, b.Description, b.Category, b.CreatedAt, b.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return batch.Batch{}, batch.ErrNameTaken
		}
		return batch.Batch{}, err
	}

	return b, nil
}

func (r *BatchesRepo) List(ctx context.Context) ([]batch.Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, category, created_at, updated_at
		FROM batches
		ORDER BY name ASC
	`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]batch.Batch, 0)

	for rows.Next() {
		var b batch.Batch

		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

func (r *BatchesRepo) GetByID(ctx context.Context, id string) (batch.Batch, error) {
	var b batch.Batch

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, category, created_at, updated_at
		FROM batches
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batch.Batch{}, batch.ErrNotFound
		}
		return batch.Batch{}, err
	}

	return b, nil
}

func (r *BatchesRepo) GetByName(ctx context.Context, name string) (batch.Batch, error) {
	var b batch.Batch

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, category, created_at, updated_at
		FROM batches
		WHERE name = $1
	`, name).Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batch.Batch{}, batch.ErrNotFound
		}
		return batch.Batch{}, err
	}

	return b, nil
}

func (r *BatchesRepo) Update(ctx context.Context, id string, req batch.UpdateBatchRequest) (batch.Batch, error) {
	b, err := r.GetByID(ctx, id)

	if err != nil {
		return batch.Batch{}, err
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Category != nil {
		b.Category = *req.Category
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE batches
		SET name = $2, description = $3, category = $4, updated_at = NOW()
		WHERE id = $1
	`, b.ID, b.Name, b.Description, b.Category)

	if err != nil {
		if IsUniqueViolation(err) {
			return batch.Batch{}, batch.ErrNameTaken
		}
		return batch.Batch{}, err
	}

	if tag.RowsAffected() == 0 {
		return batch.Batch{}, batch.ErrNotFound
	}

	return b, nil
}

func (r *BatchesRepo) Delete(ctx context.Context, id string) error {
	var n int

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subjects WHERE batch_id = $1`, id).Scan(&n)

	if err != nil {
		return err
	}

	if n > 0 {
		return batch.ErrHasSubjects
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return batch.ErrNotFound
	}

	return nil
}
