package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safalapp/classhub/internal/domain/study"
	"github.com/safalapp/classhub/internal/domain/subject"
	"github.com/safalapp/classhub/internal/utils"
)

type MaterialsRepo struct {
	pool *pgxpool.Pool
}

func NewMaterialsRepo(pool *pgxpool.Pool) *MaterialsRepo {
	return &MaterialsRepo{pool: pool}
}

func (r *MaterialsRepo) Create(ctx context.Context, req study.CreateMaterialRequest) (study.Material, error) {
	m := study.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO study_materials (id, subject_id, title, description, file_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.SubjectID, m.Title, m.Description, m.FileURL, m.CreatedAt, m.UpdatedAt)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return study.Material{}, subject.ErrNotFound
		}
		return study.Material{}, err
	}

	return m, nil
}

// List pages newest-first with a keyset cursor; see utils.MaterialCursor.
func (r *MaterialsRepo) List(ctx context.Context, filter study.ListMaterialsFilter) ([]study.Material, string, error) {
	limit := filter.Limit

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	base := `SELECT id, subject_id, title, description, file_url, created_at, updated_at
		FROM study_materials`

	var conds []string
	var args []interface{}
	pos := 1

	if filter.SubjectID != "" {
		conds = append(conds, fmt.Sprintf("subject_id = $%d", pos))
		args = append(args, filter.SubjectID)
		pos++
	}

	if filter.Cursor != "" {
		c, err := utils.DecodeMaterialCursor(filter.Cursor)

		if err != nil {
			return nil, "", err
		}

		conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", pos, pos+1))
		args = append(args, c.CreatedAt, c.ID)
		pos += 2
	}

	query := base

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// fetch one extra row to know whether a next page exists
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", pos)
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)

	if err != nil {
		return nil, "", err
	}

	defer rows.Close()

	out := make([]study.Material, 0, limit)

	for rows.Next() {
		var m study.Material

		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Title, &m.Description, &m.FileURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, "", err
		}

		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""

	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]

		next, err = utils.EncodeMaterialCursor(last.CreatedAt, last.ID)

		if err != nil {
			return nil, "", err
		}
	}

	return out, next, nil
}

func (r *MaterialsRepo) GetByID(ctx context.Context, id string) (study.Material, error) {
	var m study.Material

	err := r.pool.QueryRow(ctx, `
		SELECT id, subject_id, title, description, file_url, created_at, updated_at
		FROM study_materials
		WHERE id = $1
	`, id).Scan(&m.ID, &m.SubjectID, &m.Title, &m.Description, &m.FileURL, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return study.Material{}, study.ErrNotFound
		}
		return study.Material{}, err
	}

	return m, nil
}

func (r *MaterialsRepo) Update(ctx context.Context, id string, req study.UpdateMaterialRequest) (study.Material, error) {
	m, err := r.GetByID(ctx, id)

	if err != nil {
		return study.Material{}, err
	}

	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.FileURL != nil {
		m.FileURL = *req.FileURL
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE study_materials
		SET title = $2, description = $3, file_url = $4, updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Title, m.Description, m.FileURL)

	if err != nil {
		return study.Material{}, err
	}

	if tag.RowsAffected() == 0 {
		return study.Material{}, study.ErrNotFound
	}

	return m, nil
}

func (r *MaterialsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM study_materials WHERE id = $1`, id)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return study.ErrNotFound
	}

	return nil
}
