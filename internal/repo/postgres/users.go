package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safalapp/classhub/internal/domain/user"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrMobileNumberTaken = errors.New("mobile number already in use")
	ErrEmailTaken        = errors.New("email already in use")
)

const userColumns = `id, mobile_number, email, password_hash, full_name, role,
	district, state, pincode, batch_name, subjects, is_active, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}
	return false
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, mobile_number, email, password_hash, full_name, role,
			district, state, pincode, batch_name, subjects, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		u.ID, u.MobileNumber, u.Email, u.PasswordHash, u.FullName, u.Role,
		u.District, u.State, u.Pincode, u.BatchName, u.Subjects, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			var pgErr *pgconn.PgError
			errors.As(err, &pgErr)

			// constraint names carry the conflicting column
			if strings.Contains(pgErr.ConstraintName, "mobile") {
				return ErrMobileNumberTaken
			}
			if strings.Contains(pgErr.ConstraintName, "email") {
				return ErrEmailTaken
			}
		}
		return err
	}

	return nil
}

func (r *UsersRepo) GetByMobile(ctx context.Context, mobile string) (user.User, error) {
	return r.getBy(ctx, "mobile_number", mobile)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UsersRepo) getBy(ctx context.Context, column, value string) (user.User, error) {
	var u user.User

	err := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`,
		value,
	).Scan(
		&u.ID,
		&u.MobileNumber,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.District,
		&u.State,
		&u.Pincode,
		&u.BatchName,
		&u.Subjects,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListEmailsByBatch feeds the live-class notification job.
func (r *UsersRepo) ListEmailsByBatch(ctx context.Context, batchName string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email
		FROM users
		WHERE batch_name = $1 AND is_active
		ORDER BY email
	`, batchName)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var emails []string

	for rows.Next() {
		var email string

		if err := rows.Scan(&email); err != nil {
			return nil, err
		}

		emails = append(emails, email)
	}

	return emails, rows.Err()
}
