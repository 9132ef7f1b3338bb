package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/repo/postgres"
	"github.com/safalapp/classhub/internal/security"
)

// EnsureAdminUser creates the configured admin account on first boot.
// A missing ADMIN_MOBILE or ADMIN_PASSWORD skips seeding entirely.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminMobile == "" || cfg.AdminPassword == "" {
		log.Info("admin seed skipped, no credentials configured")
		return nil
	}

	users := postgres.NewUsersRepo(pool)

	_, err := users.GetByMobile(ctx, cfg.AdminMobile)

	if err == nil {
		return nil
	}

	if !errors.Is(err, postgres.ErrUserNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	admin := user.New(user.NewParams{
		MobileNumber: cfg.AdminMobile,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FullName:     cfg.AdminName,
		Role:         "admin",
	})

	if err := users.Create(ctx, admin); err != nil {
		// concurrent boot of another instance may have won the race
		if errors.Is(err, postgres.ErrMobileNumberTaken) || errors.Is(err, postgres.ErrEmailTaken) {
			return nil
		}

		return err
	}

	log.Info("admin user created", "mobile", cfg.AdminMobile)

	return nil
}
