package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDeliveryAlreadySent = errors.New("delivery already sent")
	ErrDeliveryInProgress  = errors.New("delivery in progress")
)

// MailDeliveriesRepo keeps an at-most-once ledger per (kind, ref) so a
// retried job never emails the same recipient twice.
type MailDeliveriesRepo struct {
	pool *pgxpool.Pool
}

func NewMailDeliveriesRepo(pool *pgxpool.Pool) *MailDeliveriesRepo {
	return &MailDeliveriesRepo{pool: pool}
}

func (r *MailDeliveriesRepo) TryStart(ctx context.Context, kind, ref, jobID, recipient string) error {
	// 1) insert if missing
	_, err := r.pool.Exec(ctx, `
		INSERT INTO mail_deliveries (kind, ref, job_id, recipient, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
	`, kind, ref, jobID, recipient)

	if err == nil {
		return nil
	}
	if !IsUniqueViolation(err) {
		return err
	}

	// 2) row exists; only one worker can flip failed -> sending
	tag, uErr := r.pool.Exec(ctx, `
		UPDATE mail_deliveries
		SET status = 'sending',
		    job_id = $3,
		    recipient = $4,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND ref = $2 AND status = 'failed'
	`, kind, ref, jobID, recipient)

	if uErr != nil {
		return uErr
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// 3) not failed: already sent, or another worker holds it
	var status string
	var sentAt *time.Time

	qErr := r.pool.QueryRow(ctx, `
		SELECT status, sent_at
		FROM mail_deliveries
		WHERE kind = $1 AND ref = $2
	`, kind, ref).Scan(&status, &sentAt)

	if qErr != nil {
		if errors.Is(qErr, pgx.ErrNoRows) {
			// row disappeared; let caller retry
			return nil
		}
		return qErr
	}

	if sentAt != nil || status == "sent" {
		return ErrDeliveryAlreadySent
	}

	return ErrDeliveryInProgress
}

func (r *MailDeliveriesRepo) MarkSent(ctx context.Context, kind, ref string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE mail_deliveries
		SET status = 'sent',
		    sent_at = NOW(),
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND ref = $2
	`, kind, ref)

	return err
}

func (r *MailDeliveriesRepo) MarkFailed(ctx context.Context, kind, ref string, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE mail_deliveries
		SET status = 'failed',
		    last_error = $3,
		    updated_at = NOW()
		WHERE kind = $1 AND ref = $2
	`, kind, ref, errMsg)

	return err
}
