package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/domain/liveclass"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/jobs"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/observability"
	"github.com/safalapp/classhub/internal/repo/postgres"
)

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	ListEmailsByBatch(ctx context.Context, batchName string) ([]string, error)
}

type LiveClassLoader interface {
	GetByID(ctx context.Context, id string) (liveclass.LiveClass, error)
}

type BatchLoader interface {
	GetByID(ctx context.Context, id string) (batch.Batch, error)
}

type DeliveryLedger interface {
	TryStart(ctx context.Context, kind, ref, jobID, recipient string) error
	MarkSent(ctx context.Context, kind, ref string) error
	MarkFailed(ctx context.Context, kind, ref string, errMsg string) error
}

// MailExecutor turns claimed jobs into outbound email, deduped through
// the delivery ledger so retries never re-send.
type MailExecutor struct {
	users       UserLoader
	liveClasses LiveClassLoader
	batches     BatchLoader
	deliveries  DeliveryLedger
	mailer      mail.Mailer
	from        string
	log         *slog.Logger
	prom        *observability.Prom // nil disables metrics
}

func NewMailExecutor(
	users UserLoader,
	liveClasses LiveClassLoader,
	batches BatchLoader,
	deliveries DeliveryLedger,
	mailer mail.Mailer,
	from string,
	log *slog.Logger,
	prom *observability.Prom,
) *MailExecutor {
	return &MailExecutor{
		users:       users,
		liveClasses: liveClasses,
		batches:     batches,
		deliveries:  deliveries,
		mailer:      mailer,
		from:        from,
		log:         log,
		prom:        prom,
	}
}

func (e *MailExecutor) countSend(kind, result string) {
	if e.prom != nil {
		e.prom.MailSendsTotal.WithLabelValues(kind, result).Inc()
	}
}

func (e *MailExecutor) Execute(ctx context.Context, j job.Job) error {
	switch j.Type {
	case jobs.TypeWelcomeEmail:
		return e.sendWelcome(ctx, j)
	case jobs.TypeLiveClassNotice:
		return e.sendLiveClassNotice(ctx, j)
	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type)
	}
}

func (e *MailExecutor) sendWelcome(ctx context.Context, j job.Job) error {
	p, err := jobs.DecodeWelcomeEmail(j.Payload)

	if err != nil {
		return err
	}

	u, err := e.users.GetByID(ctx, p.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// account deleted before the job ran; nothing to do
			e.log.Warn("welcome email skipped, user gone", "user_id", p.UserID)
			return nil
		}
		return err
	}

	return e.deliverOne(ctx, j.ID, jobs.TypeWelcomeEmail, u.ID, mail.Message{
		Subject: "Welcome to Safal Classes",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour account has been created. You are enrolled in batch %q.\nLog in with your mobile number to get started.\n",
			u.FullName, u.BatchName,
		),
		From: e.from,
		To:   []string{u.Email},
	})
}

func (e *MailExecutor) sendLiveClassNotice(ctx context.Context, j job.Job) error {
	p, err := jobs.DecodeLiveClassNotice(j.Payload)

	if err != nil {
		return err
	}

	lc, err := e.liveClasses.GetByID(ctx, p.LiveClassID)

	if err != nil {
		if errors.Is(err, liveclass.ErrNotFound) {
			e.log.Warn("live class notice skipped, class gone", "live_class_id", p.LiveClassID)
			return nil
		}
		return err
	}

	b, err := e.batches.GetByID(ctx, lc.BatchID)

	if err != nil {
		return err
	}

	emails, err := e.users.ListEmailsByBatch(ctx, b.Name)

	if err != nil {
		return err
	}

	msgBody := fmt.Sprintf(
		"A live class %q has been scheduled for batch %q.\nStarts at: %s\nJoin: %s\n",
		lc.Title, b.Name, lc.StartsAt.Format(time.RFC1123), lc.MeetingURL,
	)

	var firstErr error

	for _, email := range emails {
		ref := lc.ID + ":" + email

		err := e.deliverOne(ctx, j.ID, jobs.TypeLiveClassNotice, ref, mail.Message{
			Subject: "New live class scheduled: " + lc.Title,
			Body:    msgBody,
			From:    e.from,
			To:      []string{email},
		})

		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// a retry re-walks the batch; the ledger skips recipients already sent
	return firstErr
}

func (e *MailExecutor) deliverOne(ctx context.Context, jobID, kind, ref string, msg mail.Message) error {
	err := e.deliveries.TryStart(ctx, kind, ref, jobID, msg.To[0])

	if err != nil {
		if errors.Is(err, postgres.ErrDeliveryAlreadySent) || errors.Is(err, postgres.ErrDeliveryInProgress) {
			e.countSend(kind, "skipped")
			return nil
		}
		return err
	}

	if err := e.mailer.Send(ctx, msg); err != nil {
		e.countSend(kind, "failed")
		_ = e.deliveries.MarkFailed(ctx, kind, ref, err.Error())
		return err
	}

	e.countSend(kind, "sent")
	return e.deliveries.MarkSent(ctx, kind, ref)
}
