package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/safalapp/classhub/internal/domain/batch"
	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/domain/liveclass"
	"github.com/safalapp/classhub/internal/domain/user"
	"github.com/safalapp/classhub/internal/jobs"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/observability"
	"github.com/safalapp/classhub/internal/repo/postgres"
)

type fakeUsers struct {
	users  map[string]user.User
	emails map[string][]string
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) ListEmailsByBatch(ctx context.Context, batchName string) ([]string, error) {
	return f.emails[batchName], nil
}

type fakeLiveClasses struct {
	classes map[string]liveclass.LiveClass
}

func (f *fakeLiveClasses) GetByID(ctx context.Context, id string) (liveclass.LiveClass, error) {
	lc, ok := f.classes[id]
	if !ok {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}
	return lc, nil
}

type fakeBatches struct {
	batches map[string]batch.Batch
}

func (f *fakeBatches) GetByID(ctx context.Context, id string) (batch.Batch, error) {
	b, ok := f.batches[id]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	return b, nil
}

// fakeLedger mirrors the sent/sending semantics of the postgres repo.
type fakeLedger struct {
	mu   sync.Mutex
	sent map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{sent: make(map[string]bool)}
}

func (f *fakeLedger) TryStart(ctx context.Context, kind, ref, jobID, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sent[kind+"|"+ref] {
		return postgres.ErrDeliveryAlreadySent
	}
	return nil
}

func (f *fakeLedger) MarkSent(ctx context.Context, kind, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[kind+"|"+ref] = true
	return nil
}

func (f *fakeLedger) MarkFailed(ctx context.Context, kind, ref string, errMsg string) error {
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}

	m.sent = append(m.sent, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func welcomeJob(t *testing.T, userID string) job.Job {
	t.Helper()

	payload, err := jobs.EncodePayload(jobs.TypeWelcomeEmail, jobs.WelcomeEmailPayload{
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	return job.New(job.CreateRequest{Type: jobs.TypeWelcomeEmail, Payload: payload})
}

func TestMailExecutor_WelcomeEmail(t *testing.T) {
	u := user.New(user.NewParams{
		MobileNumber: "9999999999",
		Email:        "a@x.com",
		FullName:     "Asha",
		BatchName:    "NEET 2027",
	})

	users := &fakeUsers{users: map[string]user.User{u.ID: u}}
	ledger := newFakeLedger()
	mailer := &captureMailer{}

	exec := NewMailExecutor(users, &fakeLiveClasses{}, &fakeBatches{}, ledger, mailer, "no-reply@example.com", testLogger(), nil)

	j := welcomeJob(t, u.ID)

	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mailer.sent))
	}

	if mailer.sent[0].To[0] != "a@x.com" {
		t.Fatalf("mail went to %v", mailer.sent[0].To)
	}

	// a retry of the same job must not send again
	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("second execute: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("retry re-sent the mail: %d sends", len(mailer.sent))
	}
}

func TestMailExecutor_WelcomeEmail_UserGone(t *testing.T) {
	exec := NewMailExecutor(
		&fakeUsers{users: map[string]user.User{}},
		&fakeLiveClasses{}, &fakeBatches{}, newFakeLedger(), &captureMailer{},
		"no-reply@example.com", testLogger(), nil,
	)

	// deleted users are a no-op, not a retry storm
	if err := exec.Execute(context.Background(), welcomeJob(t, uuid.NewString())); err != nil {
		t.Fatalf("expected nil for missing user, got %v", err)
	}
}

func TestMailExecutor_LiveClassNotice_FansOutAndResumes(t *testing.T) {
	b := batch.NewFromCreateRequest(batch.CreateBatchRequest{Name: "NEET 2027"})

	lc := liveclass.LiveClass{
		ID:         uuid.NewString(),
		BatchID:    b.ID,
		SubjectID:  uuid.NewString(),
		Title:      "Organic Chemistry Revision",
		StartsAt:   time.Now().UTC().Add(time.Hour),
		MeetingURL: "https://meet.example.com/xyz",
	}

	users := &fakeUsers{
		emails: map[string][]string{"NEET 2027": {"a@x.com", "b@x.com", "c@x.com"}},
	}
	ledger := newFakeLedger()
	mailer := &captureMailer{}

	exec := NewMailExecutor(users,
		&fakeLiveClasses{classes: map[string]liveclass.LiveClass{lc.ID: lc}},
		&fakeBatches{batches: map[string]batch.Batch{b.ID: b}},
		ledger, mailer, "no-reply@example.com", testLogger(), nil,
	)

	payload, err := jobs.EncodePayload(jobs.TypeLiveClassNotice, jobs.LiveClassNoticePayload{
		LiveClassID: lc.ID,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	j := job.New(job.CreateRequest{Type: jobs.TypeLiveClassNotice, Payload: payload})

	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(mailer.sent) != 3 {
		t.Fatalf("expected 3 mails, got %d", len(mailer.sent))
	}

	// retrying the whole job skips everyone already recorded as sent
	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("second execute: %v", err)
	}

	if len(mailer.sent) != 3 {
		t.Fatalf("retry re-sent mail: %d sends", len(mailer.sent))
	}
}

func TestMailExecutor_UnknownType(t *testing.T) {
	exec := NewMailExecutor(&fakeUsers{}, &fakeLiveClasses{}, &fakeBatches{}, newFakeLedger(), &captureMailer{},
		"no-reply@example.com", testLogger(), nil)

	j := job.New(job.CreateRequest{Type: "bogus.type", Payload: []byte(`{}`)})

	if err := exec.Execute(context.Background(), j); !errors.Is(err, jobs.ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestMailExecutor_CountsSendOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	u := user.New(user.NewParams{
		MobileNumber: "9999999999",
		Email:        "a@x.com",
		FullName:     "Asha",
		BatchName:    "NEET 2027",
	})

	users := &fakeUsers{users: map[string]user.User{u.ID: u}}
	mailer := &captureMailer{}

	exec := NewMailExecutor(users, &fakeLiveClasses{}, &fakeBatches{}, newFakeLedger(), mailer,
		"no-reply@example.com", testLogger(), prom)

	j := welcomeJob(t, u.ID)

	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got := testutil.ToFloat64(prom.MailSendsTotal.WithLabelValues(jobs.TypeWelcomeEmail, "sent")); got != 1 {
		t.Fatalf("sent counter = %v, want 1", got)
	}

	// retry lands in the ledger and is counted as skipped, not sent
	if err := exec.Execute(context.Background(), j); err != nil {
		t.Fatalf("second execute: %v", err)
	}

	if got := testutil.ToFloat64(prom.MailSendsTotal.WithLabelValues(jobs.TypeWelcomeEmail, "sent")); got != 1 {
		t.Fatalf("sent counter after retry = %v, want 1", got)
	}

	if got := testutil.ToFloat64(prom.MailSendsTotal.WithLabelValues(jobs.TypeWelcomeEmail, "skipped")); got != 1 {
		t.Fatalf("skipped counter = %v, want 1", got)
	}

	// a delivery failure shows up under failed
	mailer.fail = true
	failExec := NewMailExecutor(users, &fakeLiveClasses{}, &fakeBatches{}, newFakeLedger(), mailer,
		"no-reply@example.com", testLogger(), prom)

	if err := failExec.Execute(context.Background(), j); err == nil {
		t.Fatal("expected send failure")
	}

	if got := testutil.ToFloat64(prom.MailSendsTotal.WithLabelValues(jobs.TypeWelcomeEmail, "failed")); got != 1 {
		t.Fatalf("failed counter = %v, want 1", got)
	}
}
