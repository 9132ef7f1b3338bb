package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/safalapp/classhub/internal/domain/job"
	"github.com/safalapp/classhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

// Executor runs a single claimed job.
type Executor interface {
	Execute(ctx context.Context, j job.Job) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg     Config
	repo    JobsRepository
	exec    Executor
	log     *slog.Logger
	metrics *observability.JobMetrics

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, exec Executor, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:     cfg,
		repo:    repo,
		exec:    exec,
		log:     log,
		metrics: observability.NewJobMetrics(),
	}
}

func (w *Worker) Metrics() *observability.JobMetrics {
	return w.metrics
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker shutting down", "worker_id", w.cfg.WorkerID)

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker shutdown grace exceeded")
	}

	return nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := w.ProcessOne(ctx)

		if err != nil {
			w.log.Error("process job", "err", err)
		}

		if processed {
			// drain eagerly while jobs are available
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
