package worker

import (
	"context"
	"errors"
	"time"

	"github.com/safalapp/classhub/internal/domain/job"
)

func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()

	start := time.Now()

	err = w.exec.Execute(ctx, j)

	w.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.IncDone()
	return true, nil
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	// attempts counts claims that already happened; this failure uses one up
	if j.Attempts+1 >= j.MaxAttempts {
		w.metrics.IncDeadLettered()

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "err", err)
		}

		w.log.Error("job dead-lettered", "job_id", j.ID, "type", j.Type, "err", execErr)
		return
	}

	w.metrics.IncRetried()

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule", "job_id", j.ID, "err", err)
	}
}
