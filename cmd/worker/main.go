package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/db"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/observability"
	"github.com/safalapp/classhub/internal/queue/worker"
	"github.com/safalapp/classhub/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, "classhub-worker")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "classhub-worker", cfg.Env, cfg.OTLPEndpoint, cfg.OTLPSampleRatio)

	if err != nil {
		log.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, 5)

	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	defer pool.Close()

	mailer, err := mail.Build(cfg.MailBackend, mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}, log)

	if err != nil {
		log.Error("mailer setup failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool)
	batchesRepo := postgres.NewBatchesRepo(pool)
	liveClassesRepo := postgres.NewLiveClassesRepo(pool)
	deliveriesRepo := postgres.NewMailDeliveriesRepo(pool)

	exec := worker.NewMailExecutor(usersRepo, liveClassesRepo, batchesRepo, deliveriesRepo, mailer, cfg.DefaultFromEmail, log, prom)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  250 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, exec, log)

	// small health + metrics listener for orchestrator checks and scraping
	mux := http.NewServeMux()
	mux.Handle("/", w.HealthHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	healthSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port+1),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health listener failed", "error", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	snap := w.Metrics().Snapshot()
	log.Info("worker shutdown complete",
		"claimed", snap.Claimed,
		"done", snap.Done,
		"failed", snap.Failed,
		"dead_lettered", snap.DeadLettered,
	)

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}
