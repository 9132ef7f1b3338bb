package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/db"
	httpx "github.com/safalapp/classhub/internal/http"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/observability"
	"github.com/safalapp/classhub/internal/queue/redisclient"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, "classhub-api")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "classhub-api", cfg.Env, cfg.OTLPEndpoint, cfg.OTLPSampleRatio)

	if err != nil {
		log.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, 10)

	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.EnsureAdminUser(ctx, pool, cfg, log); err != nil {
		log.Error("admin seed failed", "error", err)
		os.Exit(1)
	}

	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisCli.Close() }()

	if err := redisCli.Ping(ctx); err != nil {
		log.Warn("redis unavailable, auth rate limiting is per-process", "error", err)
	}

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

	router := httpx.NewRouter(httpx.Deps{
		Cfg:    cfg,
		Log:    log,
		Pool:   pool,
		Redis:  redisCli,
		Mailer: mailer,
		Prom:   prom,
		Reg:    reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)

		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}

	log.Info("shutdown complete")
}
