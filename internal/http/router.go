package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/safalapp/classhub/internal/auth"
	"github.com/safalapp/classhub/internal/config"
	"github.com/safalapp/classhub/internal/http/handlers"
	"github.com/safalapp/classhub/internal/http/middlewares"
	"github.com/safalapp/classhub/internal/mail"
	"github.com/safalapp/classhub/internal/observability"
	"github.com/safalapp/classhub/internal/queue/redisclient"
	"github.com/safalapp/classhub/internal/repo/postgres"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Deps carries everything the router wires into handlers. main builds
// it once at startup.
type Deps struct {
	Cfg    config.Config
	Log    *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redisclient.Client
	Mailer mail.Mailer
	Prom   *observability.Prom
	Reg    *prometheus.Registry
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(otelgin.Middleware("classhub-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// repositories
	usersRepo := postgres.NewUsersRepo(d.Pool)
	refreshRepo := postgres.NewRefreshTokensRepo(d.Pool)
	jobsRepo := postgres.NewJobsRepo(d.Pool, d.Prom)
	batchesRepo := postgres.NewBatchesRepo(d.Pool)
	subjectsRepo := postgres.NewSubjectsRepo(d.Pool)
	materialsRepo := postgres.NewMaterialsRepo(d.Pool)
	liveClassesRepo := postgres.NewLiveClassesRepo(d.Pool)

	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.AccessTTL(), d.Cfg.RefreshTTL())
	resetTokens := auth.NewResetTokenSource(d.Cfg.JWTSecret, d.Cfg.ResetTokenTTL())

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, refreshRepo, jobsRepo, jwtManager, d.Cfg, d.Log)
	resetHandler := handlers.NewPasswordResetHandler(usersRepo, refreshRepo, resetTokens, d.Mailer, d.Cfg, d.Log)
	batchesHandler := handlers.NewBatchesHandler(batchesRepo)
	subjectsHandler := handlers.NewSubjectsHandler(subjectsRepo)
	materialsHandler := handlers.NewMaterialsHandler(materialsRepo)
	liveClassesHandler := handlers.NewLiveClassesHandler(liveClassesRepo, jobsRepo, d.Log)
	adminJobsHandler := handlers.NewAdminJobsHandler(jobsRepo)

	var redisPinger handlers.Pinger
	if d.Redis != nil {
		redisPinger = d.Redis
	}
	healthHandler := handlers.NewHealthHandler(d.Pool, redisPinger)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// shared limiter for the anonymous auth endpoints; redis-backed
	// when available so counters span all API instances
	authLimit := authRateLimiter(d)

	// health + metrics
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	if d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	// auth
	r.POST("/register", authLimit, authHandler.Register)
	r.POST("/login", authLimit, authHandler.Login)
	r.POST("/password-reset", authLimit, resetHandler.Request)
	r.POST("/password-reset-confirm", authLimit, resetHandler.Confirm)
	r.POST("/token/refresh", authHandler.Refresh)
	r.POST("/logout", authHandler.Logout)

	// read endpoints for signed-in students
	authed := r.Group("/", authMW.RequireAuth())
	authed.GET("/batches", batchesHandler.List)
	authed.GET("/batches/:id", batchesHandler.GetByID)
	authed.GET("/subjects", subjectsHandler.ListByBatch)
	authed.GET("/subjects/:id", subjectsHandler.GetByID)
	authed.GET("/materials", materialsHandler.List)
	authed.GET("/materials/:id", materialsHandler.GetByID)
	authed.GET("/live-classes", liveClassesHandler.ListUpcoming)
	authed.GET("/live-classes/:id", liveClassesHandler.GetByID)

	// admin dashboard
	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole("admin"))
	admin.POST("/batches", batchesHandler.Create)
	admin.PUT("/batches/:id", batchesHandler.Update)
	admin.DELETE("/batches/:id", batchesHandler.Delete)
	admin.POST("/subjects", subjectsHandler.Create)
	admin.PUT("/subjects/:id", subjectsHandler.Update)
	admin.DELETE("/subjects/:id", subjectsHandler.Delete)
	admin.POST("/materials", materialsHandler.Create)
	admin.PUT("/materials/:id", materialsHandler.Update)
	admin.DELETE("/materials/:id", materialsHandler.Delete)
	admin.POST("/live-classes", liveClassesHandler.Create)
	admin.PUT("/live-classes/:id", liveClassesHandler.Update)
	admin.DELETE("/live-classes/:id", liveClassesHandler.Delete)
	admin.GET("/jobs", adminJobsHandler.List)
	admin.GET("/jobs/:id", adminJobsHandler.GetByID)
	admin.POST("/jobs/:id/retry", adminJobsHandler.Retry)

	return r
}

func authRateLimiter(d Deps) gin.HandlerFunc {
	if d.Redis != nil {
		rl := middlewares.NewRedisRateLimiter(d.Redis.Raw(), "rl:auth", d.Cfg.AuthRateLimit, d.Cfg.AuthRateWindow())
		return rl.RateLimiterMiddleware(middlewares.KeyByIP)
	}

	rl := middlewares.NewRateLimiter(d.Cfg.AuthRateLimit, d.Cfg.AuthRateWindow())
	return rl.RateLimiterMiddleware(middlewares.KeyByIP)
}
