package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	dataagg "github.com/sciencecms/pmc-backend/internal/data/aggregates"
	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/db"
	"github.com/sciencecms/pmc-backend/internal/http/handlers"
	"github.com/sciencecms/pmc-backend/internal/middleware"
	"github.com/sciencecms/pmc-backend/internal/observability"
	"github.com/sciencecms/pmc-backend/internal/platform/envutil"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
	"github.com/sciencecms/pmc-backend/internal/realtime/bus"
	"github.com/sciencecms/pmc-backend/internal/server"
	"github.com/sciencecms/pmc-backend/internal/services"
)

// Config carries everything read from the environment at startup.
type Config struct {
	Port          string
	MetricsAddr   string
	JWTSecret     string
	WebhookSecret string
	AllowOrigins  []string
	RedisAddr     string
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(envutil.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Port:          envutil.GetEnv("PORT", "8080", log),
		MetricsAddr:   envutil.GetEnv("METRICS_ADDR", "", log),
		JWTSecret:     envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		WebhookSecret: envutil.GetEnv("PMC_WEBHOOK_SECRET", "", log),
		AllowOrigins:  origins,
		RedisAddr:     envutil.GetEnv("REDIS_ADDR", "", log),
	}
}

// App owns the wired object graph and the run loop.
type App struct {
	cfg     Config
	log     *logger.Logger
	router  http.Handler
	metrics *observability.Metrics
	bus     bus.Bus
}

func New(log *logger.Logger, cfg Config) (*App, error) {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, err
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, err
	}
	gdb := pg.DB()

	metrics := observability.Init(log)

	// Repos
	scientistRepo := repos.NewScientistRepo(gdb, log)
	workVersionRepo := repos.NewWorkVersionRepo(gdb, log)
	submissionRepo := repos.NewSubmissionRepo(gdb, log)
	submissionVersionRepo := repos.NewSubmissionVersionRepo(gdb, log)
	activityRepo := repos.NewActivityRepo(gdb, log)
	messageRepo := repos.NewMessageRepo(gdb, log)

	// Aggregates
	base := dataagg.BaseDeps{
		DB:    gdb,
		Log:   log,
		Hooks: dataagg.NewObservabilityHooks(metrics),
	}
	metadataStore := dataagg.NewMetadataStore(dataagg.MetadataStoreDeps{
		Base:         base,
		WorkVersions: workVersionRepo,
	})
	submissionAggregate := dataagg.NewSubmissionAggregate(dataagg.SubmissionAggregateDeps{
		Base:               base,
		WorkVersions:       workVersionRepo,
		Submissions:        submissionRepo,
		SubmissionVersions: submissionVersionRepo,
		Activities:         activityRepo,
	})

	// Notification bus is optional: without REDIS_ADDR events are dropped.
	var eventBus bus.Bus
	if cfg.RedisAddr != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("event bus init failed; notifications disabled", "error", err)
			eventBus = nil
		}
	}

	// Services
	notifier := services.NewPMCNotifier(log, eventBus, metrics)
	pmcService := services.NewPMCService(log, metadataStore, submissionAggregate, workVersionRepo, messageRepo, notifier, metrics)
	activityService := services.NewActivityService(log, activityRepo)

	// HTTP surface
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  middleware.NewAuthMiddleware(log, scientistRepo, cfg.JWTSecret),
		WebhookAuth:     middleware.NewWebhookAuth(log, cfg.WebhookSecret),
		Metrics:         metrics,
		HealthHandler:   handlers.NewHealthHandler(),
		PMCHandler:      handlers.NewPMCHandler(log, pmcService),
		ActivityHandler: handlers.NewActivityHandler(log, activityService),
		AllowOrigins:    cfg.AllowOrigins,
	})

	if metrics != nil {
		ctx := context.Background()
		metrics.StartPostgresCollector(ctx, log, gdb)
		if cfg.RedisAddr != "" {
			metrics.StartRedisCollector(ctx, log, cfg.RedisAddr)
		}
	}

	return &App{
		cfg:     cfg,
		log:     log,
		router:  router,
		metrics: metrics,
		bus:     eventBus,
	}, nil
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		a.log.Info("Server listening", "port", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if a.bus != nil {
			_ = a.bus.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if a.metrics != nil && a.cfg.MetricsAddr != "" {
		a.metrics.StartServer(ctx, a.log, a.cfg.MetricsAddr)
	}

	return g.Wait()
}
