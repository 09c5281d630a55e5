package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eztutor/drive-export/internal/audit"
	"github.com/eztutor/drive-export/internal/auth"
	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/config"
	"github.com/eztutor/drive-export/internal/crypto"
	"github.com/eztutor/drive-export/internal/database"
	auditrepo "github.com/eztutor/drive-export/internal/database/audit"
	"github.com/eztutor/drive-export/internal/database/content"
	"github.com/eztutor/drive-export/internal/database/failures"
	"github.com/eztutor/drive-export/internal/database/ledger"
	"github.com/eztutor/drive-export/internal/database/queue"
	"github.com/eztutor/drive-export/internal/database/users"
	"github.com/eztutor/drive-export/internal/exporters"
	http_controllers "github.com/eztutor/drive-export/internal/http"
	"github.com/eztutor/drive-export/internal/logging"
	"github.com/eztutor/drive-export/internal/metrics"
	"github.com/eztutor/drive-export/internal/oauth2"
	"github.com/eztutor/drive-export/internal/oauth2/providers"
	"github.com/eztutor/drive-export/internal/retryqueue"
	"github.com/eztutor/drive-export/internal/scheduler"
	"github.com/eztutor/drive-export/internal/services"
	"github.com/eztutor/drive-export/internal/storage/providers/gdrive"
	"github.com/eztutor/drive-export/internal/tasks"
	"github.com/eztutor/drive-export/internal/tokenstore"
)

// App holds the wired export subsystem.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *database.Database
	Audit   *audit.Service
	Auth    *auth.Service
	Tokens  *oauth2.Manager
	Flow    *oauth2.FlowHandler
	Queue   *retryqueue.Queue
	Worker  *retryqueue.Worker
	Exports *services.ExportService
	Ledger  *ledger.Repository

	queueRepo      *queue.Repository
	queueScheduler *scheduler.ExportQueueScheduler
	failureRepo    *failures.Repository
	folderCache    exporters.FolderCache
	healthChecks   map[string]http_controllers.HealthCheck
	prometheus     *metrics.PrometheusSink
	closers        []func() error
}

// New wires every component from cfg. It opens the database and, when
// configured, the redis folder cache; Close releases both.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:       cfg,
		Logger:       logger,
		healthChecks: make(map[string]http_controllers.HealthCheck),
	}
	clk := clock.Real{}

	var sink metrics.Sink = metrics.Nop{}
	if cfg.Metrics.Enabled {
		app.prometheus = metrics.NewPrometheusSink()
		sink = app.prometheus
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	app.closers = append(app.closers, db.Close)

	vault, err := crypto.NewVaultFromHex(cfg.Crypto.EncryptionKey, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}

	stateKey, err := oauth2.DeriveStateKey(cfg.Crypto.OAuthStateSecret, vault.Key())
	if err != nil {
		app.Close()
		return nil, err
	}
	if cfg.Crypto.OAuthStateSecret == "" && !vault.Enabled() {
		logger.Warn("OAUTH_STATE_SECRET and ENCRYPTION_KEY are unset, consent links will not survive a restart")
	}
	states := oauth2.NewStateSigner(stateKey, cfg.Crypto.OAuthStateTTL, clk)

	provider := providers.NewGoogleProvider(providers.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURI,
		AuthURL:      cfg.Google.AuthURL,
		TokenURL:     cfg.Google.TokenURL,
		Timeout:      cfg.Drive.HTTPClientTimeout,
	})
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		logger.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is not set, drive export is disabled")
	}

	credentials := tokenstore.New(db.DB, vault)
	app.Tokens = oauth2.NewManager(provider, credentials, states,
		oauth2.WithClock(clk),
		oauth2.WithMetrics(sink),
		oauth2.WithLogger(logger.Named("oauth2")),
	)
	app.Flow = oauth2.NewFlowHandler(provider, credentials, states)

	app.folderCache = app.newFolderCache(clk)

	drive := gdrive.NewClient(gdrive.Config{
		APIURL:    cfg.Drive.APIURL,
		UploadURL: cfg.Drive.UploadURL,
		Timeout:   cfg.Drive.HTTPClientTimeout,
	})
	pipeline := exporters.NewPipeline(drive,
		exporters.WithFolderCache(app.folderCache),
		exporters.WithRootFolder(cfg.Drive.RootFolder),
		exporters.WithClock(clk),
		exporters.WithMetrics(sink),
		exporters.WithLogger(logger.Named("pipeline")),
	)

	contentRepo := content.NewRepository(db.DB)
	app.Ledger = ledger.NewRepository(db.DB)
	app.queueRepo = queue.NewRepository(db.DB)
	app.failureRepo = failures.NewRepository(db.DB)

	app.Audit = audit.NewService(auditrepo.NewRepository(db.DB), logger.Named("audit"), clk)
	app.closers = append(app.closers, func() error {
		app.Audit.Flush()
		return nil
	})

	app.Auth = auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	if _, err := app.Auth.EnsureDefaultUser(); err != nil {
		app.Close()
		return nil, err
	}

	app.Queue = retryqueue.NewQueue(app.queueRepo, clk, logger.Named("retryqueue"))
	app.Worker = retryqueue.NewWorker(retryqueue.Deps{
		Store:       app.queueRepo,
		Credentials: credentials,
		Tokens:      app.Tokens,
		Content:     contentRepo,
		Exporter:    pipeline,
		Ledger:      app.Ledger,
		Failures:    app.failureRepo,
		Audit:       app.Audit,
	}, retryqueue.Config{
		BaseDelay:   cfg.ExportQueue.BaseDelay,
		MaxDelay:    cfg.ExportQueue.MaxDelay,
		MaxAttempts: cfg.ExportQueue.MaxAttempts,
		Lease:       cfg.ExportQueue.Lease,
	},
		retryqueue.WithWorkerClock(clk),
		retryqueue.WithWorkerMetrics(sink),
		retryqueue.WithWorkerLogger(logger.Named("retryqueue")),
	)

	app.Exports = services.NewExportService(contentRepo, app.Tokens, pipeline, app.Ledger, app.Queue,
		services.WithAuditor(app.Audit),
		services.WithClock(clk),
		services.WithMetrics(sink),
		services.WithLogger(logger.Named("export")),
	)

	return app, nil
}

func (a *App) newFolderCache(clk clock.Clock) exporters.FolderCache {
	cfg := a.Config.FolderCache
	switch cfg.Backend {
	case config.FolderCacheNone:
		return exporters.NopFolderCache{}
	case config.FolderCacheRedis:
		cache := exporters.NewRedisFolderCache(exporters.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		a.closers = append(a.closers, cache.Close)
		a.healthChecks["folder_cache"] = cache.Ping
		a.Logger.Info("using redis folder cache", zap.String("addr", cfg.RedisAddr))
		return cache
	default:
		return exporters.NewMemoryFolderCache(cfg.TTL, clk)
	}
}

// Router builds the HTTP API around the wired components.
func (a *App) Router(taskClient *tasks.Client, version string) *gin.Engine {
	routerCfg := http_controllers.RouterConfig{
		Database:       a.DB,
		Exporter:       a.Exports,
		Logger:         a.Logger.Named("http"),
		AuthMiddleware: auth.NewMiddleware(a.Auth, a.Config.Auth),
		Tokens:         a.Tokens,
		Flow:           a.Flow,
		FrontendURL:    a.Config.Google.FrontendURL,
		RetryQueue:     a.Queue,
		Ledger:         a.Ledger,
		Queue:          a.queueRepo,
		Failures:       a.failureRepo,
		Auditor:        a.Audit,
		AuditReader:    a.Audit,
		HealthChecks:   a.healthChecks,
		QueueBacklog:   a.queueRepo,
		Version:        version,
	}
	if a.queueScheduler != nil {
		routerCfg.QueueTicking = a.queueScheduler.IsTicking
	}
	// A nil *tasks.Client must not become a non-nil interface.
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}
	if a.prometheus != nil {
		routerCfg.MetricsHandler = a.prometheus.Handler()
	}
	return http_controllers.NewRouter(routerCfg)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("error during shutdown", zap.Error(err))
		}
	}
	a.closers = nil
}

// Run starts the HTTP server with the background task queue and schedulers
// and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Environment)
	defer func() { _ = logger.Sync() }()

	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting drive export service",
		zap.String("version", version),
		zap.String("auth_mode", string(cfg.Auth.Mode)),
	)

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:            cfg.Tasks.Workers,
			ReleaseAfter:       cfg.Tasks.ReleaseAfter,
			CleanupInterval:    cfg.Tasks.CleanupInterval,
			AuditRetentionDays: cfg.Audit.RetentionDays,
		}, logger.Named("tasks"))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Warn("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewExportContentQueue(app.Exports, logger.Named("tasks")),
			tasks.NewCleanupAuditEventsQueue(app.Audit, logger.Named("tasks")),
		)
		go taskClient.Start(ctx)

		auditCleanup := scheduler.NewAuditCleanupScheduler(taskClient, scheduler.DefaultAuditCleanupSchedule, cfg.Audit.RetentionDays, logger.Named("scheduler"))
		if err := auditCleanup.Start(ctx); err != nil {
			return err
		}
		defer auditCleanup.Stop()
	} else {
		logger.Info("task queue disabled, async exports and audit cleanup are off")
	}

	if cfg.ExportQueue.Enabled {
		queueScheduler := scheduler.NewExportQueueScheduler(app.Worker, cfg.ExportQueue.Interval, logger.Named("scheduler"))
		if err := queueScheduler.Start(ctx); err != nil {
			return err
		}
		defer queueScheduler.Stop()
		app.queueScheduler = queueScheduler
	} else {
		logger.Info("export retry worker disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Router(taskClient, version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
		logger.Info("shutting down server", zap.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// DrainQueue processes due retry items until none remain or limit items
// were handled, and returns the per-outcome counts.
func DrainQueue(ctx context.Context, cfg *config.Config, limit int) (map[retryqueue.Outcome]int, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Environment)
	defer func() { _ = logger.Sync() }()

	app, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer app.Close()

	return app.Worker.Drain(ctx, limit)
}
