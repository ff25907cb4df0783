package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/klefe6/almanac/internal/cache"
	"github.com/klefe6/almanac/internal/config"
	apierrors "github.com/klefe6/almanac/internal/errors"
	"github.com/klefe6/almanac/internal/events"
	"github.com/klefe6/almanac/internal/filters"
	"github.com/klefe6/almanac/internal/infrastructure"
	custommw "github.com/klefe6/almanac/internal/middleware"
	"github.com/klefe6/almanac/internal/services"
	"github.com/klefe6/almanac/internal/store"
	handlers "github.com/klefe6/almanac/internal/transport/http"
	ws "github.com/klefe6/almanac/internal/websocket"
)

// Application bundles every long-lived component of the almanac server:
// configuration, observability providers, the bar store, the stats cache,
// the event calendar, the services and the HTTP server itself. It is built
// once by New and torn down by Stop.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.BusinessMetrics

	Store    *store.Store
	Cache    cache.Cache
	Calendar *events.Calendar
	Hub      *ws.Hub

	StatsService   *services.StatsService
	ExportService  *services.ExportService
	ProductService *services.ProductService
	EventService   *services.EventService
	WarmupService  *services.WarmupService
	HealthService  *services.HealthService

	debug         bool
	watcherCancel context.CancelFunc
	watcherDone   chan struct{}
}

// Options tunes construction without going through the environment.
// Zero values defer to the loaded configuration.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
}

// New loads configuration, connects the shared infrastructure and wires
// every service and handler into a ready-to-start Application. The passed
// context bounds startup work such as the initial database ping.
func New(ctx context.Context, opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	} else if cfg.Logging.Level == "debug" {
		cfg.Logging.Level = "info"
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	app := &Application{
		Config: cfg,
		Logger: logger,
		debug:  opts.Debug,
	}

	if err := app.initialize(ctx); err != nil {
		app.closeResources()
		return nil, err
	}
	return app, nil
}

// initialize wires components in dependency order. On error the caller
// releases whatever was already opened.
func (app *Application) initialize(ctx context.Context) error {
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(app.debug), app.Logger)
	if err != nil {
		return fmt.Errorf("initialize otel: %w", err)
	}
	app.OTel = providers

	if providers.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		app.Metrics = metrics
	}

	st, err := store.Open(ctx, storeConfig(app.Config.Database), app.Logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	app.Store = st

	c, err := buildCache(app.Config.Cache, app.Logger)
	if err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	app.Cache = c

	if err := app.initCalendar(); err != nil {
		return err
	}

	engine := filters.NewEngine(app.Calendar)

	app.Hub = ws.NewHub(app.Config.WebSocket, app.Metrics, app.Logger)
	app.Hub.Start()

	dataset := services.NewDatasetService(app.Store, app.Metrics, app.Logger)
	app.StatsService = services.NewStatsService(dataset, engine, app.Cache, app.Metrics, app.Logger, services.StatsOptions{
		DefaultTrimPct: app.Config.Data.DefaultTrimPct,
		CacheTTL:       app.Config.Cache.TTL,
	})
	app.ExportService = services.NewExportService(app.Logger)
	app.ProductService = services.NewProductService(app.Store, app.Logger)
	app.EventService = services.NewEventService(app.Calendar, app.Logger)
	app.WarmupService = services.NewWarmupService(app.StatsService, app.ProductService, app.Hub, app.Metrics, app.Logger)
	app.HealthService = services.NewHealthService(app.Store, app.Cache, app.Config.Data.Dir, app.Logger)

	app.setupRouter()
	app.createServer()
	return nil
}

// initCalendar builds the event calendar, applies the configured overlay
// and, when enabled, starts the watcher that reloads it on change.
func (app *Application) initCalendar() error {
	cal := events.NewCalendar(app.Logger)

	overlay := app.Config.Events.OverlayFile
	if overlay != "" {
		if err := cal.LoadOverlay(overlay); err != nil {
			// The watcher may pick up a corrected file later.
			app.Logger.Warn("event overlay not loaded",
				slog.String("path", overlay),
				slog.String("error", err.Error()))
		}
	}
	app.Calendar = cal

	if overlay == "" || !app.Config.Events.Watch {
		return nil
	}

	watcher, err := events.NewWatcher(cal, overlay, app.Logger)
	if err != nil {
		return fmt.Errorf("watch event overlay: %w", err)
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Run(watchCtx)
	}()
	app.watcherCancel = cancel
	app.watcherDone = done
	return nil
}

// setupRouter builds the chi router. The websocket endpoint sits outside
// the main middleware group so upgrades are not buffered by compression
// or cut short by the request timeout.
func (app *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	errorHandler := apierrors.NewErrorHandler(app.Logger, app.debug)

	wsHandler := handlers.NewWSHandler(app.Hub, app.Config.WebSocket, app.Config.Server.AllowedOrigins, app.Logger)
	r.With(custommw.WebSocketTrace(app.Logger)).Method(http.MethodGet, "/ws", wsHandler)

	r.Group(func(r chi.Router) {
		if app.OTel != nil && app.OTel.Tracer != nil {
			r.Use(custommw.NewOTelMiddleware(app.OTel.Tracer, app.Metrics, app.Logger).Handler)
		}
		r.Use(custommw.StructuredLogger(app.Logger))
		r.Use(custommw.Recoverer(errorHandler))
		r.Use(custommw.SecurityHeaders)
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: app.Config.Server.AllowedOrigins,
			Logger:         app.Logger,
		}))
		if app.Config.Server.RateLimit.Enabled {
			limiter := custommw.NewRateLimiter(app.Config.Server.RateLimit.RPS, app.Config.Server.RateLimit.Burst, app.Logger)
			r.Use(limiter.Handler)
		}
		r.Use(custommw.Timeout(app.Config.Server.RequestTimeout))
		r.Use(custommw.Compress(5))

		app.mountAPI(r, errorHandler)
	})

	if app.OTel != nil && app.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", app.OTel.PrometheusHTTP)
	}

	app.Router = r
}

// mountAPI attaches the /api routes. Handlers receive narrow service
// interfaces, so this is the only place that sees the concrete types.
func (app *Application) mountAPI(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	validation := custommw.NewValidationMiddleware(app.Logger, errorHandler)
	query := custommw.NewQueryParamValidator(app.Logger, errorHandler)

	healthHandler := handlers.NewHealthHandler(app.HealthService, app.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/stats", handlers.NewStatsHandler(app.StatsService, app.ExportService, validation, query, app.Logger, errorHandler).Routes())
		r.Mount("/products", handlers.NewProductsHandler(app.ProductService, app.Logger, errorHandler).Routes())
		r.Mount("/events", handlers.NewEventsHandler(app.EventService, app.Logger, errorHandler).Routes())
		r.Mount("/warmup", handlers.NewWarmupHandler(app.WarmupService, validation, app.Logger, errorHandler).Routes())
		r.Mount("/cache", handlers.NewCacheHandler(app.StatsService, app.Hub, app.Logger, errorHandler).Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})
}

// createServer builds the http.Server with the configured timeouts.
func (app *Application) createServer() {
	cfg := app.Config.Server
	app.Server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Start launches the HTTP listener and returns once it is running. The
// cancel func is invoked if the listener exits with an error so Run can
// unwind instead of blocking on a dead server.
func (app *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	app.logStartup(ctx)

	go func() {
		app.Logger.Info("http server listening", slog.String("addr", app.Server.Addr))
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// logStartup reports version, backend choices and readiness so a
// misconfigured deployment shows up in the first screen of logs.
func (app *Application) logStartup(ctx context.Context) {
	version := app.HealthService.Version()
	app.Logger.Info("starting almanac server",
		slog.Any("version", version["version"]),
		slog.String("addr", fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port)),
		slog.String("cache_backend", app.Config.Cache.Backend),
		slog.Bool("debug", app.debug),
	)

	readiness := app.HealthService.Readiness(ctx)
	for name, check := range readiness.Checks {
		if check.Status != "up" {
			app.Logger.Warn("startup check degraded",
				slog.String("check", name),
				slog.String("status", check.Status),
				slog.String("message", check.Message),
			)
		}
	}
}

// Stop shuts the application down in reverse dependency order: stop
// accepting HTTP traffic, halt background work, then release connections
// and the observability providers.
func (app *Application) Stop(ctx context.Context) error {
	app.Logger.Info("shutting down almanac server")

	shutdownCtx, cancel := context.WithTimeout(ctx, app.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if app.Server != nil {
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("http shutdown", slog.String("error", err.Error()))
			firstErr = err
		}
		app.Server = nil
	}

	if app.WarmupService != nil {
		if err := app.WarmupService.Stop(); err != nil && err != services.ErrJobNotRunning {
			app.Logger.Warn("warmup stop", slog.String("error", err.Error()))
		}
	}

	if app.Hub != nil {
		app.Hub.Stop()
		app.Hub = nil
	}

	if app.watcherCancel != nil {
		app.watcherCancel()
		select {
		case <-app.watcherDone:
		case <-shutdownCtx.Done():
		}
		app.watcherCancel = nil
	}

	app.closeResources()

	app.Logger.Info("shutdown complete")
	return firstErr
}

// closeResources releases connection-holding components. It is safe on a
// partially constructed Application and safe to call twice.
func (app *Application) closeResources() {
	if app.Store != nil {
		app.Store.Close()
		app.Store = nil
	}
	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			app.Logger.Warn("cache close", slog.String("error", err.Error()))
		}
		app.Cache = nil
	}
	if app.OTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.OTel.Shutdown(ctx); err != nil {
			app.Logger.Warn("otel shutdown", slog.String("error", err.Error()))
		}
		cancel()
		app.OTel = nil
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		slog.Warn("close log file", slog.String("error", err.Error()))
	}
}

// Run starts the server and blocks until SIGINT or SIGTERM, then performs
// a graceful shutdown. It is the main-loop entry point for cmd/almanac.
func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx, cancel); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		app.Logger.Info("received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		app.Logger.Info("server stopped unexpectedly")
	}

	return app.Stop(context.Background())
}

// storeConfig maps the loaded database section onto the store package's
// connection settings.
func storeConfig(cfg config.DatabaseConfig) store.Config {
	return store.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Name:     cfg.Name,
		User:     cfg.User,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
		MinConns: cfg.MinConns,
		MaxConns: cfg.MaxConns,
	}
}

// buildCache selects the configured cache backend. Memory is the default;
// Redis is only attempted when explicitly requested so a missing server
// fails loudly instead of silently degrading.
func buildCache(cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		c, err := cache.NewRedis(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return c, nil
	case "memory", "":
		janitor := cfg.TTL / 2
		if janitor <= 0 {
			janitor = time.Minute
		}
		return cache.NewMemory(cfg.MaxEntries, janitor), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
