package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/termsearch/internal/config"
	"github.com/utafrali/termsearch/internal/dataset"
	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/internal/engine"
	"github.com/utafrali/termsearch/internal/engine/breaker"
	esengine "github.com/utafrali/termsearch/internal/engine/elasticsearch"
	"github.com/utafrali/termsearch/internal/engine/memory"
	"github.com/utafrali/termsearch/internal/event"
	handler "github.com/utafrali/termsearch/internal/handler/http"
	"github.com/utafrali/termsearch/internal/query"
	"github.com/utafrali/termsearch/internal/reconcile"
	"github.com/utafrali/termsearch/internal/service"
	"github.com/utafrali/termsearch/pkg/health"
	pkgkafka "github.com/utafrali/termsearch/pkg/kafka"
	"github.com/utafrali/termsearch/pkg/middleware"
	"github.com/utafrali/termsearch/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "termsearch"

// Version is stamped at build time.
var Version = "dev"

// App wires together all dependencies and runs the termsearch service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          engine.SearchEngine
	dataset        *domain.Dataset
	reconciler     *reconcile.Reconciler
	kafka          *pkgkafka.Producer
	reports        *event.Producer
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance. The dataset is loaded here and
// a load failure is fatal; the document store is not contacted until Run.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		slog.String("path", cfg.DatasetPath),
		slog.Int("categories", len(ds.Categories)),
		slog.Int("records", ds.Len()),
	)

	shutdownTracer, err := tracing.InitTracer(context.Background(), tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		dataset:        ds,
		reconciler:     reconcile.New(store, cfg.ElasticsearchIndex, cfg.ReconcileStrict, logger),
		shutdownTracer: shutdownTracer,
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.kafka = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.reports = event.NewProducer(a.kafka, cfg.ReportTopic, logger)
		logger.Info("reconciliation reports enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.ReportTopic),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("search_engine", store.Ping)
	if a.kafka != nil {
		healthHandler.RegisterNonCritical("kafka", a.kafka.Ping)
	}

	// Queries go through the breaker; the reconciler writes to the store directly.
	reads := breaker.Wrap(store, breaker.DefaultConfig("search_engine"), logger)
	searchService := service.NewSearchService(query.NewComposer(cfg.Facets), reads, logger)

	router := handler.NewRouter(
		handler.NewSearchHandler(searchService, logger),
		handler.NewAdminHandler(a.reconcile, logger),
		healthHandler,
		handler.RouterConfig{
			ServiceName:    ServiceName,
			CORS:           middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins...),
			RequestTimeout: 10 * time.Second,
			StaticDir:      cfg.StaticDir,
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// newEngine builds the configured document store.
func newEngine(cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, error) {
	switch cfg.SearchEngine {
	case config.EngineMemory:
		logger.Info("in-memory search engine initialized")
		return memory.New(memory.WithPageSize(cfg.SnapshotPageSize)), nil
	default:
		eng, err := esengine.New(esengine.Config{
			Addresses:        []string{cfg.ElasticsearchURL},
			Username:         cfg.ElasticsearchUsername,
			Password:         cfg.ElasticsearchPassword,
			APIKey:           cfg.ElasticsearchAPIKey,
			CloudID:          cfg.ElasticsearchCloudID,
			Index:            cfg.ElasticsearchIndex,
			SnapshotPageSize: cfg.SnapshotPageSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return eng, nil
	}
}

// Run prepares the index, then serves HTTP until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.prepare(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// prepare waits for the store, makes sure the index exists and runs the
// startup reconciliation pass. Only connectivity failures are fatal.
func (a *App) prepare(ctx context.Context) error {
	policy := RetryPolicy{
		MaxAttempts:     a.cfg.StoreConnectMaxAttempts,
		InitialInterval: a.cfg.StoreConnectInitialInterval,
		MaxInterval:     a.cfg.StoreConnectMaxInterval,
	}
	if err := waitForStore(ctx, a.store.Ping, policy, a.logger); err != nil {
		return err
	}

	created, err := engine.EnsureIndex(ctx, a.store)
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", a.cfg.ElasticsearchIndex, err)
	}
	if created {
		a.logger.Info("index created", slog.String("index", a.cfg.ElasticsearchIndex))
	}

	count, err := a.store.Count(ctx)
	if err != nil {
		a.logger.Warn("count documents failed", slog.String("error", err.Error()))
	} else {
		a.logger.Info("index ready",
			slog.String("index", a.cfg.ElasticsearchIndex),
			slog.Int64("documents", count),
		)
	}

	// A failed pass is already logged and reported; serving continues.
	_, _ = a.reconcile(ctx)
	return nil
}

// reconcile runs one pass over the loaded dataset and publishes its report.
func (a *App) reconcile(ctx context.Context) (*domain.ReconcileReport, error) {
	report, err := a.reconciler.Reconcile(ctx, a.dataset)
	if report != nil && a.reports != nil {
		if pubErr := a.reports.PublishIndexReconciled(ctx, report); pubErr != nil {
			a.logger.WarnContext(ctx, "publish reconciliation report failed",
				slog.String("error", pubErr.Error()),
			)
		}
	}
	return report, err
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
