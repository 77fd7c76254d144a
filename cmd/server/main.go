// Command server runs the library HTTP API, the Prometheus metrics endpoint
// and the periodic background jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/handlers"
	"github.com/pagekeep/pagekeep/internal/infrastructure/config"
	"github.com/pagekeep/pagekeep/internal/infrastructure/database"
	"github.com/pagekeep/pagekeep/internal/infrastructure/metrics"
	"github.com/pagekeep/pagekeep/internal/jobs"
	"github.com/pagekeep/pagekeep/internal/metadata"
	pgrepos "github.com/pagekeep/pagekeep/internal/repositories/postgres"
	"github.com/pagekeep/pagekeep/internal/services"
	"github.com/pagekeep/pagekeep/relate"
	relatepg "github.com/pagekeep/pagekeep/relate/postgres"
)

const (
	defaultMigrationsPath = "internal/infrastructure/database/migrations/postgres"
	readHeaderTimeout     = 10 * time.Second
	shutdownTimeout       = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	env := flag.String("env", "dev", "environment name (dev, test, prod)")
	migrationsPath := flag.String("migrations", defaultMigrationsPath, "path to the migration files")
	flag.Parse()

	// Optional .env file; viper reads the environment either way.
	_ = godotenv.Load()

	if err := config.InitConfig(*env); err != nil {
		return fmt.Errorf("failed to init config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.RunMigrations(*migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	source, err := relatepg.NewSourceFromSQLDB(pg.DB, database.NewRelateRegistry(),
		relatepg.WithContextualLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create loader source: %w", err)
	}

	loader, err := relate.NewLoader(source, entities.Schema(),
		relate.WithContextualLogger(logger),
		relate.WithMetrics(metrics.NewLoaderCollector(prometheus.DefaultRegisterer)))
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}

	authors := pgrepos.NewPostgresAuthorRepository(pg.DB)
	books := pgrepos.NewPostgresBookRepository(pg.DB)
	members := pgrepos.NewPostgresMemberRepository(pg.DB)
	loans := pgrepos.NewPostgresLoanRepository(pg.DB)

	notifier := services.NewLogNotifier(logger)

	service := services.NewLibraryService(authors, books, members, loans, loader,
		services.WithNotifier(notifier),
		services.WithServiceLogger(logger))

	overdueReminders := jobs.NewOverdueReminders(loans, loader, notifier, logger, nil)
	monthlyReport := jobs.NewMonthlyReport(loans, loader, logger, nil)
	inventoryCheck := jobs.NewInventoryCheck(books, loans, logger)
	metadataFetch := jobs.NewMetadataFetch(books, metadata.NewClient(cfg.Metadata), logger)

	scheduler := jobs.NewScheduler(logger)
	scheduler.Register("overdue-reminders", cfg.Jobs.OverdueRemindersInterval,
		func(ctx context.Context) error { _, err := overdueReminders.Run(ctx); return err })
	scheduler.Register("monthly-report", cfg.Jobs.MonthlyReportInterval,
		func(ctx context.Context) error { _, err := monthlyReport.Run(ctx); return err })
	scheduler.Register("inventory-check", cfg.Jobs.InventoryCheckInterval,
		func(ctx context.Context) error { _, err := inventoryCheck.Run(ctx); return err })
	scheduler.Register("metadata-fetch", cfg.Jobs.MetadataFetchInterval,
		func(ctx context.Context) error { _, err := metadataFetch.Run(ctx); return err })

	handler := handlers.NewHandler(handlers.Deps{
		Service:          service,
		OverdueReminders: overdueReminders,
		MonthlyReport:    monthlyReport,
		InventoryCheck:   inventoryCheck,
		MetadataFetch:    metadataFetch,
		HealthCheck:      func(context.Context) error { return pg.HealthCheck() },
		Logger:           logger,
		Metrics:          metrics.NewHTTPMetrics(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErrors := make(chan error, 2)

	go func() {
		logger.Info("api server listening", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("api server failed: %w", err)
		}
	}()

	go func() {
		logger.Info("metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErrors:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	scheduler.Wait()
	logger.Info("server stopped")

	return runErr
}
