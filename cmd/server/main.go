package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/classifier"
	"github.com/perkflow/benefit-reimbursement/internal/config"
	"github.com/perkflow/benefit-reimbursement/internal/currency"
	"github.com/perkflow/benefit-reimbursement/internal/extraction"
	"github.com/perkflow/benefit-reimbursement/internal/notify"
	"github.com/perkflow/benefit-reimbursement/internal/report"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/internal/server"
	"github.com/perkflow/benefit-reimbursement/internal/storage"
	"github.com/perkflow/benefit-reimbursement/internal/validation"
	"github.com/perkflow/benefit-reimbursement/internal/workflow"
	"github.com/perkflow/benefit-reimbursement/pkg/database"
	"github.com/perkflow/benefit-reimbursement/pkg/utils"
)

func main() {
	gotenv.Load()

	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting benefit reimbursement service",
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.Fatal("Failed to create database directory", zap.Error(err))
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	employeeRepo := repository.NewEmployeeRepository(db.DB, logger)
	categoryRepo := repository.NewCategoryRepository(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	balanceRepo := repository.NewBalanceRepository(db.DB, logger)

	// Initialize currency conversion
	rateProvider := currency.NewHTTPRateProvider(cfg.Currency.ProviderTimeout, logger)
	rateCache := currency.NewRateCache(cfg.Currency.CacheTTL)
	converter := currency.NewConverter(rateProvider, rateCache, logger)

	// Initialize extraction and classification
	extractor := extraction.NewOpenAIExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.ExtractionModel, logger)
	matcher := classifier.NewOpenAIMatcher(cfg.OpenAI.APIKey, cfg.OpenAI.ClassifierModel, cfg.OpenAI.Temperature, logger)
	gate, err := classifier.NewGateWithThreshold(cfg.Pipeline.ConfidenceThreshold)
	if err != nil {
		logger.Fatal("Invalid confidence threshold", zap.Error(err))
	}

	validator := validation.NewValidator(categoryRepo, balanceRepo, logger)

	// Initialize document storage
	store, err := storage.NewLocalDocumentStore(cfg.Storage.DocumentDir, cfg.Storage.PublicURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document storage", zap.Error(err))
	}

	// Optional review notifications
	var notifier workflow.ReviewNotifier
	if larkNotifier := notify.NewLarkNotifier(notify.Config{
		AppID:      cfg.Lark.AppID,
		AppSecret:  cfg.Lark.AppSecret,
		ReviewChat: cfg.Lark.ReviewChat,
	}, logger); larkNotifier != nil {
		notifier = larkNotifier
	}

	// Initialize approval engine
	engine := workflow.NewEngine(
		db,
		employeeRepo,
		categoryRepo,
		requestRepo,
		invoiceRepo,
		balanceRepo,
		store,
		extractor,
		matcher,
		gate,
		validator,
		converter,
		notifier,
		workflow.Config{ProviderTimeout: cfg.Pipeline.ProviderTimeout},
		logger,
	)

	reporter := report.NewBalanceReporter(categoryRepo, balanceRepo, logger)

	srv := &http.Server{
		Addr:         server.Addr(cfg.Server),
		Handler:      server.New(cfg.Server, engine, reporter, employeeRepo, categoryRepo, logger, cfg.Logger.Level == "debug").Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
