package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/tecnipro/cobranzas/internal/application/billing"
	clientapp "github.com/tecnipro/cobranzas/internal/application/client"
	reportapp "github.com/tecnipro/cobranzas/internal/application/report"
	"github.com/tecnipro/cobranzas/internal/infrastructure/config"
	"github.com/tecnipro/cobranzas/internal/infrastructure/extract"
	"github.com/tecnipro/cobranzas/internal/infrastructure/logger"
	"github.com/tecnipro/cobranzas/internal/infrastructure/persistence"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/handler"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/middleware"
	"github.com/tecnipro/cobranzas/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting cobranzas server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("driver", cfg.Database.Driver),
		zap.Int("cutover_year", cfg.Billing.CutoverYear),
	)

	// Initialize database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// The sqlite store manages its own schema; postgres runs the SQL
	// migrations through cmd/migrate instead.
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	// Initialize application services
	uow := persistence.NewUnitOfWork(db)
	parser := extract.NewParser(cfg.Billing.CutoverYear, log)

	importService := billingapp.NewImportService(uow, parser, log)
	creditNoteService := billingapp.NewCreditNoteService(uow, cfg.Billing.CutoverYear, log)
	paymentService := billingapp.NewPaymentService(uow, cfg.Billing.CutoverYear, log)
	documentService := billingapp.NewDocumentService(uow, cfg.Billing.CutoverYear, log)
	registryService := clientapp.NewRegistryService(uow, log)
	reportService := reportapp.NewService(
		persistence.NewGormReportRepository(db.DB, cfg.Billing.CutoverYear), log)

	// Set up the HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxUploadSize),
		middleware.Actor(),
	)

	router.NewRouter(engine).
		Register(handler.NewSystemHandler(db, cfg.App.Name, cfg.App.Env)).
		Register(handler.NewImportHandler(importService, creditNoteService, cfg.Billing.ExtractDir)).
		Register(handler.NewDocumentHandler(documentService, paymentService)).
		Register(handler.NewCreditNoteHandler(creditNoteService)).
		Register(handler.NewPaymentHandler(paymentService)).
		Register(handler.NewClientHandler(registryService)).
		Register(handler.NewReportHandler(reportService)).
		Register(handler.NewAuditHandler(uow.Repos().Audit)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for an interrupt and drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
