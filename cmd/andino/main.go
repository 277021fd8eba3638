package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/andino-transportes/andino/internal/app"
	"github.com/andino-transportes/andino/internal/auth"
	"github.com/andino-transportes/andino/internal/checkout"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/observability"
	"github.com/andino-transportes/andino/internal/platform/cache"
	"github.com/andino-transportes/andino/internal/platform/db"
	"github.com/andino-transportes/andino/internal/shared"
	"github.com/andino-transportes/andino/internal/shipments"
	"github.com/andino-transportes/andino/internal/tickets"
	"github.com/andino-transportes/andino/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(logger, auth.NewService(authRepo, sessions))

	auditLogger := shared.NewAuditLogger(pool, logger)
	metrics := observability.NewMetrics()

	economics, err := loyalty.NewEconomics(cfg.LoyaltySolesPerPoint, cfg.LoyaltyPointsPerSolDiscount)
	if err != nil {
		logger.Error("loyalty economics", slog.Any("error", err))
		os.Exit(1)
	}
	ledger := loyalty.NewLedger(economics)
	loyaltyHandler := loyalty.NewHandler(logger, loyalty.NewPGAccounts(pool))

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	gateway := invoicing.NewHTTPGateway(cfg.InvoiceGatewayURL, cfg.InvoiceGatewayTimeout)
	invoiceService := invoicing.NewService(invoicing.NewPGStore(pool), gateway, jobClient, logger)
	invoicesHandler := invoicing.NewHandler(logger, invoiceService)

	coordinator := checkout.NewCoordinator(checkout.NewPGUnitOfWork(pool), ledger, invoiceService, auditLogger, logger)

	ticketService := tickets.NewService(tickets.NewPGRepository(pool), coordinator, auditLogger, logger, cfg.InvoiceSeriesTickets)
	ticketsHandler := tickets.NewHandler(logger, ticketService)

	proofs, err := shipments.NewDiskProofStore(cfg.ProofDir)
	if err != nil {
		logger.Error("init proof store", slog.Any("error", err))
		os.Exit(1)
	}
	shipmentService := shipments.NewService(shipments.NewPGRepository(pool), coordinator, proofs, auditLogger, logger, cfg.InvoiceSeriesGuides)
	shipmentsHandler := shipments.NewHandler(logger, shipmentService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Sessions:         sessions,
		AuthHandler:      authHandler,
		TicketsHandler:   ticketsHandler,
		ShipmentsHandler: shipmentsHandler,
		LoyaltyHandler:   loyaltyHandler,
		InvoicesHandler:  invoicesHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
