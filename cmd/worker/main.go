package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andino-transportes/andino/internal/app"
	"github.com/andino-transportes/andino/internal/invoicing"
	jobmetrics "github.com/andino-transportes/andino/internal/jobs"
	"github.com/andino-transportes/andino/internal/platform/db"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)

	gateway := invoicing.NewHTTPGateway(cfg.InvoiceGatewayURL, cfg.InvoiceGatewayTimeout)
	invoiceService := invoicing.NewService(invoicing.NewPGStore(pool), gateway, jobClient, logger)
	invoiceRetryJob := jobs.NewInvoiceRetryJob(invoiceService, logger, metrics)

	provisioner := sequence.NewProvisioner(pool)
	provisionJob := jobs.NewSequenceProvisionJob(provisioner, logger, metrics)

	provisionTask, err := jobs.NewSequenceProvisionTask([]string{sequence.DomainTickets, sequence.DomainShipments})
	if err != nil {
		logger.Error("build provision task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeInvoiceRetry, Handler: invoiceRetryJob.Handle},
			{Type: jobs.TaskTypeSequenceProvision, Handler: provisionJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: provisionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
