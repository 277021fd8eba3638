package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/andino-transportes/andino/internal/invoicing"
	jobmetrics "github.com/andino-transportes/andino/internal/jobs"
)

// InvoiceRetryJob re-submits failed invoices from the queue.
type InvoiceRetryJob struct {
	invoices *invoicing.Service
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewInvoiceRetryJob constructs the job.
func NewInvoiceRetryJob(invoices *invoicing.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceRetryJob {
	return &InvoiceRetryJob{invoices: invoices, logger: logger, metrics: metrics}
}

// Handle processes one retry task. A gateway failure returns an error so
// asynq backs off and retries; exhausted invoices resolve without error.
func (j *InvoiceRetryJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("invoice_retry")
	var payload InvoiceRetryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("invoice retry payload", slog.Any("error", err))
		return tracker.End(asynq.SkipRetry)
	}
	return tracker.End(j.invoices.Retry(ctx, payload.InvoiceID))
}
