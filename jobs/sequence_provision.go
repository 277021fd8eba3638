package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/andino-transportes/andino/internal/jobs"
	"github.com/andino-transportes/andino/internal/sequence"
)

// SequenceProvisionJob seeds today's and tomorrow's daily counter rows so
// sale transactions never hit a missing counter at midnight.
type SequenceProvisionJob struct {
	provisioner *sequence.Provisioner
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
}

// NewSequenceProvisionJob constructs the job.
func NewSequenceProvisionJob(provisioner *sequence.Provisioner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SequenceProvisionJob {
	return &SequenceProvisionJob{provisioner: provisioner, logger: logger, metrics: metrics}
}

// Handle seeds counter rows for every listed domain.
func (j *SequenceProvisionJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("sequence_provision")
	var payload SequenceProvisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("sequence provision payload", slog.Any("error", err))
		return tracker.End(asynq.SkipRetry)
	}

	now := time.Now()
	for _, domain := range payload.Domains {
		for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
			if err := j.provisioner.EnsureDaily(ctx, domain, day); err != nil {
				return tracker.End(err)
			}
		}
	}
	j.logger.Info("sequence counters provisioned", slog.Any("domains", payload.Domains))
	return tracker.End(nil)
}
