package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxSubmitAttempts bounds background retries per invoice.
const maxSubmitAttempts = 5

// Enqueuer schedules a background retry for a failed submission.
type Enqueuer interface {
	EnqueueInvoiceRetry(ctx context.Context, invoiceID int64) error
}

// Service submits invoices to the gateway and records outcomes. All calls
// happen outside sale transactions.
type Service struct {
	store   Store
	gateway Gateway
	enqueue Enqueuer
	logger  *slog.Logger
}

// NewService builds a Service. enqueue may be nil (no background retries).
func NewService(store Store, gateway Gateway, enqueue Enqueuer, logger *slog.Logger) *Service {
	return &Service{store: store, gateway: gateway, enqueue: enqueue, logger: logger}
}

// Submit makes exactly one submission attempt for a committed invoice.
// Failure marks the record ERROR, schedules a background retry, and
// returns a caller-facing warning; the sale itself is never rolled back.
func (s *Service) Submit(ctx context.Context, inv *Invoice) (*Invoice, string) {
	rcpt, err := s.gateway.Submit(ctx, GatewayDocument{
		Series:       inv.Series,
		Number:       inv.Number,
		DocType:      inv.DocType,
		CustomerDoc:  inv.CustomerDoc,
		CustomerName: inv.CustomerName,
		Total:        inv.Total,
		IssuedAt:     time.Now(),
	})
	if err != nil {
		s.logger.Warn("invoice submission failed",
			slog.String("code", inv.Code()), slog.Any("error", err))
		if markErr := s.store.MarkError(ctx, inv.ID, err.Error()); markErr != nil {
			s.logger.Error("mark invoice error", slog.Int64("id", inv.ID), slog.Any("error", markErr))
		}
		if s.enqueue != nil {
			if qErr := s.enqueue.EnqueueInvoiceRetry(ctx, inv.ID); qErr != nil {
				s.logger.Warn("enqueue invoice retry", slog.Int64("id", inv.ID), slog.Any("error", qErr))
			}
		}
		inv.Status = StatusError
		msg := err.Error()
		inv.LastError = &msg
		return inv, "invoice submission failed; the sale is committed and the invoice will be retried"
	}

	if err := s.store.MarkIssued(ctx, inv.ID, rcpt.ExternalID); err != nil {
		s.logger.Error("mark invoice issued", slog.Int64("id", inv.ID), slog.Any("error", err))
	}
	inv.Status = StatusIssued
	inv.ExternalID = &rcpt.ExternalID
	return inv, ""
}

// Retry re-submits an ERROR invoice from the background worker. Attempts
// are bounded; exhausted invoices stay in ERROR for operator review.
func (s *Service) Retry(ctx context.Context, invoiceID int64) error {
	inv, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}
	if inv.Status != StatusError {
		return nil
	}
	if inv.Attempts >= maxSubmitAttempts {
		s.logger.Warn("invoice retry attempts exhausted",
			slog.String("code", inv.Code()), slog.Int("attempts", inv.Attempts))
		return nil
	}

	rcpt, err := s.gateway.Submit(ctx, GatewayDocument{
		Series:       inv.Series,
		Number:       inv.Number,
		DocType:      inv.DocType,
		CustomerDoc:  inv.CustomerDoc,
		CustomerName: inv.CustomerName,
		Total:        inv.Total,
		IssuedAt:     time.Now(),
	})
	if err != nil {
		if markErr := s.store.MarkError(ctx, inv.ID, err.Error()); markErr != nil {
			s.logger.Error("mark invoice error", slog.Int64("id", inv.ID), slog.Any("error", markErr))
		}
		return fmt.Errorf("resubmit %s: %w", inv.Code(), err)
	}
	return s.store.MarkIssued(ctx, inv.ID, rcpt.ExternalID)
}

// Void applies the local void and then best-effort notifies the gateway.
// A gateway failure leaves the local cancellation in place.
func (s *Service) Void(ctx context.Context, invoiceID int64, reason string) (*Invoice, string, error) {
	inv, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv.Status == StatusVoided {
		return nil, "", ErrAlreadyVoided
	}

	if err := s.store.MarkVoided(ctx, invoiceID, reason); err != nil {
		return nil, "", fmt.Errorf("void invoice %d: %w", invoiceID, err)
	}
	inv.Status = StatusVoided
	inv.VoidReason = &reason

	warning := ""
	if inv.ExternalID != nil {
		if err := s.gateway.Void(ctx, *inv.ExternalID, reason); err != nil {
			s.logger.Warn("gateway void failed",
				slog.String("code", inv.Code()), slog.Any("error", err))
			warning = "local void applied; the gateway rejected or missed the annulment"
		}
	}
	return inv, warning, nil
}

// Get reads an invoice record.
func (s *Service) Get(ctx context.Context, invoiceID int64) (*Invoice, error) {
	return s.store.Get(ctx, invoiceID)
}
