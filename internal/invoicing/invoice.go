// Package invoicing records emitted fiscal documents and submits them to
// the external e-invoicing provider on a best-effort basis.
package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/sequence"
)

// Status enumerates local invoice states.
type Status string

const (
	// StatusPending: row committed with the sale, not yet submitted.
	StatusPending Status = "PENDING"
	// StatusIssued: accepted by the gateway.
	StatusIssued Status = "ISSUED"
	// StatusError: submission failed; the sale stays valid.
	StatusError Status = "ERROR"
	// StatusVoided: locally voided, regardless of remote outcome.
	StatusVoided Status = "VOIDED"
)

// Document types emitted by the core.
const (
	DocTypeBoleta = "BOLETA"
	DocTypeGuia   = "GUIA"
)

var (
	// ErrInvoiceNotFound indicates the requested invoice was not found.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrAlreadyVoided indicates the invoice is already void.
	ErrAlreadyVoided = errors.New("invoice already voided")
)

// Invoice is the local record of an emitted document. (Series, Number) is
// unique, minted through the sequence allocator inside the sale
// transaction; that uniqueness makes the outbound submission idempotent
// independent of gateway behavior.
type Invoice struct {
	ID           int64           `json:"id"`
	Series       string          `json:"series"`
	Number       int64           `json:"number"`
	DocType      string          `json:"doc_type"`
	RefKind      string          `json:"ref_kind"`
	RefID        int64           `json:"ref_id"`
	RefCode      string          `json:"ref_code"`
	CustomerDoc  string          `json:"customer_doc,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Status       Status          `json:"status"`
	ExternalID   *string         `json:"external_id,omitempty"`
	LastError    *string         `json:"last_error,omitempty"`
	Attempts     int             `json:"attempts"`
	VoidReason   *string         `json:"void_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Code renders the printable document code, e.g. F001-00000042.
func (i *Invoice) Code() string {
	return sequence.FormatSeries(i.Series, i.Number)
}

// Store persists invoice records.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	MarkIssued(ctx context.Context, id int64, externalID string) error
	MarkError(ctx context.Context, id int64, message string) error
	MarkVoided(ctx context.Context, id int64, reason string) error
}
