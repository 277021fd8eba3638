package invoicing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/platform/db"
)

// PGStore persists invoices in the invoices table.
type PGStore struct {
	db db.DBTX
}

// NewPGStore builds a PGStore over a pool or transaction.
func NewPGStore(dbtx db.DBTX) *PGStore {
	return &PGStore{db: dbtx}
}

// Create inserts the invoice row. The unique (series, number) index rejects
// duplicate emissions.
func (s *PGStore) Create(ctx context.Context, inv *Invoice) error {
	const query = `
		INSERT INTO invoices (series, number, doc_type, ref_kind, ref_id, ref_code,
		                      customer_doc, customer_name, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return s.db.QueryRow(ctx, query,
		inv.Series, inv.Number, inv.DocType, inv.RefKind, inv.RefID, inv.RefCode,
		inv.CustomerDoc, inv.CustomerName, inv.Total.StringFixed(2), inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

// Get reads an invoice by id.
func (s *PGStore) Get(ctx context.Context, id int64) (*Invoice, error) {
	const query = `
		SELECT id, series, number, doc_type, ref_kind, ref_id, ref_code,
		       customer_doc, customer_name, total::text, status,
		       external_id, last_error, attempts, void_reason, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	var (
		inv   Invoice
		total string
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.Series, &inv.Number, &inv.DocType, &inv.RefKind, &inv.RefID, &inv.RefCode,
		&inv.CustomerDoc, &inv.CustomerName, &total, &inv.Status,
		&inv.ExternalID, &inv.LastError, &inv.Attempts, &inv.VoidReason, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	inv.Total, err = parseMoney(total)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkIssued records gateway acceptance.
func (s *PGStore) MarkIssued(ctx context.Context, id int64, externalID string) error {
	const query = `
		UPDATE invoices
		SET status = $2, external_id = $3, last_error = NULL,
		    attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, id, StatusIssued, externalID)
}

// MarkError records a failed submission attempt.
func (s *PGStore) MarkError(ctx context.Context, id int64, message string) error {
	const query = `
		UPDATE invoices
		SET status = $2, last_error = $3, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, id, StatusError, message)
}

// MarkVoided applies the local void.
func (s *PGStore) MarkVoided(ctx context.Context, id int64, reason string) error {
	const query = `
		UPDATE invoices
		SET status = $2, void_reason = $3, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, id, StatusVoided, reason)
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
