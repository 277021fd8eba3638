package loyalty

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/andino-transportes/andino/internal/platform/db"
)

// PGAccounts stores loyalty accounts in loyalty_accounts.
type PGAccounts struct {
	db db.DBTX
}

// NewPGAccounts builds a PGAccounts over a pool or transaction.
func NewPGAccounts(dbtx db.DBTX) *PGAccounts {
	return &PGAccounts{db: dbtx}
}

const accountColumns = `customer_doc, customer_name, points_available, points_historic, created_at, updated_at`

// Get reads an account without locking.
func (s *PGAccounts) Get(ctx context.Context, customerDoc string) (*Account, error) {
	return s.get(ctx, customerDoc, "")
}

// GetForUpdate reads an account and holds its row lock until the enclosing
// transaction ends.
func (s *PGAccounts) GetForUpdate(ctx context.Context, customerDoc string) (*Account, error) {
	return s.get(ctx, customerDoc, " FOR UPDATE")
}

func (s *PGAccounts) get(ctx context.Context, customerDoc, suffix string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE customer_doc = $1` + suffix
	var acct Account
	err := s.db.QueryRow(ctx, query, customerDoc).Scan(
		&acct.CustomerDoc, &acct.CustomerName,
		&acct.PointsAvailable, &acct.PointsHistoric,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// Create inserts a new account.
func (s *PGAccounts) Create(ctx context.Context, acct Account) error {
	const query = `
		INSERT INTO loyalty_accounts (customer_doc, customer_name, points_available, points_historic)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.Exec(ctx, query, acct.CustomerDoc, acct.CustomerName, acct.PointsAvailable, acct.PointsHistoric)
	return err
}

// UpdateBalances writes new balances for an existing account.
func (s *PGAccounts) UpdateBalances(ctx context.Context, customerDoc string, available, historic int64) error {
	const query = `
		UPDATE loyalty_accounts
		SET points_available = $2, points_historic = $3, updated_at = NOW()
		WHERE customer_doc = $1
	`
	cmdTag, err := s.db.Exec(ctx, query, customerDoc, available, historic)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
