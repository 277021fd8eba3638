package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAccountNotFound indicates no loyalty account exists for the customer.
var ErrAccountNotFound = errors.New("loyalty account not found")

// Account is the per-customer point balance, keyed by national ID document.
// Invariant: 0 <= PointsAvailable <= PointsHistoric.
type Account struct {
	CustomerDoc     string    `json:"customer_doc"`
	CustomerName    string    `json:"customer_name"`
	PointsAvailable int64     `json:"points_available"`
	PointsHistoric  int64     `json:"points_historic"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AccountStore reads and writes loyalty accounts. GetForUpdate must take a
// row-level lock for the remainder of the enclosing transaction so two
// concurrent sales by the same customer serialize on the balance.
type AccountStore interface {
	Get(ctx context.Context, customerDoc string) (*Account, error)
	GetForUpdate(ctx context.Context, customerDoc string) (*Account, error)
	Create(ctx context.Context, acct Account) error
	UpdateBalances(ctx context.Context, customerDoc string, available, historic int64) error
}

// Ledger applies sale pricing against a customer's account. Reading the
// balance, deciding the redemption, and writing the updated balance happen
// against the same locked row within the caller's transaction.
type Ledger struct {
	ec Economics
}

// NewLedger builds a Ledger with the given economics.
func NewLedger(ec Economics) *Ledger {
	return &Ledger{ec: ec}
}

// ApplyInput describes one sale's effect on a customer account.
type ApplyInput struct {
	CustomerDoc     string
	CustomerName    string
	OriginalPrice   decimal.Decimal
	PointsRequested int64
	OverridePrice   *decimal.Decimal
}

// Apply prices the sale and updates the account in one step. A first
// purchase creates the account with available = historic = earned.
func (l *Ledger) Apply(ctx context.Context, store AccountStore, in ApplyInput) (Quote, error) {
	acct, err := store.GetForUpdate(ctx, in.CustomerDoc)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return Quote{}, fmt.Errorf("lock account: %w", err)
	}

	var available int64
	if acct != nil {
		available = acct.PointsAvailable
	}

	q, err := Compute(l.ec, in.OriginalPrice, in.PointsRequested, available, in.OverridePrice)
	if err != nil {
		return Quote{}, err
	}

	if acct == nil {
		err = store.Create(ctx, Account{
			CustomerDoc:     in.CustomerDoc,
			CustomerName:    in.CustomerName,
			PointsAvailable: q.PointsEarned,
			PointsHistoric:  q.PointsEarned,
		})
		if err != nil {
			return Quote{}, fmt.Errorf("create account: %w", err)
		}
		return q, nil
	}

	newAvailable := acct.PointsAvailable + q.PointsEarned - q.PointsRedeemed
	newHistoric := acct.PointsHistoric + q.PointsEarned
	if newAvailable < 0 || newAvailable > newHistoric {
		return Quote{}, fmt.Errorf("ledger invariant violated for %s: available=%d historic=%d", in.CustomerDoc, newAvailable, newHistoric)
	}

	if err := store.UpdateBalances(ctx, in.CustomerDoc, newAvailable, newHistoric); err != nil {
		return Quote{}, fmt.Errorf("update balances: %w", err)
	}
	return q, nil
}
