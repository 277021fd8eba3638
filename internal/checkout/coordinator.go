package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

// SaleInput describes one sale to coordinate. CustomerDoc may be empty for
// instant walk-in sales, which touch no loyalty account.
type SaleInput struct {
	Domain          string
	Day             time.Time
	CustomerDoc     string
	CustomerName    string
	OriginalPrice   decimal.Decimal
	PointsRequested int64
	OverridePrice   *decimal.Decimal
	InvoiceSeries   string
	InvoiceDocType  string
	RefKind         string
	Actor           shared.Actor
}

// InsertFunc persists the domain document (ticket or shipment) inside the
// sale transaction. It receives the allocated code and the priced quote and
// returns the new row's id.
type InsertFunc func(ctx context.Context, st Stores, code string, q loyalty.Quote) (int64, error)

// Result is the committed outcome of a sale.
type Result struct {
	Code           string
	RefID          int64
	Quote          loyalty.Quote
	Invoice        *invoicing.Invoice
	InvoiceWarning string
}

// Coordinator runs the sale transaction and the post-commit invoice
// submission.
type Coordinator struct {
	uow      UnitOfWork
	ledger   *loyalty.Ledger
	invoices *invoicing.Service
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(uow UnitOfWork, ledger *loyalty.Ledger, invoices *invoicing.Service, audit *shared.AuditLogger, logger *slog.Logger) *Coordinator {
	return &Coordinator{uow: uow, ledger: ledger, invoices: invoices, audit: audit, logger: logger}
}

// Sell coordinates one sale. Inside a single transaction it allocates the
// daily document code, applies loyalty bookkeeping, runs insert, and mints
// the invoice row in PENDING. After commit it makes exactly one gateway
// submission attempt; a failure there surfaces as a warning, never an error.
func (c *Coordinator) Sell(ctx context.Context, in SaleInput, insert InsertFunc) (*Result, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}

	res := &Result{}
	err := c.uow.Run(ctx, func(ctx context.Context, st Stores) error {
		alloc := sequence.NewAllocator(st.Sequences)

		code, err := alloc.NextDaily(ctx, in.Domain, in.Day)
		if err != nil {
			return err
		}
		res.Code = code

		q, err := c.price(ctx, st, in)
		if err != nil {
			return err
		}
		res.Quote = q

		refID, err := insert(ctx, st, code, q)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		res.RefID = refID

		number, _, err := alloc.NextSeries(ctx, in.InvoiceDocType, in.InvoiceSeries)
		if err != nil {
			return err
		}
		inv := &invoicing.Invoice{
			Series:       in.InvoiceSeries,
			Number:       number,
			DocType:      in.InvoiceDocType,
			RefKind:      in.RefKind,
			RefID:        refID,
			RefCode:      code,
			CustomerDoc:  in.CustomerDoc,
			CustomerName: in.CustomerName,
			Total:        q.FinalPrice,
			Status:       invoicing.StatusPending,
		}
		if err := st.Invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		res.Invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Invoice, res.InvoiceWarning = c.invoices.Submit(ctx, res.Invoice)

	c.audit.Record(ctx, shared.AuditLog{
		ActorID:  in.Actor.UserID,
		Action:   "checkout.sell",
		Entity:   in.RefKind,
		EntityID: strconv.FormatInt(res.RefID, 10),
		Meta: map[string]any{
			"code":            res.Code,
			"invoice":         res.Invoice.Code(),
			"final_price":     res.Quote.FinalPrice.StringFixed(2),
			"points_redeemed": res.Quote.PointsRedeemed,
			"points_earned":   res.Quote.PointsEarned,
			"overridden":      res.Quote.Overridden,
		},
	})
	return res, nil
}

func (c *Coordinator) validate(in SaleInput) error {
	if in.OriginalPrice.IsNegative() {
		return fmt.Errorf("%w: original price cannot be negative", shared.ErrValidation)
	}
	if in.PointsRequested < 0 {
		return fmt.Errorf("%w: requested points cannot be negative", shared.ErrValidation)
	}
	if in.PointsRequested > 0 && strings.TrimSpace(in.CustomerDoc) == "" {
		return fmt.Errorf("%w: point redemption requires a customer document", shared.ErrValidation)
	}
	if in.OverridePrice != nil && !in.Actor.Admin {
		return fmt.Errorf("%w: price override requires an administrator", shared.ErrAuthorization)
	}
	return nil
}

func (c *Coordinator) price(ctx context.Context, st Stores, in SaleInput) (loyalty.Quote, error) {
	if strings.TrimSpace(in.CustomerDoc) == "" {
		return loyalty.NoAccount(in.OriginalPrice, in.OverridePrice)
	}
	return c.ledger.Apply(ctx, st.Accounts, loyalty.ApplyInput{
		CustomerDoc:     in.CustomerDoc,
		CustomerName:    in.CustomerName,
		OriginalPrice:   in.OriginalPrice,
		PointsRequested: in.PointsRequested,
		OverridePrice:   in.OverridePrice,
	})
}
