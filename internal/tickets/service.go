package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/checkout"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/lifecycle"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

// seller is the slice of the checkout coordinator a sale needs.
type seller interface {
	Sell(ctx context.Context, in checkout.SaleInput, insert checkout.InsertFunc) (*checkout.Result, error)
}

// Service sells tickets.
type Service struct {
	repo          Repository
	sell          seller
	audit         *shared.AuditLogger
	logger        *slog.Logger
	invoiceSeries string
}

// NewService builds a Service. invoiceSeries is the boleta series ticket
// invoices are minted under.
func NewService(repo Repository, sell seller, audit *shared.AuditLogger, logger *slog.Logger, invoiceSeries string) *Service {
	return &Service{repo: repo, sell: sell, audit: audit, logger: logger, invoiceSeries: invoiceSeries}
}

// SellInput carries the facts of a ticket sale. CustomerDoc identifies the
// loyalty account holder; empty means an instant walk-in sale.
type SellInput struct {
	OriginLocationID      int64
	DestinationLocationID int64
	DepartureAt           time.Time
	Seat                  string
	PassengerDoc          string
	PassengerName         string
	CustomerDoc           string
	CustomerName          string
	OriginalPrice         decimal.Decimal
	PointsRequested       int64
	OverridePrice         *decimal.Decimal
}

// SaleResult is the committed sale plus its invoice outcome.
type SaleResult struct {
	Ticket         *Ticket            `json:"ticket"`
	Invoice        *invoicing.Invoice `json:"invoice,omitempty"`
	InvoiceWarning string             `json:"invoice_warning,omitempty"`
}

// Sell runs an identified-customer sale: points may be redeemed and the
// customer's account earns on the charged amount.
func (s *Service) Sell(ctx context.Context, actor shared.Actor, in SellInput) (*SaleResult, error) {
	if strings.TrimSpace(in.CustomerDoc) == "" {
		return nil, fmt.Errorf("%w: identified sale requires a customer document", shared.ErrValidation)
	}
	return s.run(ctx, actor, in)
}

// SellInstant runs a walk-in sale: no customer identity, no loyalty
// account created or touched.
func (s *Service) SellInstant(ctx context.Context, actor shared.Actor, in SellInput) (*SaleResult, error) {
	in.CustomerDoc = ""
	in.CustomerName = ""
	in.PointsRequested = 0
	return s.run(ctx, actor, in)
}

func (s *Service) run(ctx context.Context, actor shared.Actor, in SellInput) (*SaleResult, error) {
	if in.OriginLocationID == in.DestinationLocationID {
		return nil, fmt.Errorf("%w: origin and destination must differ", shared.ErrValidation)
	}

	var tk *Ticket
	res, err := s.sell.Sell(ctx, checkout.SaleInput{
		Domain:          sequence.DomainTickets,
		Day:             time.Now(),
		CustomerDoc:     in.CustomerDoc,
		CustomerName:    in.CustomerName,
		OriginalPrice:   in.OriginalPrice,
		PointsRequested: in.PointsRequested,
		OverridePrice:   in.OverridePrice,
		InvoiceSeries:   s.invoiceSeries,
		InvoiceDocType:  invoicing.DocTypeBoleta,
		RefKind:         "ticket",
		Actor:           actor,
	}, func(ctx context.Context, st checkout.Stores, code string, q loyalty.Quote) (int64, error) {
		tk = &Ticket{
			Code:                  code,
			OriginLocationID:      in.OriginLocationID,
			DestinationLocationID: in.DestinationLocationID,
			DepartureAt:           in.DepartureAt,
			Seat:                  in.Seat,
			PassengerDoc:          in.PassengerDoc,
			PassengerName:         in.PassengerName,
			CustomerDoc:           in.CustomerDoc,
			CustomerName:          in.CustomerName,
			OriginalPrice:         q.OriginalPrice,
			Discount:              q.Discount,
			FinalPrice:            q.FinalPrice,
			PointsEarned:          q.PointsEarned,
			PointsRedeemed:        q.PointsRedeemed,
			Status:                StatusSold,
		}
		if err := insertTicket(ctx, st.DB, tk); err != nil {
			return 0, err
		}
		_, err := lifecycle.Insert(ctx, st.DB, lifecycle.Event{
			DocKind:      lifecycle.KindTicket,
			DocID:        tk.ID,
			TargetStatus: StatusSold,
			ActorUserID:  actor.UserID,
			LocationID:   actor.LocationID,
		})
		return tk.ID, err
	})
	if err != nil {
		return nil, err
	}

	return &SaleResult{
		Ticket:         tk,
		Invoice:        res.Invoice,
		InvoiceWarning: res.InvoiceWarning,
	}, nil
}

// Get reads a ticket with its event trail.
func (s *Service) Get(ctx context.Context, id int64) (*Ticket, []lifecycle.Event, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode reads a ticket by printed code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Ticket, []lifecycle.Event, error) {
	return s.repo.GetByCode(ctx, code)
}
