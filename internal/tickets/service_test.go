package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-transportes/andino/internal/checkout"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

type stubSeller struct {
	db        fakeSaleDB
	lastInput checkout.SaleInput
}

func (s *stubSeller) Sell(ctx context.Context, in checkout.SaleInput, insert checkout.InsertFunc) (*checkout.Result, error) {
	s.lastInput = in
	q := loyalty.Quote{
		OriginalPrice: in.OriginalPrice,
		Discount:      decimal.Zero,
		FinalPrice:    in.OriginalPrice,
	}
	if in.CustomerDoc != "" {
		q.Discount = decimal.RequireFromString("5.00")
		q.FinalPrice = in.OriginalPrice.Sub(q.Discount)
		q.PointsEarned = 9
		q.PointsRedeemed = 50
	}
	refID, err := insert(ctx, checkout.Stores{DB: &s.db}, "TKT-20260115-00001", q)
	if err != nil {
		return nil, err
	}
	return &checkout.Result{
		Code:  "TKT-20260115-00001",
		RefID: refID,
		Quote: q,
		Invoice: &invoicing.Invoice{
			ID: 1, Series: "B001", Number: 1, DocType: invoicing.DocTypeBoleta,
			Status: invoicing.StatusIssued,
		},
	}, nil
}

type fakeSaleDB struct {
	queries []string
}

func (f *fakeSaleDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeSaleDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeSaleDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	if strings.Contains(sql, "INSERT INTO tickets") {
		return fakeRow{vals: []any{int64(5), time.Now(), time.Now()}}
	}
	return fakeRow{vals: []any{int64(1)}}
}

type fakeRow struct {
	vals []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch out := d.(type) {
		case *int64:
			*out = r.vals[i].(int64)
		case *time.Time:
			*out = r.vals[i].(time.Time)
		default:
			return fmt.Errorf("unexpected scan target %T", d)
		}
	}
	return nil
}

func newTestService(sell seller) *Service {
	return NewService(nil, sell, nil, slog.New(slog.DiscardHandler), "B001")
}

func sellInput() SellInput {
	return SellInput{
		OriginLocationID:      10,
		DestinationLocationID: 20,
		DepartureAt:           time.Date(2026, 1, 16, 8, 30, 0, 0, time.UTC),
		Seat:                  "12A",
		PassengerDoc:          "44556677",
		PassengerName:         "Rosa Quispe",
		CustomerDoc:           "44556677",
		CustomerName:          "Rosa Quispe",
		OriginalPrice:         decimal.RequireFromString("100.00"),
		PointsRequested:       50,
	}
}

func TestSellIdentified(t *testing.T) {
	sell := &stubSeller{}
	svc := newTestService(sell)

	res, err := svc.Sell(context.Background(), shared.Actor{UserID: 2}, sellInput())
	require.NoError(t, err)

	require.Equal(t, "TKT-20260115-00001", res.Ticket.Code)
	require.Equal(t, int64(5), res.Ticket.ID)
	require.Equal(t, StatusSold, res.Ticket.Status)
	require.Equal(t, "95.00", res.Ticket.FinalPrice.StringFixed(2))
	require.Equal(t, int64(9), res.Ticket.PointsEarned)
	require.Equal(t, int64(50), res.Ticket.PointsRedeemed)
	require.NotNil(t, res.Invoice)

	require.Equal(t, sequence.DomainTickets, sell.lastInput.Domain)
	require.Equal(t, invoicing.DocTypeBoleta, sell.lastInput.InvoiceDocType)
	require.Equal(t, "B001", sell.lastInput.InvoiceSeries)

	// The ticket row and its SOLD event go in together.
	require.Len(t, sell.db.queries, 2)
	require.Contains(t, sell.db.queries[0], "INSERT INTO tickets")
	require.Contains(t, sell.db.queries[1], "INSERT INTO lifecycle_events")
}

func TestSellRequiresCustomerDoc(t *testing.T) {
	svc := newTestService(&stubSeller{})

	in := sellInput()
	in.CustomerDoc = ""
	_, err := svc.Sell(context.Background(), shared.Actor{UserID: 2}, in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSellRejectsSameOriginDestination(t *testing.T) {
	svc := newTestService(&stubSeller{})

	in := sellInput()
	in.DestinationLocationID = in.OriginLocationID
	_, err := svc.Sell(context.Background(), shared.Actor{UserID: 2}, in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSellInstantStripsCustomerAndPoints(t *testing.T) {
	sell := &stubSeller{}
	svc := newTestService(sell)

	res, err := svc.SellInstant(context.Background(), shared.Actor{UserID: 2}, sellInput())
	require.NoError(t, err)

	require.Empty(t, sell.lastInput.CustomerDoc)
	require.Zero(t, sell.lastInput.PointsRequested)
	require.Empty(t, res.Ticket.CustomerDoc)
	require.Zero(t, res.Ticket.PointsEarned)
	require.Zero(t, res.Ticket.PointsRedeemed)
	require.Equal(t, "100.00", res.Ticket.FinalPrice.StringFixed(2))
}
