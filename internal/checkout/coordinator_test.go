package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

// fakeState is the whole in-memory dataset. A unit of work snapshots it
// before running and restores the snapshot when the callback fails, so the
// fakes behave like a rolled-back transaction.
type fakeState struct {
	counters map[string]int64
	accounts map[string]*loyalty.Account
	invoices map[int64]*invoicing.Invoice
	nextInv  int64
}

func newFakeState() *fakeState {
	return &fakeState{
		counters: make(map[string]int64),
		accounts: make(map[string]*loyalty.Account),
		invoices: make(map[int64]*invoicing.Invoice),
		nextInv:  1,
	}
}

func (s *fakeState) clone() *fakeState {
	cp := newFakeState()
	cp.nextInv = s.nextInv
	for k, v := range s.counters {
		cp.counters[k] = v
	}
	for k, v := range s.accounts {
		acct := *v
		cp.accounts[k] = &acct
	}
	for k, v := range s.invoices {
		inv := *v
		cp.invoices[k] = &inv
	}
	return cp
}

type fakeSequences struct{ st *fakeState }

func (f *fakeSequences) Next(_ context.Context, domain, scope string) (int64, error) {
	key := domain + "|" + scope
	if _, ok := f.st.counters[key]; !ok {
		return 0, sequence.ErrCounterNotConfigured
	}
	f.st.counters[key]++
	return f.st.counters[key], nil
}

type fakeAccounts struct{ st *fakeState }

func (f *fakeAccounts) Get(_ context.Context, doc string) (*loyalty.Account, error) {
	acct, ok := f.st.accounts[doc]
	if !ok {
		return nil, loyalty.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (f *fakeAccounts) GetForUpdate(ctx context.Context, doc string) (*loyalty.Account, error) {
	return f.Get(ctx, doc)
}

func (f *fakeAccounts) Create(_ context.Context, acct loyalty.Account) error {
	f.st.accounts[acct.CustomerDoc] = &acct
	return nil
}

func (f *fakeAccounts) UpdateBalances(_ context.Context, doc string, available, historic int64) error {
	acct, ok := f.st.accounts[doc]
	if !ok {
		return loyalty.ErrAccountNotFound
	}
	acct.PointsAvailable = available
	acct.PointsHistoric = historic
	return nil
}

type fakeInvoices struct{ st *fakeState }

func (f *fakeInvoices) Create(_ context.Context, inv *invoicing.Invoice) error {
	inv.ID = f.st.nextInv
	f.st.nextInv++
	cp := *inv
	f.st.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoices) Get(_ context.Context, id int64) (*invoicing.Invoice, error) {
	inv, ok := f.st.invoices[id]
	if !ok {
		return nil, invoicing.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoices) MarkIssued(_ context.Context, id int64, externalID string) error {
	inv, ok := f.st.invoices[id]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	inv.Status = invoicing.StatusIssued
	inv.ExternalID = &externalID
	inv.Attempts++
	return nil
}

func (f *fakeInvoices) MarkError(_ context.Context, id int64, message string) error {
	inv, ok := f.st.invoices[id]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	inv.Status = invoicing.StatusError
	inv.LastError = &message
	inv.Attempts++
	return nil
}

func (f *fakeInvoices) MarkVoided(_ context.Context, id int64, reason string) error {
	inv, ok := f.st.invoices[id]
	if !ok {
		return invoicing.ErrInvoiceNotFound
	}
	inv.Status = invoicing.StatusVoided
	inv.VoidReason = &reason
	return nil
}

// fakeUOW serializes callbacks with a mutex and rolls the state back to a
// snapshot when the callback errors.
type fakeUOW struct {
	mu sync.Mutex
	st *fakeState
}

func (u *fakeUOW) Run(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snapshot := u.st.clone()
	err := fn(ctx, Stores{
		Sequences: &fakeSequences{st: u.st},
		Accounts:  &fakeAccounts{st: u.st},
		Invoices:  &fakeInvoices{st: u.st},
	})
	if err != nil {
		*u.st = *snapshot
	}
	return err
}

type stubGateway struct {
	err     error
	submits int
}

func (g *stubGateway) Submit(context.Context, invoicing.GatewayDocument) (invoicing.GatewayReceipt, error) {
	g.submits++
	if g.err != nil {
		return invoicing.GatewayReceipt{}, g.err
	}
	return invoicing.GatewayReceipt{ExternalID: fmt.Sprintf("ext-%d", g.submits), Status: "ACCEPTED"}, nil
}

func (g *stubGateway) Void(context.Context, string, string) error { return nil }

type fixture struct {
	st    *fakeState
	uow   *fakeUOW
	gw    *stubGateway
	coord *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newFakeState()
	uow := &fakeUOW{st: st}
	gw := &stubGateway{}

	ec, err := loyalty.NewEconomics(10.0, 10.0)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	invSvc := invoicing.NewService(&fakeInvoices{st: st}, gw, nil, logger)
	coord := NewCoordinator(uow, loyalty.NewLedger(ec), invSvc, nil, logger)

	return &fixture{st: st, uow: uow, gw: gw, coord: coord}
}

func (f *fixture) seedCounters(day time.Time) {
	f.st.counters[sequence.DomainTickets+"|"+sequence.DayScope(day)] = 0
	f.st.counters[invoicing.DocTypeBoleta+"|B001"] = 0
}

func saleInput(day time.Time) SaleInput {
	return SaleInput{
		Domain:         sequence.DomainTickets,
		Day:            day,
		CustomerDoc:    "44556677",
		CustomerName:   "Rosa Quispe",
		OriginalPrice:  decimal.RequireFromString("100.00"),
		InvoiceSeries:  "B001",
		InvoiceDocType: invoicing.DocTypeBoleta,
		RefKind:        "ticket",
		Actor:          shared.Actor{UserID: 1, Name: "clerk"},
	}
}

func insertOK(context.Context, Stores, string, loyalty.Quote) (int64, error) {
	return 101, nil
}

func TestSellFullSuccess(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)
	f.st.accounts["44556677"] = &loyalty.Account{
		CustomerDoc: "44556677", CustomerName: "Rosa Quispe",
		PointsAvailable: 50, PointsHistoric: 120,
	}

	in := saleInput(day)
	in.PointsRequested = 50

	res, err := f.coord.Sell(context.Background(), in, insertOK)
	require.NoError(t, err)
	require.Equal(t, "TKT-20260115-00001", res.Code)
	require.Equal(t, int64(101), res.RefID)
	require.Equal(t, "95.00", res.Quote.FinalPrice.StringFixed(2))
	require.Equal(t, int64(50), res.Quote.PointsRedeemed)
	require.Equal(t, int64(9), res.Quote.PointsEarned)

	require.Equal(t, invoicing.StatusIssued, res.Invoice.Status)
	require.Equal(t, "B001-00000001", res.Invoice.Code())
	require.Empty(t, res.InvoiceWarning)

	acct := f.st.accounts["44556677"]
	require.Equal(t, int64(9), acct.PointsAvailable)
	require.Equal(t, int64(129), acct.PointsHistoric)
}

func TestSellInsertFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)
	f.st.accounts["44556677"] = &loyalty.Account{
		CustomerDoc: "44556677", PointsAvailable: 50, PointsHistoric: 120,
	}

	in := saleInput(day)
	in.PointsRequested = 50

	boom := errors.New("ticket row rejected")
	_, err := f.coord.Sell(context.Background(), in,
		func(context.Context, Stores, string, loyalty.Quote) (int64, error) {
			return 0, boom
		})
	require.ErrorIs(t, err, boom)

	// Counter, balances, and invoices are back to their pre-sale state.
	require.Zero(t, f.st.counters[sequence.DomainTickets+"|"+sequence.DayScope(day)])
	require.Equal(t, int64(50), f.st.accounts["44556677"].PointsAvailable)
	require.Empty(t, f.st.invoices)
	require.Zero(t, f.gw.submits)
}

func TestSellGatewayDownKeepsSale(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)
	f.gw.err = fmt.Errorf("%w: connection refused", shared.ErrUpstreamGateway)

	res, err := f.coord.Sell(context.Background(), saleInput(day), insertOK)
	require.NoError(t, err)
	require.NotEmpty(t, res.InvoiceWarning)
	require.Equal(t, invoicing.StatusError, res.Invoice.Status)
	require.Equal(t, "TKT-20260115-00001", res.Code)

	stored := f.st.invoices[res.Invoice.ID]
	require.Equal(t, invoicing.StatusError, stored.Status)
	require.NotNil(t, stored.LastError)
}

func TestSellOverrideRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)

	override := decimal.RequireFromString("80.00")
	in := saleInput(day)
	in.OverridePrice = &override

	_, err := f.coord.Sell(context.Background(), in, insertOK)
	require.ErrorIs(t, err, shared.ErrAuthorization)

	in.Actor.Admin = true
	res, err := f.coord.Sell(context.Background(), in, insertOK)
	require.NoError(t, err)
	require.True(t, res.Quote.Overridden)
	require.Equal(t, "80.00", res.Quote.FinalPrice.StringFixed(2))
	require.Equal(t, "80.00", res.Invoice.Total.StringFixed(2))
}

func TestSellRedemptionRequiresCustomerDoc(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)

	in := saleInput(day)
	in.CustomerDoc = ""
	in.PointsRequested = 10

	_, err := f.coord.Sell(context.Background(), in, insertOK)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSellInstantSaleTouchesNoAccount(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	f.seedCounters(day)

	in := saleInput(day)
	in.CustomerDoc = ""
	in.CustomerName = ""

	res, err := f.coord.Sell(context.Background(), in, insertOK)
	require.NoError(t, err)
	require.Zero(t, res.Quote.PointsEarned)
	require.Zero(t, res.Quote.PointsRedeemed)
	require.Equal(t, "100.00", res.Quote.FinalPrice.StringFixed(2))
	require.Empty(t, f.st.accounts)
}

func TestSellCounterNotConfigured(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	// No counters seeded for this day.

	_, err := f.coord.Sell(context.Background(), saleInput(day), insertOK)
	require.ErrorIs(t, err, shared.ErrConfiguration)
	require.Empty(t, f.st.invoices)
}
