package shipments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/andino-transportes/andino/internal/checkout"
	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/lifecycle"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/sequence"
	"github.com/andino-transportes/andino/internal/shared"
)

// fakeRepo holds a single shipment and emulates transactional rollback by
// restoring a snapshot when the callback fails. getBarrier, when set, parks
// readers until every expected request has observed the same status.
type fakeRepo struct {
	mu         sync.Mutex
	sh         *Shipment
	events     []lifecycle.Event
	getBarrier *sync.WaitGroup
}

func (f *fakeRepo) Get(context.Context, int64) (*Shipment, []lifecycle.Event, error) {
	f.mu.Lock()
	if f.sh == nil {
		f.mu.Unlock()
		return nil, nil, ErrShipmentNotFound
	}
	cp := *f.sh
	events := append([]lifecycle.Event(nil), f.events...)
	f.mu.Unlock()

	if f.getBarrier != nil {
		f.getBarrier.Done()
		f.getBarrier.Wait()
	}
	return &cp, events, nil
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (*Shipment, []lifecycle.Event, error) {
	if f.sh == nil || f.sh.Code != code {
		return nil, nil, ErrShipmentNotFound
	}
	return f.Get(ctx, f.sh.ID)
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := *f.sh
	snapEvents := append([]lifecycle.Event(nil), f.events...)
	if err := fn(ctx, &fakeTx{repo: f}); err != nil {
		*f.sh = snapshot
		f.events = snapEvents
		return err
	}
	return nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) LockStatus(context.Context, int64) (Status, error) {
	return t.repo.sh.Status, nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, _ int64, status Status) error {
	t.repo.sh.Status = status
	return nil
}

func (t *fakeTx) SetCollected(_ context.Context, _ int64, collectorDoc string) error {
	t.repo.sh.Status = StatusCollected
	t.repo.sh.CollectedByDoc = &collectorDoc
	now := time.Now()
	t.repo.sh.CollectedAt = &now
	return nil
}

func (t *fakeTx) AppendEvent(_ context.Context, e lifecycle.Event) error {
	e.ID = int64(len(t.repo.events) + 1)
	e.CreatedAt = time.Now()
	t.repo.events = append(t.repo.events, e)
	return nil
}

type memProofStore struct {
	saved int
}

func (s *memProofStore) Save(context.Context, []byte) (string, error) {
	s.saved++
	return fmt.Sprintf("proof-%d.jpg", s.saved), nil
}

type stubSeller struct {
	db        fakeSaleDB
	lastInput checkout.SaleInput
	err       error
}

func (s *stubSeller) Sell(ctx context.Context, in checkout.SaleInput, insert checkout.InsertFunc) (*checkout.Result, error) {
	s.lastInput = in
	if s.err != nil {
		return nil, s.err
	}
	q := loyalty.Quote{
		OriginalPrice:  in.OriginalPrice,
		Discount:       decimal.RequireFromString("5.00"),
		FinalPrice:     in.OriginalPrice.Sub(decimal.RequireFromString("5.00")),
		PointsEarned:   9,
		PointsRedeemed: 50,
	}
	refID, err := insert(ctx, checkout.Stores{DB: &s.db}, "ENC-20260115-00001", q)
	if err != nil {
		return nil, err
	}
	return &checkout.Result{
		Code:  "ENC-20260115-00001",
		RefID: refID,
		Quote: q,
		Invoice: &invoicing.Invoice{
			ID: 1, Series: "F001", Number: 1, DocType: invoicing.DocTypeGuia,
			Status: invoicing.StatusIssued,
		},
	}, nil
}

// fakeSaleDB satisfies the insert callback's two row scans: the shipment
// INSERT (id, created_at, updated_at) and the lifecycle event INSERT (id).
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
	if strings.Contains(sql, "INSERT INTO shipments") {
		return fakeRow{vals: []any{int64(7), time.Now(), time.Now()}}
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

func newTestService(repo *fakeRepo, sell seller, proofs ProofStore) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(repo, sell, proofs, nil, logger, "F001")
}

func arrivedShipment(securityCode *string) *Shipment {
	return &Shipment{
		ID:                    7,
		Code:                  "ENC-20260115-00003",
		OriginLocationID:      10,
		DestinationLocationID: 20,
		Status:                StatusArrived,
		SecurityCode:          securityCode,
	}
}

func TestTransitionHappyPath(t *testing.T) {
	repo := &fakeRepo{sh: &Shipment{ID: 7, OriginLocationID: 10, DestinationLocationID: 20, Status: StatusRegistered}}
	svc := newTestService(repo, nil, nil)

	note := "loaded at origin warehouse"
	sh, err := svc.Transition(context.Background(), boundActor(10), 7, StatusInWarehouse, &note)
	require.NoError(t, err)
	require.Equal(t, StatusInWarehouse, sh.Status)
	require.Len(t, repo.events, 1)
	require.Equal(t, string(StatusInWarehouse), repo.events[0].TargetStatus)
	require.Equal(t, &note, repo.events[0].Note)
}

func TestTransitionRejectsSkips(t *testing.T) {
	repo := &fakeRepo{sh: &Shipment{ID: 7, OriginLocationID: 10, DestinationLocationID: 20, Status: StatusRegistered}}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Transition(context.Background(), boundActor(10), 7, StatusArrived, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, StatusRegistered, repo.sh.Status)
	require.Empty(t, repo.events)
}

func TestTransitionRejectsCollectShortcut(t *testing.T) {
	repo := &fakeRepo{sh: arrivedShipment(nil)}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Transition(context.Background(), boundActor(20), 7, StatusCollected, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionAuthorization(t *testing.T) {
	repo := &fakeRepo{sh: &Shipment{ID: 7, OriginLocationID: 10, DestinationLocationID: 20, Status: StatusRegistered}}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Transition(context.Background(), boundActor(30), 7, StatusInWarehouse, nil)
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestConcurrentTransitionsOneWins(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	repo := &fakeRepo{
		sh:         &Shipment{ID: 7, OriginLocationID: 10, DestinationLocationID: 20, Status: StatusInTransit},
		getBarrier: &barrier,
	}
	svc := newTestService(repo, nil, nil)

	results := make([]error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Transition(context.Background(), boundActor(20), 7, StatusArrived, nil)
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrConcurrentModification)
			require.ErrorIs(t, err, shared.ErrConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)
	require.Equal(t, StatusArrived, repo.sh.Status)
	require.Len(t, repo.events, 1)
}

func TestCollectSecurityCodeScenarios(t *testing.T) {
	code := "4821"
	repo := &fakeRepo{sh: arrivedShipment(&code)}
	proofs := &memProofStore{}
	svc := newTestService(repo, nil, proofs)
	actor := boundActor(20)

	// No code submitted when one is required.
	_, err := svc.Collect(context.Background(), actor, 7, CollectInput{
		CollectorDoc: "44556677", ProofPhoto: []byte("jpeg"),
	})
	require.ErrorIs(t, err, ErrSecurityCodeRequired)
	require.Equal(t, StatusArrived, repo.sh.Status)

	// Wrong code leaves the shipment at ARRIVED.
	wrong := "0000"
	_, err = svc.Collect(context.Background(), actor, 7, CollectInput{
		CollectorDoc: "44556677", ProofPhoto: []byte("jpeg"), SecurityCode: &wrong,
	})
	require.ErrorIs(t, err, ErrInvalidSecurityCode)
	require.Equal(t, StatusArrived, repo.sh.Status)
	require.Zero(t, proofs.saved)

	// Matching code plus proof collects.
	sh, err := svc.Collect(context.Background(), actor, 7, CollectInput{
		CollectorDoc: "44556677", ProofPhoto: []byte("jpeg"), SecurityCode: &code,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCollected, sh.Status)
	require.Equal(t, "44556677", *sh.CollectedByDoc)
	require.Len(t, repo.events, 1)
	require.NotNil(t, repo.events[0].ProofPath)
}

func TestCollectRequiresProof(t *testing.T) {
	repo := &fakeRepo{sh: arrivedShipment(nil)}
	svc := newTestService(repo, nil, &memProofStore{})

	_, err := svc.Collect(context.Background(), boundActor(20), 7, CollectInput{CollectorDoc: "44556677"})
	require.ErrorIs(t, err, ErrProofRequired)
}

func TestCollectOnlyDestination(t *testing.T) {
	repo := &fakeRepo{sh: arrivedShipment(nil)}
	svc := newTestService(repo, nil, &memProofStore{})

	_, err := svc.Collect(context.Background(), boundActor(10), 7, CollectInput{
		CollectorDoc: "44556677", ProofPhoto: []byte("jpeg"),
	})
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestCollectRequiresArrived(t *testing.T) {
	repo := &fakeRepo{sh: &Shipment{ID: 7, OriginLocationID: 10, DestinationLocationID: 20, Status: StatusInTransit}}
	svc := newTestService(repo, nil, &memProofStore{})

	_, err := svc.Collect(context.Background(), boundActor(20), 7, CollectInput{
		CollectorDoc: "44556677", ProofPhoto: []byte("jpeg"),
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRegisterHappyPath(t *testing.T) {
	sell := &stubSeller{}
	svc := newTestService(&fakeRepo{}, sell, nil)
	actor := shared.Actor{UserID: 3, Admin: true}

	code := "4821"
	res, err := svc.Register(context.Background(), actor, RegisterInput{
		OriginLocationID:      10,
		DestinationLocationID: 20,
		SenderDoc:             "44556677",
		SenderName:            "Rosa Quispe",
		ReceiverDoc:           "88776655",
		ReceiverName:          "Juan Mamani",
		Description:           "box of textiles",
		WeightKg:              decimal.RequireFromString("12.5"),
		DeclaredValue:         decimal.RequireFromString("200.00"),
		OriginalPrice:         decimal.RequireFromString("100.00"),
		PointsRequested:       50,
		SecurityCode:          &code,
	})
	require.NoError(t, err)

	require.Equal(t, "ENC-20260115-00001", res.Shipment.Code)
	require.Equal(t, int64(7), res.Shipment.ID)
	require.Equal(t, StatusRegistered, res.Shipment.Status)
	require.Equal(t, "95.00", res.Shipment.FinalPrice.StringFixed(2))
	require.Equal(t, int64(9), res.Shipment.PointsEarned)
	require.Equal(t, "andino://shipments/ENC-20260115-00001", res.QRPayload)
	require.NotNil(t, res.Invoice)

	require.Equal(t, sequence.DomainShipments, sell.lastInput.Domain)
	require.Equal(t, invoicing.DocTypeGuia, sell.lastInput.InvoiceDocType)
	require.Equal(t, "F001", sell.lastInput.InvoiceSeries)
	require.Equal(t, "44556677", sell.lastInput.CustomerDoc)

	// The shipment row and its REGISTERED event go in together.
	require.Len(t, sell.db.queries, 2)
	require.Contains(t, sell.db.queries[0], "INSERT INTO shipments")
	require.Contains(t, sell.db.queries[1], "INSERT INTO lifecycle_events")
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &stubSeller{}, nil)
	actor := shared.Actor{UserID: 1, Admin: true}

	_, err := svc.Register(context.Background(), actor, RegisterInput{
		OriginLocationID: 10, DestinationLocationID: 10,
		OriginalPrice: decimal.RequireFromString("30.00"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	bad := "12a4"
	_, err = svc.Register(context.Background(), actor, RegisterInput{
		OriginLocationID: 10, DestinationLocationID: 20,
		OriginalPrice: decimal.RequireFromString("30.00"),
		SecurityCode:  &bad,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
