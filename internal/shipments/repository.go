package shipments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/lifecycle"
	"github.com/andino-transportes/andino/internal/platform/db"
)

// Repository reads shipments and runs locked transition transactions.
type Repository interface {
	Get(ctx context.Context, id int64) (*Shipment, []lifecycle.Event, error)
	GetByCode(ctx context.Context, code string) (*Shipment, []lifecycle.Event, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is the transaction-scoped mutation surface. LockStatus takes
// the shipment's row lock for the remainder of the transaction.
type TxRepository interface {
	LockStatus(ctx context.Context, id int64) (Status, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	SetCollected(ctx context.Context, id int64, collectorDoc string) error
	AppendEvent(ctx context.Context, e lifecycle.Event) error
}

// PGRepository implements Repository on Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository builds a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const shipmentColumns = `
	id, code, origin_location_id, destination_location_id,
	sender_doc, sender_name, receiver_doc, receiver_name, description,
	weight_kg::text, declared_value::text,
	original_price::text, discount::text, final_price::text,
	points_earned, points_redeemed, status, security_code,
	collected_by_doc, collected_at, created_at, updated_at`

// Get reads a shipment and its full event history.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Shipment, []lifecycle.Event, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByCode reads a shipment by its printed code.
func (r *PGRepository) GetByCode(ctx context.Context, code string) (*Shipment, []lifecycle.Event, error) {
	return r.get(ctx, `WHERE code = $1`, code)
}

func (r *PGRepository) get(ctx context.Context, where string, arg any) (*Shipment, []lifecycle.Event, error) {
	sh, err := scanShipment(r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrShipmentNotFound
		}
		return nil, nil, err
	}
	events, err := lifecycle.ListByDoc(ctx, r.pool, lifecycle.KindShipment, sh.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	return sh, events, nil
}

// WithTx runs fn inside a transaction with a tx-scoped repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) LockStatus(ctx context.Context, id int64) (Status, error) {
	var status Status
	err := r.tx.QueryRow(ctx, `SELECT status FROM shipments WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrShipmentNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *pgTxRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmdTag, err := r.tx.Exec(ctx, `UPDATE shipments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (r *pgTxRepository) SetCollected(ctx context.Context, id int64, collectorDoc string) error {
	const query = `
		UPDATE shipments
		SET status = $2, collected_by_doc = $3, collected_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	cmdTag, err := r.tx.Exec(ctx, query, id, StatusCollected, collectorDoc)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (r *pgTxRepository) AppendEvent(ctx context.Context, e lifecycle.Event) error {
	_, err := lifecycle.Insert(ctx, r.tx, e)
	return err
}

// insertShipment persists a new shipment inside the sale transaction.
func insertShipment(ctx context.Context, dbtx db.DBTX, sh *Shipment) error {
	const query = `
		INSERT INTO shipments (code, origin_location_id, destination_location_id,
		                       sender_doc, sender_name, receiver_doc, receiver_name, description,
		                       weight_kg, declared_value, original_price, discount, final_price,
		                       points_earned, points_redeemed, status, security_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`
	return dbtx.QueryRow(ctx, query,
		sh.Code, sh.OriginLocationID, sh.DestinationLocationID,
		sh.SenderDoc, sh.SenderName, sh.ReceiverDoc, sh.ReceiverName, sh.Description,
		sh.WeightKg.String(), sh.DeclaredValue.StringFixed(2),
		sh.OriginalPrice.StringFixed(2), sh.Discount.StringFixed(2), sh.FinalPrice.StringFixed(2),
		sh.PointsEarned, sh.PointsRedeemed, sh.Status, sh.SecurityCode,
	).Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt)
}

func scanShipment(row pgx.Row) (*Shipment, error) {
	var (
		sh                                              Shipment
		weight, declared, original, discount, finalText string
	)
	err := row.Scan(
		&sh.ID, &sh.Code, &sh.OriginLocationID, &sh.DestinationLocationID,
		&sh.SenderDoc, &sh.SenderName, &sh.ReceiverDoc, &sh.ReceiverName, &sh.Description,
		&weight, &declared, &original, &discount, &finalText,
		&sh.PointsEarned, &sh.PointsRedeemed, &sh.Status, &sh.SecurityCode,
		&sh.CollectedByDoc, &sh.CollectedAt, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&sh.WeightKg, weight},
		{&sh.DeclaredValue, declared},
		{&sh.OriginalPrice, original},
		{&sh.Discount, discount},
		{&sh.FinalPrice, finalText},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("scan shipment decimal: %w", err)
		}
	}
	return &sh, nil
}
