package tickets

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

// Repository reads sold tickets.
type Repository interface {
	Get(ctx context.Context, id int64) (*Ticket, []lifecycle.Event, error)
	GetByCode(ctx context.Context, code string) (*Ticket, []lifecycle.Event, error)
}

// PGRepository implements Repository on Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository builds a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const ticketColumns = `
	id, code, origin_location_id, destination_location_id, departure_at, seat,
	passenger_doc, passenger_name, customer_doc, customer_name,
	original_price::text, discount::text, final_price::text,
	points_earned, points_redeemed, status, created_at, updated_at`

// Get reads a ticket and its event trail.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Ticket, []lifecycle.Event, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByCode reads a ticket by printed code.
func (r *PGRepository) GetByCode(ctx context.Context, code string) (*Ticket, []lifecycle.Event, error) {
	return r.get(ctx, `WHERE code = $1`, code)
}

func (r *PGRepository) get(ctx context.Context, where string, arg any) (*Ticket, []lifecycle.Event, error) {
	tk, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrTicketNotFound
		}
		return nil, nil, err
	}
	events, err := lifecycle.ListByDoc(ctx, r.pool, lifecycle.KindTicket, tk.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	return tk, events, nil
}

// insertTicket persists a new ticket inside the sale transaction.
func insertTicket(ctx context.Context, dbtx db.DBTX, tk *Ticket) error {
	const query = `
		INSERT INTO tickets (code, origin_location_id, destination_location_id, departure_at, seat,
		                     passenger_doc, passenger_name, customer_doc, customer_name,
		                     original_price, discount, final_price,
		                     points_earned, points_redeemed, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	return dbtx.QueryRow(ctx, query,
		tk.Code, tk.OriginLocationID, tk.DestinationLocationID, tk.DepartureAt, tk.Seat,
		tk.PassengerDoc, tk.PassengerName, tk.CustomerDoc, tk.CustomerName,
		tk.OriginalPrice.StringFixed(2), tk.Discount.StringFixed(2), tk.FinalPrice.StringFixed(2),
		tk.PointsEarned, tk.PointsRedeemed, tk.Status,
	).Scan(&tk.ID, &tk.CreatedAt, &tk.UpdatedAt)
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var (
		tk                            Ticket
		original, discount, finalText string
	)
	err := row.Scan(
		&tk.ID, &tk.Code, &tk.OriginLocationID, &tk.DestinationLocationID, &tk.DepartureAt, &tk.Seat,
		&tk.PassengerDoc, &tk.PassengerName, &tk.CustomerDoc, &tk.CustomerName,
		&original, &discount, &finalText,
		&tk.PointsEarned, &tk.PointsRedeemed, &tk.Status, &tk.CreatedAt, &tk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tk.OriginalPrice, err = decimal.NewFromString(original); err != nil {
		return nil, fmt.Errorf("scan ticket decimal: %w", err)
	}
	if tk.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("scan ticket decimal: %w", err)
	}
	if tk.FinalPrice, err = decimal.NewFromString(finalText); err != nil {
		return nil, fmt.Errorf("scan ticket decimal: %w", err)
	}
	return &tk, nil
}
