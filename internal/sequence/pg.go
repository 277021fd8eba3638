package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andino-transportes/andino/internal/platform/db"
)

// PGStore increments counter rows in sequence_counters. It runs against a
// pool or an enclosing transaction; inside a sale transaction the counter
// update participates in the all-or-nothing commit.
type PGStore struct {
	db db.DBTX
}

// NewPGStore builds a PGStore over a pool or transaction.
func NewPGStore(dbtx db.DBTX) *PGStore {
	return &PGStore{db: dbtx}
}

// Next atomically increments the counter row and returns the new value.
// The UPDATE takes a row-level write lock, so concurrent allocations for
// the same scope queue up instead of reading a stale value.
func (s *PGStore) Next(ctx context.Context, domain, scope string) (int64, error) {
	const query = `
		UPDATE sequence_counters
		SET value = value + 1, updated_at = NOW()
		WHERE domain = $1 AND scope = $2
		RETURNING value
	`
	var value int64
	err := s.db.QueryRow(ctx, query, domain, scope).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCounterNotConfigured
		}
		return 0, err
	}
	return value, nil
}

// Provisioner seeds counter rows ahead of time so allocation never has to
// create them mid-transaction.
type Provisioner struct {
	pool *pgxpool.Pool
}

// NewProvisioner builds a Provisioner.
func NewProvisioner(pool *pgxpool.Pool) *Provisioner {
	return &Provisioner{pool: pool}
}

// EnsureDaily inserts the counter row for (domain, day) if it does not
// exist yet. Idempotent.
func (p *Provisioner) EnsureDaily(ctx context.Context, domain string, day time.Time) error {
	return p.Ensure(ctx, domain, DayScope(day))
}

// Ensure inserts the counter row for (domain, scope) if missing.
func (p *Provisioner) Ensure(ctx context.Context, domain, scope string) error {
	const query = `
		INSERT INTO sequence_counters (domain, scope, value, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (domain, scope) DO NOTHING
	`
	_, err := p.pool.Exec(ctx, query, domain, scope)
	return err
}
