// Package checkout coordinates a sale: sequence allocation, loyalty
// application, the document insert, and the invoice row commit atomically;
// gateway submission happens afterwards and never rolls the sale back.
package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andino-transportes/andino/internal/invoicing"
	"github.com/andino-transportes/andino/internal/loyalty"
	"github.com/andino-transportes/andino/internal/platform/db"
	"github.com/andino-transportes/andino/internal/sequence"
)

// Stores bundles the transaction-scoped dependencies a sale touches. DB is
// the raw handle for the caller's own document insert.
type Stores struct {
	DB        db.DBTX
	Sequences sequence.Store
	Accounts  loyalty.AccountStore
	Invoices  invoicing.Store
}

// UnitOfWork runs fn atomically: either every write fn makes through Stores
// commits, or none do.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}

// PGUnitOfWork implements UnitOfWork on a Postgres pool.
type PGUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPGUnitOfWork builds a unit of work over the pool.
func NewPGUnitOfWork(pool *pgxpool.Pool) *PGUnitOfWork {
	return &PGUnitOfWork{pool: pool}
}

// Run opens a transaction and hands fn stores bound to it.
func (u *PGUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	return db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, Stores{
			DB:        tx,
			Sequences: sequence.NewPGStore(tx),
			Accounts:  loyalty.NewPGAccounts(tx),
			Invoices:  invoicing.NewPGStore(tx),
		})
	})
}
