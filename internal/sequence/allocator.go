// Package sequence issues day-scoped and series-scoped sequential
// identifiers backed by atomic counter rows.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/andino-transportes/andino/internal/shared"
)

// Counter domains used across the core.
const (
	DomainTickets   = "TKT"
	DomainShipments = "ENC"
)

// ErrCounterNotConfigured indicates the counter row for a scope does not
// exist. This is an operator setup defect, never retried.
var ErrCounterNotConfigured = fmt.Errorf("%w: sequence counter not configured", shared.ErrConfiguration)

// Store increments a counter row and returns the new value. Values for a
// given (domain, scope) pair are strictly increasing and never reused, even
// under concurrent calls: the row-level write lock serializes them.
type Store interface {
	Next(ctx context.Context, domain, scope string) (int64, error)
}

// Allocator mints formatted codes from counter rows.
type Allocator struct {
	store Store
}

// NewAllocator builds an Allocator over the given store.
func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// NextDaily allocates the next value for a (domain, day) scope and returns
// the formatted code, e.g. TKT-20260115-00007. Counters reset per day by
// construction: each day has its own row.
func (a *Allocator) NextDaily(ctx context.Context, domain string, day time.Time) (string, error) {
	n, err := a.store.Next(ctx, domain, DayScope(day))
	if err != nil {
		return "", fmt.Errorf("allocate %s/%s: %w", domain, DayScope(day), err)
	}
	return FormatDaily(domain, day, n), nil
}

// NextSeries allocates the next value for a (docType, series) scope and
// returns it alongside the formatted code, e.g. F001-00000042. Series
// counters are not scoped by date.
func (a *Allocator) NextSeries(ctx context.Context, docType, series string) (int64, string, error) {
	n, err := a.store.Next(ctx, docType, series)
	if err != nil {
		return 0, "", fmt.Errorf("allocate %s/%s: %w", docType, series, err)
	}
	return n, FormatSeries(series, n), nil
}

// DayScope renders the scope key for a daily counter.
func DayScope(day time.Time) string {
	return day.Format("20060102")
}

// FormatDaily renders a daily code: PREFIX-YYYYMMDD-NNNNN.
func FormatDaily(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, day.Format("20060102"), n)
}

// FormatSeries renders a series code: SSSS-NNNNNNNN.
func FormatSeries(series string, n int64) string {
	return fmt.Sprintf("%s-%08d", series, n)
}
