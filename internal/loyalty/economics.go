// Package loyalty computes point earning/redemption for sales and keeps
// per-customer balances consistent under concurrent purchases.
package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andino-transportes/andino/internal/shared"
)

// Economics holds the two globally configured ratios: soles of spend
// required to earn one point, and points required to offset one sol of
// price. Both default to 10.0 when unset.
type Economics struct {
	SolesPerPoint        decimal.Decimal
	PointsPerSolDiscount decimal.Decimal
}

// NewEconomics validates the ratios. Zero or negative ratios are an
// operator configuration defect.
func NewEconomics(solesPerPoint, pointsPerSolDiscount float64) (Economics, error) {
	ec := Economics{
		SolesPerPoint:        decimal.NewFromFloat(solesPerPoint),
		PointsPerSolDiscount: decimal.NewFromFloat(pointsPerSolDiscount),
	}
	if !ec.SolesPerPoint.IsPositive() || !ec.PointsPerSolDiscount.IsPositive() {
		return Economics{}, fmt.Errorf("%w: loyalty ratios must be positive", shared.ErrConfiguration)
	}
	return ec, nil
}

// Quote is the priced outcome of a sale before persistence.
type Quote struct {
	OriginalPrice  decimal.Decimal
	Discount       decimal.Decimal
	FinalPrice     decimal.Decimal
	PointsEarned   int64
	PointsRedeemed int64
	Overridden     bool
}

// Compute prices a sale. Redemption is clamped to the available balance,
// the discount is capped at the original price and rounded half-up to
// cents, and points are earned on the computed final charged amount. A
// manual override replaces the final price but leaves the point
// bookkeeping untouched.
func Compute(ec Economics, original decimal.Decimal, requested, available int64, override *decimal.Decimal) (Quote, error) {
	if original.IsNegative() {
		return Quote{}, fmt.Errorf("%w: original price cannot be negative", shared.ErrValidation)
	}
	if requested < 0 {
		return Quote{}, fmt.Errorf("%w: requested points cannot be negative", shared.ErrValidation)
	}

	redeemed := requested
	if redeemed > available {
		redeemed = available
	}

	discount := decimal.NewFromInt(redeemed).Div(ec.PointsPerSolDiscount).Round(2)
	if discount.GreaterThan(original) {
		discount = original
	}

	charged := original.Sub(discount)
	if charged.IsNegative() {
		charged = decimal.Zero
	}

	earned := charged.Div(ec.SolesPerPoint).Floor().IntPart()

	q := Quote{
		OriginalPrice:  original,
		Discount:       discount,
		FinalPrice:     charged,
		PointsEarned:   earned,
		PointsRedeemed: redeemed,
	}

	if override != nil {
		final := override.Round(2)
		if final.IsNegative() {
			final = decimal.Zero
		}
		q.FinalPrice = final
		q.Overridden = true
	}

	return q, nil
}

// NoAccount returns the quote for a sale without a loyalty account
// (instant/walk-in sales): no points move in either direction.
func NoAccount(original decimal.Decimal, override *decimal.Decimal) (Quote, error) {
	if original.IsNegative() {
		return Quote{}, fmt.Errorf("%w: original price cannot be negative", shared.ErrValidation)
	}
	q := Quote{
		OriginalPrice: original,
		Discount:      decimal.Zero,
		FinalPrice:    original,
	}
	if override != nil {
		final := override.Round(2)
		if final.IsNegative() {
			final = decimal.Zero
		}
		q.FinalPrice = final
		q.Overridden = true
	}
	return q, nil
}
