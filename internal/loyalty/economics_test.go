package loyalty

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testEconomics(t *testing.T) Economics {
	t.Helper()
	ec, err := NewEconomics(10.0, 10.0)
	require.NoError(t, err)
	return ec
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewEconomicsRejectsNonPositiveRatios(t *testing.T) {
	_, err := NewEconomics(0, 10)
	require.Error(t, err)
	_, err = NewEconomics(10, -1)
	require.Error(t, err)
}

func TestComputeWorkedScenario(t *testing.T) {
	// 100-sol ticket, 50 points redeemed at 10 points per sol:
	// discount 5.00, final 95.00, earned floor(95/10) = 9.
	q, err := Compute(testEconomics(t), dec("100"), 50, 50, nil)
	require.NoError(t, err)
	require.True(t, q.Discount.Equal(dec("5.00")), "discount = %s", q.Discount)
	require.True(t, q.FinalPrice.Equal(dec("95.00")), "final = %s", q.FinalPrice)
	require.Equal(t, int64(9), q.PointsEarned)
	require.Equal(t, int64(50), q.PointsRedeemed)
	require.False(t, q.Overridden)
}

func TestComputeClampsRedemptionToAvailable(t *testing.T) {
	q, err := Compute(testEconomics(t), dec("100"), 80, 30, nil)
	require.NoError(t, err)
	require.Equal(t, int64(30), q.PointsRedeemed)
	require.True(t, q.Discount.Equal(dec("3.00")))
}

func TestComputeCapsDiscountAtOriginalPrice(t *testing.T) {
	q, err := Compute(testEconomics(t), dec("2.50"), 100, 100, nil)
	require.NoError(t, err)
	require.True(t, q.Discount.Equal(dec("2.50")), "discount = %s", q.Discount)
	require.True(t, q.FinalPrice.IsZero())
	require.Equal(t, int64(0), q.PointsEarned)
}

func TestComputeRoundsDiscountHalfUp(t *testing.T) {
	ec, err := NewEconomics(10.0, 3.0)
	require.NoError(t, err)

	// 1/3 = 0.333... -> 0.33; 5/3 = 1.666... -> 1.67
	q, err := Compute(ec, dec("100"), 1, 10, nil)
	require.NoError(t, err)
	require.True(t, q.Discount.Equal(dec("0.33")), "discount = %s", q.Discount)

	q, err = Compute(ec, dec("100"), 5, 10, nil)
	require.NoError(t, err)
	require.True(t, q.Discount.Equal(dec("1.67")), "discount = %s", q.Discount)
}

func TestComputeOverrideKeepsBookkeeping(t *testing.T) {
	override := dec("80.005")
	q, err := Compute(testEconomics(t), dec("100"), 50, 50, &override)
	require.NoError(t, err)
	require.True(t, q.Overridden)
	// Override rounds to cents; points still priced off the computed final.
	require.True(t, q.FinalPrice.Equal(dec("80.01")), "final = %s", q.FinalPrice)
	require.Equal(t, int64(9), q.PointsEarned)
	require.Equal(t, int64(50), q.PointsRedeemed)
}

func TestComputeOverrideFloorsAtZero(t *testing.T) {
	override := dec("-4")
	q, err := Compute(testEconomics(t), dec("100"), 0, 0, &override)
	require.NoError(t, err)
	require.True(t, q.FinalPrice.IsZero())
}

func TestComputeRejectsNegativeInputs(t *testing.T) {
	_, err := Compute(testEconomics(t), dec("-1"), 0, 0, nil)
	require.Error(t, err)

	_, err = Compute(testEconomics(t), dec("10"), -5, 0, nil)
	require.Error(t, err)
}

func TestComputeFinalNeverExceedsOriginal(t *testing.T) {
	for _, tc := range []struct {
		price     string
		requested int64
		available int64
	}{
		{"100", 0, 0},
		{"100", 50, 50},
		{"0.99", 1000, 1000},
		{"19.90", 7, 3},
	} {
		q, err := Compute(testEconomics(t), dec(tc.price), tc.requested, tc.available, nil)
		require.NoError(t, err)
		require.False(t, q.FinalPrice.IsNegative())
		require.True(t, q.FinalPrice.LessThanOrEqual(dec(tc.price)))
	}
}

func TestNoAccountEarnsNothing(t *testing.T) {
	q, err := NoAccount(dec("45.50"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), q.PointsEarned)
	require.Equal(t, int64(0), q.PointsRedeemed)
	require.True(t, q.FinalPrice.Equal(dec("45.50")))
}
