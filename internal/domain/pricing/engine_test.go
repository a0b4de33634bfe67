package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

func newEngine(t *testing.T, policy Policy) *Engine {
	t.Helper()
	engine, err := NewEngine(units.DefaultCatalog(), policy)
	require.NoError(t, err)
	return engine
}

func stay(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	r, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return r
}

func TestPriceRoundingScenario(t *testing.T) {
	policy := DefaultPolicy()
	policy.Tiers[units.Hackerberg] = []Tier{{MaxParty: 5, Nightly: money.Euros(80)}}
	engine := newEngine(t, policy)

	ref := daterange.On(2026, 2, 20)
	got, err := engine.Price(units.Hackerberg, 2, stay(t, "2026-03-01", "2026-03-10"), ref)
	require.NoError(t, err)

	assert.Equal(t, 9, got.Nights)
	assert.False(t, got.DiscountApplied)
	assert.Equal(t, "810.00", got.Subtotal.String())
	assert.Equal(t, "810.00", got.DiscountedSubtotal.String())
	assert.Equal(t, "56.70", got.Tax.String())
	assert.Equal(t, "866.70", got.Total.String())
	assert.NoError(t, got.Verify())
}

func TestPriceIsDeterministic(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	ref := daterange.On(2026, 1, 1)
	r := stay(t, "2026-06-01", "2026-06-08")

	first, err := engine.Price(units.Kombi, 9, r, ref)
	require.NoError(t, err)
	second, err := engine.Price(units.Kombi, 9, r, ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPriceTiers(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	ref := daterange.On(2026, 3, 1)
	r := stay(t, "2026-03-10", "2026-03-11")

	testCases := []struct {
		unit    units.ID
		party   int
		nightly int64
	}{
		{unit: units.Hackerberg, party: 1, nightly: 100},
		{unit: units.Hackerberg, party: 4, nightly: 100},
		{unit: units.Hackerberg, party: 5, nightly: 105},
		{unit: units.Neubau, party: 6, nightly: 110},
		{unit: units.Kombi, party: 7, nightly: 200},
		{unit: units.Kombi, party: 8, nightly: 200},
		{unit: units.Kombi, party: 10, nightly: 210},
		{unit: units.Kombi, party: 11, nightly: 215},
	}
	for _, tc := range testCases {
		got, err := engine.Price(tc.unit, tc.party, r, ref)
		require.NoError(t, err)
		assert.Equal(t, money.Euros(tc.nightly), got.Nightly, "%s party %d", tc.unit, tc.party)
	}
}

func TestCombinedCleaningFeeIsDoubled(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	got, err := engine.Price(units.Kombi, 8, stay(t, "2026-03-10", "2026-03-12"), daterange.On(2026, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, money.Euros(180), got.CleaningFee)
	assert.Equal(t, money.Euros(580), got.Subtotal)
}

func TestEarlyBookingDiscount(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	ref := daterange.On(2026, 1, 15)

	onThreshold, err := engine.Price(units.Neubau, 2, stay(t, "2026-03-15", "2026-03-17"), ref)
	require.NoError(t, err)
	assert.False(t, onThreshold.DiscountApplied, "arrival exactly at the lead boundary pays full price")

	got, err := engine.Price(units.Neubau, 2, stay(t, "2026-03-16", "2026-03-18"), ref)
	require.NoError(t, err)
	require.True(t, got.DiscountApplied)

	// 2 x 100 + 90 = 290.00, -10 % = 261.00, 7 % tax = 18.27
	assert.Equal(t, "290.00", got.Subtotal.String())
	assert.Equal(t, "29.00", got.Discount.String())
	assert.Equal(t, "261.00", got.DiscountedSubtotal.String())
	assert.Equal(t, "18.27", got.Tax.String())
	assert.Equal(t, "279.27", got.Total.String())
	assert.NoError(t, got.Verify())
}

func TestLeadWindowClampsToMonthEnd(t *testing.T) {
	policy := DefaultPolicy()
	cases := []struct {
		ref      time.Time
		boundary time.Time
	}{
		{daterange.On(2026, 12, 31), daterange.On(2027, 2, 28)},
		{daterange.On(2026, 12, 29), daterange.On(2027, 2, 28)},
		{daterange.On(2027, 12, 31), daterange.On(2028, 2, 29)},
		{daterange.On(2026, 7, 31), daterange.On(2026, 9, 30)},
		{daterange.On(2026, 1, 15), daterange.On(2026, 3, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.ref.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tc.boundary, policy.LeadThreshold(tc.ref))
			assert.False(t, policy.DiscountEligible(tc.boundary, tc.ref))
			assert.True(t, policy.DiscountEligible(tc.boundary.AddDate(0, 0, 1), tc.ref))
		})
	}
}

func TestLeadWindowAddsDaysAfterMonths(t *testing.T) {
	policy := DefaultPolicy()
	policy.Lead = Lead{Months: 1, Days: 3}
	assert.Equal(t, daterange.On(2026, 3, 3), policy.LeadThreshold(daterange.On(2026, 1, 31)))
}

func TestDiscountRoundsBeforeTax(t *testing.T) {
	policy := DefaultPolicy()
	policy.Tiers[units.Hackerberg] = []Tier{{MaxParty: 5, Nightly: money.Must(3333, money.EUR)}}
	policy.DiscountRateBP = 1500
	policy.TaxRateBP = 1900
	engine := newEngine(t, policy)

	got, err := engine.Price(units.Hackerberg, 1, stay(t, "2026-12-01", "2026-12-04"), daterange.On(2026, 1, 1))
	require.NoError(t, err)

	// 3 x 33.33 + 90 = 189.99; x 0.85 = 161.4915 -> 161.49; x 0.19 = 30.6831 -> 30.68
	assert.Equal(t, "189.99", got.Subtotal.String())
	assert.Equal(t, "161.49", got.DiscountedSubtotal.String())
	assert.Equal(t, "30.68", got.Tax.String())
	assert.Equal(t, "192.17", got.Total.String())
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	engine := newEngine(t, DefaultPolicy())
	ref := daterange.On(2026, 1, 1)

	_, err := engine.Price(units.Hackerberg, 2, daterange.DateRange{Start: daterange.On(2026, 3, 1), End: daterange.On(2026, 3, 1)}, ref)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = engine.Price(units.Hackerberg, 6, stay(t, "2026-03-01", "2026-03-03"), ref)
	assert.ErrorIs(t, err, units.ErrCapacityExceeded)

	_, err = engine.Price(units.Hackerberg, 0, stay(t, "2026-03-01", "2026-03-03"), ref)
	assert.ErrorIs(t, err, units.ErrInvalidParty)
}

func TestPolicyValidate(t *testing.T) {
	policy := DefaultPolicy()
	policy.Tiers[units.Kombi] = []Tier{{MaxParty: 10, Nightly: money.Euros(200)}, {MaxParty: 8, Nightly: money.Euros(210)}}
	assert.ErrorIs(t, policy.Validate(), ErrInvalidPolicy)

	policy = DefaultPolicy()
	policy.TaxRateBP = 12000
	assert.ErrorIs(t, policy.Validate(), ErrInvalidPolicy)

	assert.NoError(t, DefaultPolicy().Validate())
}
