package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "monteur/internal/domain/pricing"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
	"monteur/internal/infra/clock"
)

func newHandler(t *testing.T, today time.Time) *QuotePriceHandler {
	t.Helper()
	engine, err := domainpricing.NewEngine(units.DefaultCatalog(), domainpricing.DefaultPolicy())
	require.NoError(t, err)
	return &QuotePriceHandler{Engine: engine, Clock: clock.NewFixed(today)}
}

func TestQuoteUsesClockAsDefaultReference(t *testing.T) {
	h := newHandler(t, daterange.On(2026, 1, 10))
	q := QuotePriceQuery{Unit: "neubau", Start: daterange.On(2026, 4, 1), End: daterange.On(2026, 4, 4), Party: 2}

	early, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, early.DiscountApplied)
	assert.Equal(t, "10%", early.DiscountRate)

	q.ReferenceDate = daterange.On(2026, 3, 1)
	late, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, late.DiscountApplied)
	assert.Equal(t, "390.00", late.Subtotal.Display)
	assert.Equal(t, "417.30", late.Total.Display)
}

func TestQuoteIsReproducible(t *testing.T) {
	h := newHandler(t, daterange.On(2026, 1, 10))
	q := QuotePriceQuery{Unit: "kombi", Start: daterange.On(2026, 6, 1), End: daterange.On(2026, 6, 8), Party: 10, ReferenceDate: daterange.On(2026, 1, 10)}

	a, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	b, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQuoteRejectsInvalidInput(t *testing.T) {
	h := newHandler(t, daterange.On(2026, 1, 10))
	_, err := h.Handle(context.Background(), QuotePriceQuery{Unit: "neubau", Start: daterange.On(2026, 4, 1), End: daterange.On(2026, 4, 1), Party: 2})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = h.Handle(context.Background(), QuotePriceQuery{Unit: "hackerberg", Start: daterange.On(2026, 4, 1), End: daterange.On(2026, 4, 3), Party: 6})
	assert.ErrorIs(t, err, units.ErrCapacityExceeded)
}
