package pricing

import (
	"context"
	"time"

	"monteur/internal/app/dto"
	"monteur/internal/app/policies"
	"monteur/internal/app/queries"
	domainpricing "monteur/internal/domain/pricing"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

const quoteKey = "pricing.quote"

// QuotePriceQuery prices a stay. ReferenceDate defaults to today.
type QuotePriceQuery struct {
	Unit          string    `validate:"required"`
	Start         time.Time `validate:"required"`
	End           time.Time `validate:"required"`
	Party         int
	ReferenceDate time.Time
}

func (QuotePriceQuery) Key() string { return quoteKey }

type QuotePriceHandler struct {
	Engine *domainpricing.Engine
	Clock  policies.Clock
}

func (h *QuotePriceHandler) Handle(_ context.Context, q QuotePriceQuery) (dto.PriceBreakdown, error) {
	stay, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.PriceBreakdown{}, err
	}
	ref := q.ReferenceDate
	if ref.IsZero() {
		ref = h.Clock.Today()
	}
	b, err := h.Engine.Price(units.ParseID(q.Unit), q.Party, stay, ref)
	if err != nil {
		return dto.PriceBreakdown{}, err
	}
	return dto.MapPrice(b), nil
}

var _ queries.Handler[QuotePriceQuery, dto.PriceBreakdown] = (*QuotePriceHandler)(nil)
