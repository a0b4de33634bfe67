package pricing

import (
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

// Engine prices stays. It holds no state beyond its configuration and never
// reads the wall clock.
type Engine struct {
	catalog *units.Catalog
	policy  Policy
}

func NewEngine(catalog *units.Catalog, policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	for _, u := range catalog.All() {
		if _, ok := policy.Tiers[u.ID]; !ok {
			return nil, ErrNoTier
		}
	}
	return &Engine{catalog: catalog, policy: policy}, nil
}

func (e *Engine) Policy() Policy { return e.policy }

// Price computes the breakdown for a stay. Rounding happens after the
// subtotal, after the discount and after the tax.
func (e *Engine) Price(unit units.ID, party int, stay daterange.DateRange, referenceDate time.Time) (Breakdown, error) {
	if err := stay.Validate(); err != nil {
		return Breakdown{}, err
	}
	if err := e.catalog.Admit(unit, party); err != nil {
		return Breakdown{}, err
	}
	nightly, err := e.policy.Nightly(unit, party)
	if err != nil {
		return Breakdown{}, err
	}
	cleaning, err := e.catalog.CleaningFee(unit)
	if err != nil {
		return Breakdown{}, err
	}

	nights := stay.Nights()
	subtotal, err := nightly.Multiply(int64(nights)).Add(cleaning)
	if err != nil {
		return Breakdown{}, err
	}

	out := Breakdown{
		Unit:        unit,
		Party:       party,
		Nights:      nights,
		Nightly:     nightly,
		CleaningFee: cleaning,
		Subtotal:    subtotal,
		Discount:    subtotal.Zero(),
		TaxRateBP:   e.policy.TaxRateBP,
	}

	discounted := subtotal
	if e.policy.DiscountRateBP > 0 && e.policy.DiscountEligible(stay.Start, referenceDate) {
		if discounted, err = subtotal.ApplyRate(money.BasisPointsScale - e.policy.DiscountRateBP); err != nil {
			return Breakdown{}, err
		}
		out.DiscountApplied = true
		out.DiscountRateBP = e.policy.DiscountRateBP
		if out.Discount, err = subtotal.Sub(discounted); err != nil {
			return Breakdown{}, err
		}
	}
	out.DiscountedSubtotal = discounted

	if out.Tax, err = discounted.ApplyRate(e.policy.TaxRateBP); err != nil {
		return Breakdown{}, err
	}
	if out.Total, err = discounted.Add(out.Tax); err != nil {
		return Breakdown{}, err
	}
	return out, nil
}
