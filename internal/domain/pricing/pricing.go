package pricing

import (
	"errors"
	"fmt"
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

var (
	ErrInvalidPolicy = errors.New("pricing: invalid policy")
	ErrNoTier        = errors.New("pricing: no rate table for unit")
)

// Tier is one band of a step function: parties up to MaxParty pay Nightly.
// The last tier of a table also covers every larger party.
type Tier struct {
	MaxParty int
	Nightly  money.Money
}

// Lead is the minimum distance between the reference date and the arrival
// for the early booking discount.
type Lead struct {
	Months int
	Days   int
}

// Policy carries every business constant the engine needs.
type Policy struct {
	Tiers          map[units.ID][]Tier
	TaxRateBP      int64
	DiscountRateBP int64
	Lead           Lead
	Currency       string
}

// DefaultPolicy reproduces the rates published on the booking site.
func DefaultPolicy() Policy {
	single := []Tier{
		{MaxParty: 4, Nightly: money.Euros(100)},
		{MaxParty: 5, Nightly: money.Euros(105)},
		{MaxParty: 6, Nightly: money.Euros(110)},
	}
	return Policy{
		Tiers: map[units.ID][]Tier{
			units.Hackerberg: single,
			units.Neubau:     single,
			units.Kombi: {
				{MaxParty: 8, Nightly: money.Euros(200)},
				{MaxParty: 10, Nightly: money.Euros(210)},
				{MaxParty: 11, Nightly: money.Euros(215)},
			},
		},
		TaxRateBP:      700,
		DiscountRateBP: 1000,
		Lead:           Lead{Months: 2},
		Currency:       money.EUR,
	}
}

func (p Policy) Validate() error {
	if p.Currency == "" {
		return fmt.Errorf("%w: currency unset", ErrInvalidPolicy)
	}
	if p.TaxRateBP < 0 || p.TaxRateBP > money.BasisPointsScale {
		return fmt.Errorf("%w: tax rate %d bp", ErrInvalidPolicy, p.TaxRateBP)
	}
	if p.DiscountRateBP < 0 || p.DiscountRateBP > money.BasisPointsScale {
		return fmt.Errorf("%w: discount rate %d bp", ErrInvalidPolicy, p.DiscountRateBP)
	}
	if p.Lead.Months < 0 || p.Lead.Days < 0 {
		return fmt.Errorf("%w: negative lead time", ErrInvalidPolicy)
	}
	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: no rate tables", ErrInvalidPolicy)
	}
	for unit, table := range p.Tiers {
		if len(table) == 0 {
			return fmt.Errorf("%w: empty rate table for %s", ErrInvalidPolicy, unit)
		}
		prev := 0
		for _, tier := range table {
			if tier.MaxParty <= prev {
				return fmt.Errorf("%w: tiers for %s must ascend by party size", ErrInvalidPolicy, unit)
			}
			if tier.Nightly.Amount < 0 || tier.Nightly.Currency != p.Currency {
				return fmt.Errorf("%w: bad nightly rate for %s", ErrInvalidPolicy, unit)
			}
			prev = tier.MaxParty
		}
	}
	return nil
}

// Nightly picks the rate band for a party in a unit.
func (p Policy) Nightly(unit units.ID, party int) (money.Money, error) {
	table, ok := p.Tiers[unit]
	if !ok || len(table) == 0 {
		return money.Money{}, fmt.Errorf("%w: %s", ErrNoTier, unit)
	}
	for _, tier := range table {
		if party <= tier.MaxParty {
			return tier.Nightly, nil
		}
	}
	return table[len(table)-1].Nightly, nil
}

// DiscountEligible reports whether arrival lies strictly after the lead window.
func (p Policy) DiscountEligible(arrival, referenceDate time.Time) bool {
	return daterange.Date(arrival).After(p.LeadThreshold(referenceDate))
}

// LeadThreshold is the last day of the lead window. Months are added with the
// day clamped to the target month, so 31 Dec + 2 months is 28 Feb.
func (p Policy) LeadThreshold(referenceDate time.Time) time.Time {
	return addMonthsClamped(daterange.Date(referenceDate), p.Lead.Months).AddDate(0, 0, p.Lead.Days)
}

func addMonthsClamped(d time.Time, months int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d.Day(), last)-1)
}

// Breakdown is the priced result of a stay. Every amount is already rounded
// to the cent.
type Breakdown struct {
	Unit               units.ID
	Party              int
	Nights             int
	Nightly            money.Money
	CleaningFee        money.Money
	Subtotal           money.Money
	DiscountApplied    bool
	DiscountRateBP     int64
	Discount           money.Money
	DiscountedSubtotal money.Money
	TaxRateBP          int64
	Tax                money.Money
	Total              money.Money
}

// Verify recomputes the totals from the components.
func (b Breakdown) Verify() error {
	if b.Nights <= 0 {
		return fmt.Errorf("%w: nights must be positive", daterange.ErrInvalidRange)
	}
	subtotal := b.Nightly.Multiply(int64(b.Nights)).Amount + b.CleaningFee.Amount
	if subtotal != b.Subtotal.Amount {
		return errors.New("pricing: subtotal mismatch")
	}
	if b.Subtotal.Amount-b.Discount.Amount != b.DiscountedSubtotal.Amount {
		return errors.New("pricing: discounted subtotal mismatch")
	}
	if b.DiscountedSubtotal.Amount+b.Tax.Amount != b.Total.Amount {
		return errors.New("pricing: total mismatch")
	}
	return nil
}
