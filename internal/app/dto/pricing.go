package dto

import (
	"fmt"

	"monteur/internal/domain/pricing"
)

type PriceBreakdown struct {
	Unit               string   `json:"unit"`
	Party              int      `json:"party"`
	Nights             int      `json:"nights"`
	Nightly            MoneyDTO `json:"nightly"`
	CleaningFee        MoneyDTO `json:"cleaning_fee"`
	Subtotal           MoneyDTO `json:"subtotal"`
	DiscountApplied    bool     `json:"discount_applied"`
	DiscountRate       string   `json:"discount_rate"`
	Discount           MoneyDTO `json:"discount"`
	DiscountedSubtotal MoneyDTO `json:"discounted_subtotal"`
	TaxRate            string   `json:"tax_rate"`
	Tax                MoneyDTO `json:"tax"`
	Total              MoneyDTO `json:"total"`
}

func MapPrice(b pricing.Breakdown) PriceBreakdown {
	return PriceBreakdown{
		Unit:               string(b.Unit),
		Party:              b.Party,
		Nights:             b.Nights,
		Nightly:            MapMoney(b.Nightly),
		CleaningFee:        MapMoney(b.CleaningFee),
		Subtotal:           MapMoney(b.Subtotal),
		DiscountApplied:    b.DiscountApplied,
		DiscountRate:       percent(b.DiscountRateBP),
		Discount:           MapMoney(b.Discount),
		DiscountedSubtotal: MapMoney(b.DiscountedSubtotal),
		TaxRate:            percent(b.TaxRateBP),
		Tax:                MapMoney(b.Tax),
		Total:              MapMoney(b.Total),
	}
}

// percent renders basis points, e.g. 700 -> "7%", 1950 -> "19.5%".
func percent(bp int64) string {
	if bp%100 == 0 {
		return fmt.Sprintf("%d%%", bp/100)
	}
	s := fmt.Sprintf("%d.%02d", bp/100, bp%100)
	if s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s + "%"
}
