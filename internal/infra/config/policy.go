package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"monteur/internal/domain/pricing"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

// PolicyFile is the YAML layout of PRICING_POLICY_FILE. Omitted fields keep
// the built-in defaults; a units list replaces the whole catalog.
type PolicyFile struct {
	Currency       string       `yaml:"currency"`
	TaxRateBP      *int64       `yaml:"tax_rate_bp"`
	DiscountRateBP *int64       `yaml:"discount_rate_bp"`
	Lead           *LeadConfig  `yaml:"lead"`
	Units          []UnitConfig `yaml:"units"`
}

type LeadConfig struct {
	Months int `yaml:"months"`
	Days   int `yaml:"days"`
}

type UnitConfig struct {
	ID               string       `yaml:"id"`
	Label            string       `yaml:"label"`
	MaxGuests        int          `yaml:"max_guests"`
	CleaningFeeCents int64        `yaml:"cleaning_fee_cents"`
	Parts            []string     `yaml:"parts"`
	Tiers            []TierConfig `yaml:"tiers"`
}

type TierConfig struct {
	MaxParty     int   `yaml:"max_party"`
	NightlyCents int64 `yaml:"nightly_cents"`
}

// LoadPolicy reads the catalog and pricing policy. An empty path yields the
// defaults.
func LoadPolicy(path string) (*units.Catalog, pricing.Policy, error) {
	if path == "" {
		return units.DefaultCatalog(), pricing.DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pricing.Policy{}, fmt.Errorf("read pricing policy: %w", err)
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (*units.Catalog, pricing.Policy, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, pricing.Policy{}, fmt.Errorf("parse pricing policy: %w", err)
	}
	policy := pricing.DefaultPolicy()
	if file.Currency != "" {
		policy.Currency = file.Currency
	}
	if file.TaxRateBP != nil {
		policy.TaxRateBP = *file.TaxRateBP
	}
	if file.DiscountRateBP != nil {
		policy.DiscountRateBP = *file.DiscountRateBP
	}
	if file.Lead != nil {
		policy.Lead = pricing.Lead{Months: file.Lead.Months, Days: file.Lead.Days}
	}

	catalog := units.DefaultCatalog()
	if len(file.Units) > 0 {
		list := make([]units.Unit, 0, len(file.Units))
		tiers := make(map[units.ID][]pricing.Tier, len(file.Units))
		for _, u := range file.Units {
			id := units.ParseID(u.ID)
			unit := units.Unit{
				ID:        id,
				Label:     u.Label,
				MaxGuests: u.MaxGuests,
			}
			if u.CleaningFeeCents > 0 {
				unit.CleaningFee = money.Money{Amount: u.CleaningFeeCents, Currency: policy.Currency}
			}
			for _, p := range u.Parts {
				unit.Parts = append(unit.Parts, units.ParseID(p))
			}
			list = append(list, unit)
			for _, t := range u.Tiers {
				tiers[id] = append(tiers[id], pricing.Tier{
					MaxParty: t.MaxParty,
					Nightly:  money.Money{Amount: t.NightlyCents, Currency: policy.Currency},
				})
			}
		}
		parsed, err := units.NewCatalog(list)
		if err != nil {
			return nil, pricing.Policy{}, err
		}
		catalog = parsed
		policy.Tiers = tiers
	} else if file.Currency != "" && file.Currency != money.EUR {
		return nil, pricing.Policy{}, fmt.Errorf("%w: currency %s needs its own unit rates", pricing.ErrInvalidPolicy, file.Currency)
	}

	if err := policy.Validate(); err != nil {
		return nil, pricing.Policy{}, err
	}
	return catalog, policy, nil
}
