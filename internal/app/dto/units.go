package dto

import "monteur/internal/domain/units"

type Unit struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	MaxGuests   int      `json:"max_guests"`
	CleaningFee MoneyDTO `json:"cleaning_fee"`
	Combined    bool     `json:"combined"`
	Parts       []string `json:"parts,omitempty"`
}

type UnitCollection struct {
	Items []Unit `json:"items"`
}

func MapUnits(catalog *units.Catalog) UnitCollection {
	all := catalog.All()
	out := UnitCollection{Items: make([]Unit, 0, len(all))}
	for _, u := range all {
		fee, _ := catalog.CleaningFee(u.ID)
		item := Unit{
			ID:          string(u.ID),
			Label:       u.Label,
			MaxGuests:   u.MaxGuests,
			CleaningFee: MapMoney(fee),
			Combined:    !u.Physical(),
		}
		for _, p := range u.Parts {
			item.Parts = append(item.Parts, string(p))
		}
		out.Items = append(out.Items, item)
	}
	return out
}
