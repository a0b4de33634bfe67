package units

import (
	"context"

	"monteur/internal/app/dto"
	"monteur/internal/app/queries"
	domainunits "monteur/internal/domain/units"
)

const listKey = "units.list"

type ListUnitsQuery struct{}

func (ListUnitsQuery) Key() string { return listKey }

type ListUnitsHandler struct {
	Catalog *domainunits.Catalog
}

func (h *ListUnitsHandler) Handle(context.Context, ListUnitsQuery) (dto.UnitCollection, error) {
	return dto.MapUnits(h.Catalog), nil
}

var _ queries.Handler[ListUnitsQuery, dto.UnitCollection] = (*ListUnitsHandler)(nil)
