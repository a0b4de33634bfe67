package availability

import (
	"context"
	"time"

	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/queries"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

const checkKey = "availability.check"

// CheckAvailabilityQuery leaves Unit empty to let the party size choose.
type CheckAvailabilityQuery struct {
	Unit  string
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
	Party int
}

func (CheckAvailabilityQuery) Key() string { return checkKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityResult, error) {
	stay, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	requested := units.ParseID(q.Unit)
	if requested != "" {
		if err := h.Catalog.Admit(requested, q.Party); err != nil {
			return dto.AvailabilityResult{}, err
		}
	} else if _, err := h.Catalog.Route(q.Party); err != nil {
		return dto.AvailabilityResult{}, err
	}

	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	defer cleanup()

	ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), h.Catalog.Physical())
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	res, err := domainavailability.Resolve(h.Catalog, ledgers, requested, stay, q.Party)
	if err != nil {
		return dto.AvailabilityResult{}, err
	}
	return dto.MapAvailability(h.Catalog, res), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityResult] = (*CheckAvailabilityHandler)(nil)
