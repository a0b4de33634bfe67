package availability

import (
	"context"
	"time"

	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/policies"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

const (
	calendarKey = "availability.calendar"
	periodsKey  = "availability.periods"

	// periodsHorizonMonths bounds the public calendar when no end is given.
	periodsHorizonMonths = 18
)

// GetCalendarQuery lists every entry of a unit in a window, archived ones included on request.
type GetCalendarQuery struct {
	Unit            string    `validate:"required"`
	From            time.Time `validate:"required"`
	To              time.Time `validate:"required"`
	IncludeArchived bool
}

func (GetCalendarQuery) Key() string   { return calendarKey }
func (GetCalendarQuery) OperatorOnly() {}

// OccupiedPeriodsQuery feeds the public booking calendar.
type OccupiedPeriodsQuery struct {
	Unit string `validate:"required"`
	From time.Time
	To   time.Time
}

func (OccupiedPeriodsQuery) Key() string { return periodsKey }

type CalendarHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
	Clock      policies.Clock
}

func (h *CalendarHandler) Calendar(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	window, err := daterange.Span(q.From, q.To)
	if err != nil {
		return dto.Calendar{}, err
	}
	unitID := units.ParseID(q.Unit)
	entries, err := h.entries(ctx, unitID, window, q.IncludeArchived)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(unitID, window, entries), nil
}

// Periods returns occupied ranges without guest details.
func (h *CalendarHandler) Periods(ctx context.Context, q OccupiedPeriodsQuery) (dto.PeriodCollection, error) {
	from := q.From
	if from.IsZero() {
		from = h.Clock.Today()
	}
	to := q.To
	if to.IsZero() {
		to = daterange.Date(from).AddDate(0, periodsHorizonMonths, 0)
	}
	window, err := daterange.Span(from, to)
	if err != nil {
		return dto.PeriodCollection{}, err
	}
	unitID := units.ParseID(q.Unit)
	entries, err := h.entries(ctx, unitID, window, false)
	if err != nil {
		return dto.PeriodCollection{}, err
	}
	out := dto.PeriodCollection{Unit: string(unitID), Items: make([]dto.Period, 0, len(entries))}
	for _, e := range entries {
		out.Items = append(out.Items, dto.Period{Start: daterange.Format(e.Range.Start), End: daterange.Format(e.Range.End)})
	}
	return out, nil
}

// entries merges the implicated ledgers; an entry shared by both physical
// ledgers of the combined unit is reported once.
func (h *CalendarHandler) entries(ctx context.Context, unitID units.ID, window daterange.DateRange, includeArchived bool) ([]domainavailability.Entry, error) {
	parts, err := h.Catalog.Implicated(unitID)
	if err != nil {
		return nil, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), parts)
	if err != nil {
		return nil, err
	}
	merged := domainavailability.NewLedger(unitID)
	seen := map[string]bool{}
	for _, part := range parts {
		for _, e := range ledgers[part].Within(window, includeArchived) {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			merged.Entries = append(merged.Entries, e)
		}
	}
	return merged.Within(window, includeArchived), nil
}

