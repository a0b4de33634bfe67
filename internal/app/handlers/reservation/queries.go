package reservation

import (
	"context"
	"sort"
	"time"

	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/uow"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

const (
	getKey        = "reservation.get"
	listKey       = "reservation.list"
	statisticsKey = "reservation.statistics"

	recentLimit = 5
)

type GetReservationQuery struct {
	ReservationID string `validate:"required"`
}

func (GetReservationQuery) Key() string   { return getKey }
func (GetReservationQuery) OperatorOnly() {}

type ListReservationsQuery struct {
	Archived *bool
	Status   string `validate:"omitempty,oneof=confirmed cancelled completed"`
	Unit     string
	From     time.Time
	To       time.Time
}

func (ListReservationsQuery) Key() string   { return listKey }
func (ListReservationsQuery) OperatorOnly() {}

type StatisticsQuery struct{}

func (StatisticsQuery) Key() string   { return statisticsKey }
func (StatisticsQuery) OperatorOnly() {}

type QueryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandler) Get(ctx context.Context, q GetReservationQuery) (dto.Reservation, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Reservation{}, err
	}
	defer cleanup()

	res, err := unit.Reservations().ByID(ctx, domainreservation.ID(q.ReservationID))
	if err != nil {
		return dto.Reservation{}, err
	}
	return dto.MapReservation(res), nil
}

// List returns matching reservations ordered by arrival.
func (h *QueryHandler) List(ctx context.Context, q ListReservationsQuery) (dto.ReservationCollection, error) {
	filter := domainreservation.Filter{
		Archived: q.Archived,
		Status:   domainreservation.Status(q.Status),
		Unit:     units.ParseID(q.Unit),
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		window, err := openWindow(q.From, q.To)
		if err != nil {
			return dto.ReservationCollection{}, err
		}
		filter.Window = &window
	}

	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	defer cleanup()

	items, err := unit.Reservations().List(ctx, filter)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Range.Start.Before(items[j].Range.Start) })
	return dto.MapReservations(items), nil
}

// Statistics counts reservations by status and sums revenue of paid ones.
func (h *QueryHandler) Statistics(ctx context.Context, _ StatisticsQuery) (dto.Statistics, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Statistics{}, err
	}
	defer cleanup()

	items, err := unit.Reservations().List(ctx, domainreservation.Filter{})
	if err != nil {
		return dto.Statistics{}, err
	}
	out := dto.Statistics{TotalReservations: len(items)}
	revenue := money.Money{Currency: money.EUR}
	for _, r := range items {
		switch r.Status {
		case domainreservation.StatusConfirmed:
			out.ConfirmedReservations++
		case domainreservation.StatusCancelled:
			out.CancelledReservations++
		case domainreservation.StatusCompleted:
			out.CompletedReservations++
		}
		if r.Archived() {
			out.ArchivedReservations++
		}
		switch r.PaymentStatus {
		case domainreservation.PaymentPending:
			out.PendingPayments++
		case domainreservation.PaymentPaid:
			if sum, err := revenue.Add(r.Price.Total); err == nil {
				revenue = sum
			}
		}
	}
	out.Revenue = dto.MapMoney(revenue)

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if len(items) > recentLimit {
		items = items[:recentLimit]
	}
	out.Recent = dto.MapReservations(items).Items
	return out, nil
}

// openWindow accepts a window bounded on one side only.
func openWindow(from, to time.Time) (daterange.DateRange, error) {
	if from.IsZero() {
		from = daterange.On(1970, time.January, 1)
	}
	if to.IsZero() {
		to = daterange.On(9999, time.December, 31)
	}
	return daterange.Span(from, to)
}
