package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"monteur/internal/app/commands"
	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/middleware"
	"monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainpricing "monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

const commitKey = "reservation.commit"

type CommitReservationCommand struct {
	ReservationID   string
	Unit            string    `validate:"required"`
	Start           time.Time `validate:"required"`
	End             time.Time `validate:"required"`
	Party           int
	Guest           domainreservation.Guest
	PaymentRef      string
	IdempotencyKeyV string
}

func (c CommitReservationCommand) Key() string { return commitKey }

// RequiresOperator holds for pre-paid bookings: a payment reference is a
// settlement fact only an operator or the payment integration may assert.
func (c CommitReservationCommand) RequiresOperator() bool { return c.PaymentRef != "" }

func (c CommitReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CommitReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c CommitReservationCommand) Fingerprint() string {
	return strings.Join([]string{
		strings.ToLower(c.Unit),
		daterange.Format(c.Start),
		daterange.Format(c.End),
		strconv.Itoa(c.Party),
		strings.ToLower(strings.TrimSpace(c.Guest.Email)),
		c.PaymentRef,
	}, "|")
}

// CommitReservationHandler books a stay. The availability re-check and the
// ledger insert run in the same unit of work.
type CommitReservationHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
	Pricing    *domainpricing.Engine
	Clock      policies.Clock
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	NewID      func() string
}

func (h *CommitReservationHandler) Handle(ctx context.Context, cmd CommitReservationCommand) (*dto.Reservation, error) {
	stay, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	unitID := units.ParseID(cmd.Unit)
	if err := h.Catalog.Admit(unitID, cmd.Party); err != nil {
		return nil, err
	}
	today := h.Clock.Today()
	if err := domainreservation.ValidateArrival(stay, today); err != nil {
		return nil, err
	}
	price, err := h.Pricing.Price(unitID, cmd.Party, stay, today)
	if err != nil {
		return nil, err
	}
	id := cmd.ReservationID
	if id == "" {
		id = h.newID()
	}
	now := h.Clock.Now()
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID:         domainreservation.ID(id),
		Guest:      cmd.Guest,
		Unit:       unitID,
		Range:      stay,
		Party:      cmd.Party,
		Price:      price,
		PaymentRef: cmd.PaymentRef,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	parts, err := h.Catalog.Implicated(unitID)
	if err != nil {
		return nil, err
	}

	err = support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), parts)
		if err != nil {
			return err
		}
		for _, part := range parts {
			if ledgers[part].IsBlocked(stay) {
				h.logger().WarnContext(ctx, "overbooking prevented", "unit", unitID, "ledger", part, "range", stay.String())
				return fmt.Errorf("%w: %s %s", domainavailability.ErrConflict, part, stay)
			}
		}
		recorders := make([]outbox.Recorder, 0, len(parts)+1)
		for _, part := range parts {
			if err := ledgers[part].Insert(res.Entry(part), now); err != nil {
				return err
			}
			recorders = append(recorders, ledgers[part])
		}
		if err := support.SaveLedgers(ctx, unit.Ledgers(), ledgers, parts); err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		recorders = append(recorders, res)
		return outbox.Drain(ctx, h.Outbox, h.Encoder, recorders...)
	})
	if err != nil {
		return nil, err
	}

	out := dto.MapReservation(res)
	return &out, nil
}

func (h *CommitReservationHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *CommitReservationHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CommitReservationCommand, *dto.Reservation] = (*CommitReservationHandler)(nil)
var _ middleware.IdempotentCommand = CommitReservationCommand{}
var _ middleware.Fingerprinted = CommitReservationCommand{}
var _ middleware.ConditionallyRestricted = CommitReservationCommand{}
