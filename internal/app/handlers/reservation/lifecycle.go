package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/units"
)

const (
	cancelKey   = "reservation.cancel"
	archiveKey  = "reservation.archive"
	restoreKey  = "reservation.restore"
	purgeKey    = "reservation.purge"
	completeKey = "reservation.complete"
	paymentKey  = "reservation.payment"
)

type CancelReservationCommand struct {
	ReservationID string `validate:"required"`
}

func (CancelReservationCommand) Key() string   { return cancelKey }
func (CancelReservationCommand) OperatorOnly() {}

type ArchiveReservationCommand struct {
	ReservationID string `validate:"required"`
	Actor         string `validate:"required"`
}

func (ArchiveReservationCommand) Key() string   { return archiveKey }
func (ArchiveReservationCommand) OperatorOnly() {}

type RestoreReservationCommand struct {
	ReservationID string `validate:"required"`
}

func (RestoreReservationCommand) Key() string   { return restoreKey }
func (RestoreReservationCommand) OperatorOnly() {}

type PurgeReservationCommand struct {
	ReservationID string `validate:"required"`
	Actor         string `validate:"required"`
}

func (PurgeReservationCommand) Key() string   { return purgeKey }
func (PurgeReservationCommand) OperatorOnly() {}

type PurgeReservationResult struct {
	ReservationID string `json:"reservation_id"`
}

type CompleteReservationCommand struct {
	ReservationID string `validate:"required"`
}

func (CompleteReservationCommand) Key() string   { return completeKey }
func (CompleteReservationCommand) OperatorOnly() {}

type RecordPaymentCommand struct {
	ReservationID string `validate:"required"`
	Status        string `validate:"required,oneof=paid failed refunded"`
	Reference     string
}

func (RecordPaymentCommand) Key() string   { return paymentKey }
func (RecordPaymentCommand) OperatorOnly() {}

// LifecycleHandler drives every state change after a reservation exists.
type LifecycleHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
	Clock      policies.Clock
	Archiver   policies.Archiver
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *LifecycleHandler) Cancel(ctx context.Context, cmd CancelReservationCommand) (*dto.Reservation, error) {
	return h.mutate(ctx, cmd.ReservationID, func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error) {
		return nil, res.Cancel(h.Clock.Now())
	})
}

// Archive soft-deletes the reservation and releases its entries on every
// implicated ledger.
func (h *LifecycleHandler) Archive(ctx context.Context, cmd ArchiveReservationCommand) (*dto.Reservation, error) {
	return h.mutate(ctx, cmd.ReservationID, func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error) {
		now := h.Clock.Now()
		if err := res.Archive(cmd.Actor, now); err != nil {
			return nil, err
		}
		return h.withLedgers(ctx, unit, res, func(ledger *domainavailability.Ledger) error {
			err := ledger.Release(string(res.ID), now)
			if errors.Is(err, domainavailability.ErrEntryNotFound) {
				h.logger().WarnContext(ctx, "archived reservation had no ledger entry", "reservation", res.ID, "ledger", ledger.Unit)
				return nil
			}
			return err
		})
	})
}

// Restore re-blocks the calendar. Every ledger is checked before any is
// changed; a retaken slot leaves the reservation archived.
func (h *LifecycleHandler) Restore(ctx context.Context, cmd RestoreReservationCommand) (*dto.Reservation, error) {
	return h.mutate(ctx, cmd.ReservationID, func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error) {
		if !res.Archived() {
			return nil, fmt.Errorf("%w: reservation is not archived", domainreservation.ErrInvalidTransition)
		}
		parts, err := h.Catalog.Implicated(res.Unit)
		if err != nil {
			return nil, err
		}
		ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), parts)
		if err != nil {
			return nil, err
		}
		id := string(res.ID)
		for _, part := range parts {
			ledger := ledgers[part]
			if _, ok := ledger.Find(id); ok {
				if err := ledger.CanRestore(id); err != nil {
					return nil, fmt.Errorf("%w: %s", err, part)
				}
				continue
			}
			if ledger.IsBlocked(res.Range) {
				return nil, fmt.Errorf("%w: %s", domainavailability.ErrConflict, part)
			}
		}

		now := h.Clock.Now()
		recorders := make([]outbox.Recorder, 0, len(parts))
		for _, part := range parts {
			ledger := ledgers[part]
			if _, ok := ledger.Find(id); ok {
				err = ledger.Restore(id, now)
			} else {
				err = ledger.Insert(res.Entry(part), now)
			}
			if err != nil {
				return nil, err
			}
			recorders = append(recorders, ledger)
		}
		if err := res.Restore(now); err != nil {
			return nil, err
		}
		if err := support.SaveLedgers(ctx, unit.Ledgers(), ledgers, parts); err != nil {
			return nil, err
		}
		return recorders, nil
	})
}

// Purge deletes an archived reservation and its released entries for good.
// An audit snapshot is written first when an archiver is configured.
func (h *LifecycleHandler) Purge(ctx context.Context, cmd PurgeReservationCommand) (*PurgeReservationResult, error) {
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ID(cmd.ReservationID))
		if err != nil {
			return err
		}
		now := h.Clock.Now()
		if err := res.MarkPurged(now); err != nil {
			return err
		}
		recorders, err := h.withLedgers(ctx, unit, res, func(ledger *domainavailability.Ledger) error {
			_, err := ledger.Remove(string(res.ID), now)
			if errors.Is(err, domainavailability.ErrEntryNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
		if h.Archiver != nil {
			snapshot := dto.ReservationSnapshot{Reservation: dto.MapReservation(res), PurgedAt: now.UTC(), PurgedBy: cmd.Actor}
			if err := h.Archiver.Archive(ctx, snapshot); err != nil {
				return fmt.Errorf("reservation: audit snapshot: %w", err)
			}
		}
		if err := unit.Reservations().Delete(ctx, res.ID); err != nil {
			return err
		}
		return outbox.Drain(ctx, h.Outbox, h.Encoder, append(recorders, res)...)
	})
	if err != nil {
		return nil, err
	}
	return &PurgeReservationResult{ReservationID: cmd.ReservationID}, nil
}

func (h *LifecycleHandler) Complete(ctx context.Context, cmd CompleteReservationCommand) (*dto.Reservation, error) {
	return h.mutate(ctx, cmd.ReservationID, func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error) {
		return nil, res.Complete(h.Clock.Today(), h.Clock.Now())
	})
}

func (h *LifecycleHandler) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*dto.Reservation, error) {
	return h.mutate(ctx, cmd.ReservationID, func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error) {
		return nil, res.RecordPayment(domainreservation.PaymentStatus(cmd.Status), cmd.Reference, h.Clock.Now())
	})
}

type mutation func(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation) ([]outbox.Recorder, error)

// mutate loads the reservation, applies fn, saves it and records events.
func (h *LifecycleHandler) mutate(ctx context.Context, id string, fn mutation) (*dto.Reservation, error) {
	var out dto.Reservation
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := unit.Reservations().ByID(ctx, domainreservation.ID(id))
		if err != nil {
			return err
		}
		recorders, err := fn(ctx, unit, res)
		if err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			return err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, append(recorders, res)...); err != nil {
			return err
		}
		out = dto.MapReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// withLedgers applies fn to every ledger the reservation occupies and saves them.
func (h *LifecycleHandler) withLedgers(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation, fn func(*domainavailability.Ledger) error) ([]outbox.Recorder, error) {
	parts, err := h.Catalog.Implicated(res.Unit)
	if err != nil {
		return nil, err
	}
	ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), parts)
	if err != nil {
		return nil, err
	}
	recorders := make([]outbox.Recorder, 0, len(parts))
	for _, part := range parts {
		if err := fn(ledgers[part]); err != nil {
			return nil, err
		}
		recorders = append(recorders, ledgers[part])
	}
	if err := support.SaveLedgers(ctx, unit.Ledgers(), ledgers, parts); err != nil {
		return nil, err
	}
	return recorders, nil
}

func (h *LifecycleHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
