package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monteur/internal/domain/availability"
	"monteur/internal/domain/pricing"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/events"
	"monteur/internal/domain/units"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrInvalidTransition = errors.New("reservation: invalid state transition")
	ErrArrivalInPast     = fmt.Errorf("%w: arrival is in the past", daterange.ErrInvalidRange)
)

type ID string

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Archive marks a soft-deleted reservation.
type Archive struct {
	At time.Time
	By string
}

type Reservation struct {
	ID            ID
	Guest         Guest
	Unit          units.ID
	Range         daterange.DateRange
	Party         int
	Price         pricing.Breakdown
	PaymentStatus PaymentStatus
	PaymentRef    string
	Status        Status
	Archival      *Archive
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Archived *bool
	Status   Status
	Unit     units.ID
	Window   *daterange.DateRange
}

func (f Filter) Match(r *Reservation) bool {
	if f.Archived != nil && *f.Archived != r.Archived() {
		return false
	}
	if f.Status != "" && f.Status != r.Status {
		return false
	}
	if f.Unit != "" && f.Unit != r.Unit {
		return false
	}
	if f.Window != nil && !f.Window.Overlaps(r.Range) {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id ID) error
	List(ctx context.Context, filter Filter) ([]*Reservation, error)
}

type CreateParams struct {
	ID         ID
	Guest      Guest
	Unit       units.ID
	Range      daterange.DateRange
	Party      int
	Price      pricing.Breakdown
	PaymentRef string
	CreatedAt  time.Time
}

// ValidateArrival rejects stays starting before today.
func ValidateArrival(stay daterange.DateRange, today time.Time) error {
	if stay.Start.Before(daterange.Date(today)) {
		return ErrArrivalInPast
	}
	return nil
}

// New creates a confirmed reservation. A payment reference marks it paid;
// without one it waits for an invoice settlement.
func New(params CreateParams) (*Reservation, error) {
	if params.ID == "" {
		return nil, errors.New("reservation: id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Party < 1 {
		return nil, units.ErrInvalidParty
	}
	if err := params.Guest.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.Verify(); err != nil {
		return nil, err
	}
	if params.Price.Nights != params.Range.Nights() || params.Price.Unit != params.Unit {
		return nil, errors.New("reservation: price does not match the stay")
	}
	payment := PaymentPending
	if params.PaymentRef != "" {
		payment = PaymentPaid
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:            params.ID,
		Guest:         params.Guest.Normalize(),
		Unit:          params.Unit,
		Range:         params.Range,
		Party:         params.Party,
		Price:         params.Price,
		PaymentStatus: payment,
		PaymentRef:    params.PaymentRef,
		Status:        StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(Committed{
		ReservationID: r.ID,
		Unit:          r.Unit,
		Range:         r.Range,
		Party:         r.Party,
		GuestName:     r.Guest.Name,
		Total:         r.Price.Total,
		PaymentStatus: r.PaymentStatus,
		At:            now,
	})
	return r, nil
}

func (r *Reservation) Archived() bool { return r.Archival != nil }

// Entry builds the ledger entry this reservation occupies on a physical unit.
func (r *Reservation) Entry(physical units.ID) availability.Entry {
	return availability.Entry{
		ID:        string(r.ID),
		Unit:      physical,
		Booked:    r.Unit,
		Range:     r.Range,
		Kind:      availability.KindReservation,
		Reason:    r.Guest.Name,
		CreatedAt: r.CreatedAt,
	}
}

// Cancel does not touch the soft-delete axis and keeps the calendar blocked.
func (r *Reservation) Cancel(now time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot cancel a %s reservation", ErrInvalidTransition, r.Status)
	}
	r.Status = StatusCancelled
	r.touch(now)
	r.Record(Cancelled{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Archive(actor string, now time.Time) error {
	if r.Archived() {
		return fmt.Errorf("%w: already archived", ErrInvalidTransition)
	}
	if actor == "" {
		return errors.New("reservation: archiving actor required")
	}
	r.touch(now)
	r.Archival = &Archive{At: r.UpdatedAt, By: actor}
	r.Record(Archived{ReservationID: r.ID, Unit: r.Unit, Range: r.Range, By: actor, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Restore(now time.Time) error {
	if !r.Archived() {
		return fmt.Errorf("%w: reservation is not archived", ErrInvalidTransition)
	}
	r.Archival = nil
	r.touch(now)
	r.Record(Restored{ReservationID: r.ID, Unit: r.Unit, Range: r.Range, At: r.UpdatedAt})
	return nil
}

// MarkPurged guards the irreversible delete. The repository removes the record.
func (r *Reservation) MarkPurged(now time.Time) error {
	if !r.Archived() {
		return fmt.Errorf("%w: only archived reservations can be purged", ErrInvalidTransition)
	}
	r.touch(now)
	r.Record(Purged{ReservationID: r.ID, Unit: r.Unit, Range: r.Range, At: r.UpdatedAt})
	return nil
}

// Complete closes a confirmed stay once the departure day is reached.
func (r *Reservation) Complete(referenceDate, now time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot complete a %s reservation", ErrInvalidTransition, r.Status)
	}
	if daterange.Date(referenceDate).Before(r.Range.End) {
		return fmt.Errorf("%w: stay has not ended yet", ErrInvalidTransition)
	}
	r.Status = StatusCompleted
	r.touch(now)
	r.Record(Completed{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

// RecordPayment applies a settlement fact from the payment provider.
func (r *Reservation) RecordPayment(status PaymentStatus, ref string, now time.Time) error {
	allowed := false
	switch r.PaymentStatus {
	case PaymentPending, PaymentFailed:
		allowed = status == PaymentPaid || (status == PaymentFailed && r.PaymentStatus == PaymentPending)
	case PaymentPaid:
		allowed = status == PaymentRefunded
	}
	if !allowed {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, r.PaymentStatus, status)
	}
	previous := r.PaymentStatus
	r.PaymentStatus = status
	if ref != "" {
		r.PaymentRef = ref
	}
	r.touch(now)
	r.Record(PaymentRecorded{ReservationID: r.ID, From: previous, To: status, Reference: r.PaymentRef, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// Clone copies the reservation without pending events.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.EventRecorder = events.EventRecorder{}
	if r.Archival != nil {
		a := *r.Archival
		c.Archival = &a
	}
	return &c
}
