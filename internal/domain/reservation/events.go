package reservation

import (
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

type Committed struct {
	ReservationID ID
	Unit          units.ID
	Range         daterange.DateRange
	Party         int
	GuestName     string
	Total         money.Money
	PaymentStatus PaymentStatus
	At            time.Time
}

func (e Committed) EventName() string     { return "reservation.committed" }
func (e Committed) AggregateID() string   { return string(e.ReservationID) }
func (e Committed) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	ReservationID ID
	At            time.Time
}

func (e Cancelled) EventName() string     { return "reservation.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.ReservationID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Archived struct {
	ReservationID ID
	Unit          units.ID
	Range         daterange.DateRange
	By            string
	At            time.Time
}

func (e Archived) EventName() string     { return "reservation.archived" }
func (e Archived) AggregateID() string   { return string(e.ReservationID) }
func (e Archived) OccurredAt() time.Time { return e.At }

type Restored struct {
	ReservationID ID
	Unit          units.ID
	Range         daterange.DateRange
	At            time.Time
}

func (e Restored) EventName() string     { return "reservation.restored" }
func (e Restored) AggregateID() string   { return string(e.ReservationID) }
func (e Restored) OccurredAt() time.Time { return e.At }

type Purged struct {
	ReservationID ID
	Unit          units.ID
	Range         daterange.DateRange
	At            time.Time
}

func (e Purged) EventName() string     { return "reservation.purged" }
func (e Purged) AggregateID() string   { return string(e.ReservationID) }
func (e Purged) OccurredAt() time.Time { return e.At }

type Completed struct {
	ReservationID ID
	At            time.Time
}

func (e Completed) EventName() string     { return "reservation.completed" }
func (e Completed) AggregateID() string   { return string(e.ReservationID) }
func (e Completed) OccurredAt() time.Time { return e.At }

type PaymentRecorded struct {
	ReservationID ID
	From          PaymentStatus
	To            PaymentStatus
	Reference     string
	At            time.Time
}

func (e PaymentRecorded) EventName() string     { return "reservation.payment_recorded" }
func (e PaymentRecorded) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentRecorded) OccurredAt() time.Time { return e.At }
