package dto

import (
	"time"

	"monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
)

type Guest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Street  string `json:"street"`
	Zip     string `json:"zip"`
	City    string `json:"city"`
}

type Reservation struct {
	ID            string         `json:"id"`
	Unit          string         `json:"unit"`
	Start         string         `json:"start"`
	End           string         `json:"end"`
	Nights        int            `json:"nights"`
	Party         int            `json:"party"`
	Guest         Guest          `json:"guest"`
	Price         PriceBreakdown `json:"price"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	PaymentRef    string         `json:"payment_ref,omitempty"`
	Archived      bool           `json:"archived"`
	ArchivedAt    *time.Time     `json:"archived_at,omitempty"`
	ArchivedBy    string         `json:"archived_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}

func MapGuest(g reservation.Guest) Guest {
	return Guest{Name: g.Name, Email: g.Email, Phone: g.Phone, Company: g.Company, Street: g.Street, Zip: g.Zip, City: g.City}
}

func MapReservation(r *reservation.Reservation) Reservation {
	out := Reservation{
		ID:            string(r.ID),
		Unit:          string(r.Unit),
		Start:         daterange.Format(r.Range.Start),
		End:           daterange.Format(r.Range.End),
		Nights:        r.Range.Nights(),
		Party:         r.Party,
		Guest:         MapGuest(r.Guest),
		Price:         MapPrice(r.Price),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		PaymentRef:    r.PaymentRef,
		Archived:      r.Archived(),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Archival != nil {
		at := r.Archival.At
		out.ArchivedAt = &at
		out.ArchivedBy = r.Archival.By
	}
	return out
}

func MapReservations(items []*reservation.Reservation) ReservationCollection {
	out := ReservationCollection{Items: make([]Reservation, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, MapReservation(r))
	}
	return out
}

// ReservationSnapshot is the audit record written before a purge.
type ReservationSnapshot struct {
	Reservation Reservation `json:"reservation"`
	PurgedAt    time.Time   `json:"purged_at"`
	PurgedBy    string      `json:"purged_by"`
}

type Statistics struct {
	TotalReservations     int           `json:"total_reservations"`
	ConfirmedReservations int           `json:"confirmed_reservations"`
	CancelledReservations int           `json:"cancelled_reservations"`
	CompletedReservations int           `json:"completed_reservations"`
	ArchivedReservations  int           `json:"archived_reservations"`
	PendingPayments       int           `json:"pending_payments"`
	Revenue               MoneyDTO      `json:"revenue"`
	Recent                []Reservation `json:"recent"`
}
