package sql

import (
	"time"

	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

// ledgerRow carries the optimistic version of a unit's ledger. Entries live
// in their own table.
type ledgerRow struct {
	Unit      string    `gorm:"primaryKey;size:32"`
	Version   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ledgerRow) TableName() string { return "ledgers" }

// Dates are ISO strings; they compare lexically.
type entryRow struct {
	Unit      string `gorm:"primaryKey;size:32"`
	ID        string `gorm:"primaryKey;size:64"`
	Booked    string `gorm:"size:32"`
	StartDate string `gorm:"size:10;not null;index"`
	EndDate   string `gorm:"size:10;not null"`
	Kind      string `gorm:"size:16;not null"`
	Status    string `gorm:"size:16;not null"`
	Reason    string
	CreatedBy string    `gorm:"size:128"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
}

func (entryRow) TableName() string { return "ledger_entries" }

func newEntryRows(l *domainavailability.Ledger) []entryRow {
	rows := make([]entryRow, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, entryRow{
			Unit:      string(l.Unit),
			ID:        e.ID,
			Booked:    string(e.Booked),
			StartDate: daterange.Format(e.Range.Start),
			EndDate:   daterange.Format(e.Range.End),
			Kind:      string(e.Kind),
			Status:    string(e.Status),
			Reason:    e.Reason,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt.UTC(),
		})
	}
	return rows
}

func parseRange(start, end string) (daterange.DateRange, error) {
	s, err := daterange.ParseDate(start)
	if err != nil {
		return daterange.DateRange{}, err
	}
	e, err := daterange.ParseDate(end)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.DateRange{Start: s, End: e}, nil
}

func (r entryRow) toEntry() (domainavailability.Entry, error) {
	rng, err := parseRange(r.StartDate, r.EndDate)
	if err != nil {
		return domainavailability.Entry{}, err
	}
	return domainavailability.Entry{
		ID:        r.ID,
		Unit:      units.ID(r.Unit),
		Booked:    units.ID(r.Booked),
		Range:     rng,
		Kind:      domainavailability.EntryKind(r.Kind),
		Status:    domainavailability.EntryStatus(r.Status),
		Reason:    r.Reason,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

// reservationRow flattens guest and price; amounts are cents.
type reservationRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	GuestName    string `gorm:"not null"`
	GuestEmail   string `gorm:"not null"`
	GuestPhone   string `gorm:"not null"`
	GuestCompany string `gorm:"not null"`
	GuestStreet  string `gorm:"not null"`
	GuestZip     string `gorm:"size:16;not null"`
	GuestCity    string `gorm:"not null"`
	Unit         string `gorm:"size:32;not null;index:idx_reservation_unit_start"`
	StartDate    string `gorm:"size:10;not null;index:idx_reservation_unit_start"`
	EndDate      string `gorm:"size:10;not null"`
	Party        int    `gorm:"not null"`

	Currency           string `gorm:"size:3;not null"`
	Nights             int    `gorm:"not null"`
	Nightly            int64  `gorm:"not null"`
	CleaningFee        int64  `gorm:"not null"`
	Subtotal           int64  `gorm:"not null"`
	DiscountApplied    bool   `gorm:"not null"`
	DiscountRateBP     int64  `gorm:"column:discount_rate_bp;not null"`
	Discount           int64  `gorm:"not null"`
	DiscountedSubtotal int64  `gorm:"not null"`
	TaxRateBP          int64  `gorm:"column:tax_rate_bp;not null"`
	Tax                int64  `gorm:"not null"`
	Total              int64  `gorm:"not null"`

	PaymentStatus string `gorm:"size:16;not null"`
	PaymentRef    string `gorm:"size:128"`
	Status        string `gorm:"size:16;not null;index"`
	Archived      bool   `gorm:"not null;index"`
	ArchivedAt    *time.Time
	ArchivedBy    string    `gorm:"size:128"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime:false"`
	Version       int64     `gorm:"not null"`
}

func (reservationRow) TableName() string { return "reservations" }

func newReservationRow(r *domainreservation.Reservation) reservationRow {
	p := r.Price
	row := reservationRow{
		ID:                 string(r.ID),
		GuestName:          r.Guest.Name,
		GuestEmail:         r.Guest.Email,
		GuestPhone:         r.Guest.Phone,
		GuestCompany:       r.Guest.Company,
		GuestStreet:        r.Guest.Street,
		GuestZip:           r.Guest.Zip,
		GuestCity:          r.Guest.City,
		Unit:               string(r.Unit),
		StartDate:          daterange.Format(r.Range.Start),
		EndDate:            daterange.Format(r.Range.End),
		Party:              r.Party,
		Currency:           p.Total.Currency,
		Nights:             p.Nights,
		Nightly:            p.Nightly.Amount,
		CleaningFee:        p.CleaningFee.Amount,
		Subtotal:           p.Subtotal.Amount,
		DiscountApplied:    p.DiscountApplied,
		DiscountRateBP:     p.DiscountRateBP,
		Discount:           p.Discount.Amount,
		DiscountedSubtotal: p.DiscountedSubtotal.Amount,
		TaxRateBP:          p.TaxRateBP,
		Tax:                p.Tax.Amount,
		Total:              p.Total.Amount,
		PaymentStatus:      string(r.PaymentStatus),
		PaymentRef:         r.PaymentRef,
		Status:             string(r.Status),
		Archived:           r.Archived(),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
		Version:            r.Version,
	}
	if r.Archival != nil {
		at := r.Archival.At.UTC()
		row.ArchivedAt = &at
		row.ArchivedBy = r.Archival.By
	}
	return row
}

func (r reservationRow) toAggregate() (*domainreservation.Reservation, error) {
	rng, err := parseRange(r.StartDate, r.EndDate)
	if err != nil {
		return nil, err
	}
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: r.Currency} }
	res := &domainreservation.Reservation{
		ID: domainreservation.ID(r.ID),
		Guest: domainreservation.Guest{
			Name:    r.GuestName,
			Email:   r.GuestEmail,
			Phone:   r.GuestPhone,
			Company: r.GuestCompany,
			Street:  r.GuestStreet,
			Zip:     r.GuestZip,
			City:    r.GuestCity,
		},
		Unit:  units.ID(r.Unit),
		Range: rng,
		Party: r.Party,
		Price: pricing.Breakdown{
			Unit:               units.ID(r.Unit),
			Party:              r.Party,
			Nights:             r.Nights,
			Nightly:            m(r.Nightly),
			CleaningFee:        m(r.CleaningFee),
			Subtotal:           m(r.Subtotal),
			DiscountApplied:    r.DiscountApplied,
			DiscountRateBP:     r.DiscountRateBP,
			Discount:           m(r.Discount),
			DiscountedSubtotal: m(r.DiscountedSubtotal),
			TaxRateBP:          r.TaxRateBP,
			Tax:                m(r.Tax),
			Total:              m(r.Total),
		},
		PaymentStatus: domainreservation.PaymentStatus(r.PaymentStatus),
		PaymentRef:    r.PaymentRef,
		Status:        domainreservation.Status(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		Version:       r.Version,
	}
	if r.Archived {
		a := &domainreservation.Archive{By: r.ArchivedBy}
		if r.ArchivedAt != nil {
			a.At = r.ArchivedAt.UTC()
		}
		res.Archival = a
	}
	return res, nil
}

type outboxRow struct {
	ID            string            `gorm:"primaryKey;size:64"`
	Name          string            `gorm:"size:128;not null"`
	Payload       []byte            `gorm:"not null"`
	OccurredAt    time.Time         `gorm:"not null;index"`
	Aggregate     string            `gorm:"size:64"`
	Headers       map[string]string `gorm:"serializer:json"`
	State         string            `gorm:"size:16;not null;index:idx_outbox_due"`
	Attempts      int               `gorm:"not null"`
	NextAttemptAt time.Time         `gorm:"not null;index:idx_outbox_due"`
	ClaimedBy     string            `gorm:"size:64"`
	ClaimedAt     *time.Time
	SentAt        *time.Time
	LastError     string
	CreatedAt     time.Time `gorm:"not null"`
}

func (outboxRow) TableName() string { return "outbox_events" }

type idempotencyRow struct {
	Key         string    `gorm:"column:idem_key;primaryKey;size:128"`
	Command     string    `gorm:"size:64;not null"`
	Fingerprint string    `gorm:"size:128"`
	Payload     []byte    `gorm:"not null"`
	OccurredAt  time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (idempotencyRow) TableName() string { return "idempotency_keys" }

type inboxRow struct {
	EventID    string    `gorm:"primaryKey;size:64"`
	Consumer   string    `gorm:"primaryKey;size:64"`
	ReceivedAt time.Time `gorm:"not null"`
}

func (inboxRow) TableName() string { return "inbox_events" }
