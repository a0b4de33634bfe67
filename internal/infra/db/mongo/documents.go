package mongo

import (
	"time"

	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/money"
	"monteur/internal/domain/units"
)

// Calendar dates are stored as ISO strings so documents read naturally and
// sort lexically.
type rangeDocument struct {
	Start string `bson:"start"`
	End   string `bson:"end"`
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{Start: daterange.Format(r.Start), End: daterange.Format(r.End)}
}

func (d rangeDocument) toRange() (daterange.DateRange, error) {
	start, err := daterange.ParseDate(d.Start)
	if err != nil {
		return daterange.DateRange{}, err
	}
	end, err := daterange.ParseDate(d.End)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.DateRange{Start: start, End: end}, nil
}

type entryDocument struct {
	ID        string        `bson:"id"`
	Booked    string        `bson:"booked,omitempty"`
	Range     rangeDocument `bson:"range"`
	Kind      string        `bson:"kind"`
	Status    string        `bson:"status"`
	Reason    string        `bson:"reason,omitempty"`
	CreatedBy string        `bson:"created_by,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}

type ledgerDocument struct {
	ID        string          `bson:"_id"`
	Entries   []entryDocument `bson:"entries"`
	Version   int64           `bson:"version"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func newLedgerDocument(l *domainavailability.Ledger) ledgerDocument {
	doc := ledgerDocument{ID: string(l.Unit), Entries: make([]entryDocument, 0, len(l.Entries)), Version: l.Version}
	for _, e := range l.Entries {
		doc.Entries = append(doc.Entries, entryDocument{
			ID:        e.ID,
			Booked:    string(e.Booked),
			Range:     newRangeDocument(e.Range),
			Kind:      string(e.Kind),
			Status:    string(e.Status),
			Reason:    e.Reason,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt.UTC(),
		})
	}
	return doc
}

func (d ledgerDocument) toAggregate() (*domainavailability.Ledger, error) {
	l := domainavailability.NewLedger(units.ID(d.ID))
	l.Version = d.Version
	for _, e := range d.Entries {
		r, err := e.Range.toRange()
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, domainavailability.Entry{
			ID:        e.ID,
			Unit:      l.Unit,
			Booked:    units.ID(e.Booked),
			Range:     r,
			Kind:      domainavailability.EntryKind(e.Kind),
			Status:    domainavailability.EntryStatus(e.Status),
			Reason:    e.Reason,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt.UTC(),
		})
	}
	return l, nil
}

type guestDocument struct {
	Name    string `bson:"name"`
	Email   string `bson:"email"`
	Phone   string `bson:"phone"`
	Company string `bson:"company"`
	Street  string `bson:"street"`
	Zip     string `bson:"zip"`
	City    string `bson:"city"`
}

// priceDocument keeps amounts in cents.
type priceDocument struct {
	Unit               string `bson:"unit"`
	Party              int    `bson:"party"`
	Nights             int    `bson:"nights"`
	Currency           string `bson:"currency"`
	Nightly            int64  `bson:"nightly"`
	CleaningFee        int64  `bson:"cleaning_fee"`
	Subtotal           int64  `bson:"subtotal"`
	DiscountApplied    bool   `bson:"discount_applied"`
	DiscountRateBP     int64  `bson:"discount_rate_bp"`
	Discount           int64  `bson:"discount"`
	DiscountedSubtotal int64  `bson:"discounted_subtotal"`
	TaxRateBP          int64  `bson:"tax_rate_bp"`
	Tax                int64  `bson:"tax"`
	Total              int64  `bson:"total"`
}

func newPriceDocument(b pricing.Breakdown) priceDocument {
	return priceDocument{
		Unit:               string(b.Unit),
		Party:              b.Party,
		Nights:             b.Nights,
		Currency:           b.Total.Currency,
		Nightly:            b.Nightly.Amount,
		CleaningFee:        b.CleaningFee.Amount,
		Subtotal:           b.Subtotal.Amount,
		DiscountApplied:    b.DiscountApplied,
		DiscountRateBP:     b.DiscountRateBP,
		Discount:           b.Discount.Amount,
		DiscountedSubtotal: b.DiscountedSubtotal.Amount,
		TaxRateBP:          b.TaxRateBP,
		Tax:                b.Tax.Amount,
		Total:              b.Total.Amount,
	}
}

func (d priceDocument) toBreakdown() pricing.Breakdown {
	m := func(amount int64) money.Money { return money.Money{Amount: amount, Currency: d.Currency} }
	return pricing.Breakdown{
		Unit:               units.ID(d.Unit),
		Party:              d.Party,
		Nights:             d.Nights,
		Nightly:            m(d.Nightly),
		CleaningFee:        m(d.CleaningFee),
		Subtotal:           m(d.Subtotal),
		DiscountApplied:    d.DiscountApplied,
		DiscountRateBP:     d.DiscountRateBP,
		Discount:           m(d.Discount),
		DiscountedSubtotal: m(d.DiscountedSubtotal),
		TaxRateBP:          d.TaxRateBP,
		Tax:                m(d.Tax),
		Total:              m(d.Total),
	}
}

type reservationDocument struct {
	ID            string        `bson:"_id"`
	Guest         guestDocument `bson:"guest"`
	Unit          string        `bson:"unit"`
	Range         rangeDocument `bson:"range"`
	Party         int           `bson:"party"`
	Price         priceDocument `bson:"price"`
	PaymentStatus string        `bson:"payment_status"`
	PaymentRef    string        `bson:"payment_ref,omitempty"`
	Status        string        `bson:"status"`
	Archived      bool          `bson:"archived"`
	ArchivedAt    *time.Time    `bson:"archived_at,omitempty"`
	ArchivedBy    string        `bson:"archived_by,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

func newReservationDocument(r *domainreservation.Reservation) reservationDocument {
	g := r.Guest
	doc := reservationDocument{
		ID:            string(r.ID),
		Guest:         guestDocument{Name: g.Name, Email: g.Email, Phone: g.Phone, Company: g.Company, Street: g.Street, Zip: g.Zip, City: g.City},
		Unit:          string(r.Unit),
		Range:         newRangeDocument(r.Range),
		Party:         r.Party,
		Price:         newPriceDocument(r.Price),
		PaymentStatus: string(r.PaymentStatus),
		PaymentRef:    r.PaymentRef,
		Status:        string(r.Status),
		Archived:      r.Archived(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		Version:       r.Version,
	}
	if r.Archival != nil {
		at := r.Archival.At.UTC()
		doc.ArchivedAt = &at
		doc.ArchivedBy = r.Archival.By
	}
	return doc
}

func (d reservationDocument) toAggregate() (*domainreservation.Reservation, error) {
	rng, err := d.Range.toRange()
	if err != nil {
		return nil, err
	}
	g := d.Guest
	r := &domainreservation.Reservation{
		ID:            domainreservation.ID(d.ID),
		Guest:         domainreservation.Guest{Name: g.Name, Email: g.Email, Phone: g.Phone, Company: g.Company, Street: g.Street, Zip: g.Zip, City: g.City},
		Unit:          units.ID(d.Unit),
		Range:         rng,
		Party:         d.Party,
		Price:         d.Price.toBreakdown(),
		PaymentStatus: domainreservation.PaymentStatus(d.PaymentStatus),
		PaymentRef:    d.PaymentRef,
		Status:        domainreservation.Status(d.Status),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
	if d.Archived {
		a := &domainreservation.Archive{By: d.ArchivedBy}
		if d.ArchivedAt != nil {
			a.At = d.ArchivedAt.UTC()
		}
		r.Archival = a
	}
	return r, nil
}
