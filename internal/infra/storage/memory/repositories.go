package memory

import (
	"context"
	"sort"

	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/units"
)

type ledgerRepository struct {
	unit *Unit
}

// Ledger returns a private copy. A unit that was never booked yields an empty ledger.
func (r *ledgerRepository) Ledger(ctx context.Context, id units.ID) (*domainavailability.Ledger, error) {
	if r.unit.done {
		return nil, ErrUnitClosed
	}
	if staged, ok := r.unit.ledgers[id]; ok {
		return staged.Clone(), nil
	}
	if committed, ok := r.unit.store.ledgers[id]; ok {
		return committed.Clone(), nil
	}
	return domainavailability.NewLedger(id), nil
}

func (r *ledgerRepository) Save(ctx context.Context, ledger *domainavailability.Ledger) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	r.unit.ledgers[ledger.Unit] = ledger.Clone()
	return nil
}

type reservationRepository struct {
	unit *Unit
}

func (r *reservationRepository) ByID(ctx context.Context, id domainreservation.ID) (*domainreservation.Reservation, error) {
	if r.unit.done {
		return nil, ErrUnitClosed
	}
	res, ok := r.lookup(id)
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	return res.Clone(), nil
}

func (r *reservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	delete(r.unit.deleted, res.ID)
	r.unit.reservations[res.ID] = res.Clone()
	return nil
}

func (r *reservationRepository) Delete(ctx context.Context, id domainreservation.ID) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if _, ok := r.lookup(id); !ok {
		return domainreservation.ErrNotFound
	}
	delete(r.unit.reservations, id)
	r.unit.deleted[id] = true
	return nil
}

// List merges committed and staged reservations, newest arrival last.
func (r *reservationRepository) List(ctx context.Context, filter domainreservation.Filter) ([]*domainreservation.Reservation, error) {
	if r.unit.done {
		return nil, ErrUnitClosed
	}
	ids := make(map[domainreservation.ID]struct{}, len(r.unit.store.reservations)+len(r.unit.reservations))
	for id := range r.unit.store.reservations {
		ids[id] = struct{}{}
	}
	for id := range r.unit.reservations {
		ids[id] = struct{}{}
	}
	out := make([]*domainreservation.Reservation, 0, len(ids))
	for id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, ok := r.lookup(id)
		if !ok || !filter.Match(res) {
			continue
		}
		out = append(out, res.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out, nil
}

func (r *reservationRepository) lookup(id domainreservation.ID) (*domainreservation.Reservation, bool) {
	if r.unit.deleted[id] {
		return nil, false
	}
	if staged, ok := r.unit.reservations[id]; ok {
		return staged, true
	}
	res, ok := r.unit.store.reservations[id]
	return res, ok
}

var _ domainavailability.Repository = (*ledgerRepository)(nil)
var _ domainreservation.Repository = (*reservationRepository)(nil)
