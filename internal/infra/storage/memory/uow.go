package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/units"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnly             = errors.New("memory: write inside read-only unit of work")
)

// Factory serialises writers on the store. A write unit holds the store lock
// from Begin until Commit or Rollback, which makes the availability re-check
// and the ledger insert atomic. Read-only units share the lock.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		f.Store.mu.RLock()
	} else {
		f.Store.mu.Lock()
	}
	u := &Unit{
		store:        f.Store,
		readOnly:     opts.ReadOnly,
		ledgers:      make(map[units.ID]*domainavailability.Ledger),
		reservations: make(map[domainreservation.ID]*domainreservation.Reservation),
		deleted:      make(map[domainreservation.ID]bool),
	}
	u.ledgerRepo = &ledgerRepository{unit: u}
	u.reservationRepo = &reservationRepository{unit: u}
	return u, nil
}

// Unit is a staged uow.UnitOfWork backed by the in-memory store.
type Unit struct {
	store    *Store
	readOnly bool

	once sync.Once
	done bool

	ledgers      map[units.ID]*domainavailability.Ledger
	reservations map[domainreservation.ID]*domainreservation.Reservation
	deleted      map[domainreservation.ID]bool
	records      []appoutbox.EventRecord

	ledgerRepo      *ledgerRepository
	reservationRepo *reservationRepository
}

func (u *Unit) Ledgers() domainavailability.Repository {
	return u.ledgerRepo
}

func (u *Unit) Reservations() domainreservation.Repository {
	return u.reservationRepo
}

// Commit applies the staged writes and queues outbox records for Flush.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	if !u.readOnly {
		for id, ledger := range u.ledgers {
			ledger.Version++
			u.store.ledgers[id] = ledger
		}
		for id, res := range u.reservations {
			res.Version++
			u.store.reservations[id] = res
		}
		for id := range u.deleted {
			delete(u.store.reservations, id)
		}
		u.store.enqueue(u.records)
	}
	u.release()
	return nil
}

// Rollback discards staged writes. Calling it after Commit is a no-op.
func (u *Unit) Rollback(ctx context.Context) error {
	u.release()
	return nil
}

func (u *Unit) release() {
	u.once.Do(func() {
		u.done = true
		u.ledgers = nil
		u.reservations = nil
		u.deleted = nil
		u.records = nil
		if u.readOnly {
			u.store.mu.RUnlock()
		} else {
			u.store.mu.Unlock()
		}
	})
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
