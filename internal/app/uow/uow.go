package uow

import (
	"context"

	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// commit-time availability re-check and the ledger insert must share one unit.
type UnitOfWork interface {
	Ledgers() domainavailability.Repository
	Reservations() domainreservation.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (sessions,
// transactions) through the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
