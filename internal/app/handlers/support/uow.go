package support

import (
	"context"
	"errors"

	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/units"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// InUnit runs fn inside the unit already bound to ctx, or inside a fresh
// one that is committed when fn succeeds.
func InUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

// LoadLedgers fetches the ledgers of the given physical units. A unit that
// was never booked gets an empty ledger.
func LoadLedgers(ctx context.Context, repo domainavailability.Repository, ids []units.ID) (domainavailability.LedgerSet, error) {
	set := make(domainavailability.LedgerSet, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		ledger, err := repo.Ledger(ctx, id)
		if err != nil {
			if !errors.Is(err, domainavailability.ErrEntryNotFound) {
				return nil, err
			}
			ledger = domainavailability.NewLedger(id)
		}
		set[id] = ledger
	}
	return set, nil
}

// SaveLedgers persists every ledger in the order given.
func SaveLedgers(ctx context.Context, repo domainavailability.Repository, set domainavailability.LedgerSet, ids []units.ID) error {
	for _, id := range ids {
		ledger, ok := set[id]
		if !ok {
			continue
		}
		if err := repo.Save(ctx, ledger); err != nil {
			return err
		}
	}
	return nil
}
