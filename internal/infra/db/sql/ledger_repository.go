package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/units"
)

// LedgerRepository stores one version row per physical unit plus its
// entries. Saves are guarded by the version.
type LedgerRepository struct {
	unit *Unit
}

func (r *LedgerRepository) Ledger(ctx context.Context, unit units.ID) (*domainavailability.Ledger, error) {
	db := r.unit.db(ctx)
	l := domainavailability.NewLedger(unit)
	var head ledgerRow
	err := db.Where("unit = ?", string(unit)).Take(&head).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return l, nil
	case err != nil:
		return nil, translate(err)
	}
	l.Version = head.Version

	var rows []entryRow
	if err := db.Where("unit = ?", string(unit)).Order("start_date, id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		e, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, e)
	}
	return l, nil
}

func (r *LedgerRepository) Save(ctx context.Context, l *domainavailability.Ledger) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	db := r.unit.db(ctx)
	next := l.Version + 1
	now := time.Now().UTC()
	var res *gorm.DB
	if l.Version == 0 {
		res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ledgerRow{Unit: string(l.Unit), Version: next, UpdatedAt: now})
	} else {
		res = db.Model(&ledgerRow{}).
			Where("unit = ? AND version = ?", string(l.Unit), l.Version).
			Updates(map[string]any{"version": next, "updated_at": now})
	}
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	if err := db.Where("unit = ?", string(l.Unit)).Delete(&entryRow{}).Error; err != nil {
		return translate(err)
	}
	if rows := newEntryRows(l); len(rows) > 0 {
		if err := db.Create(&rows).Error; err != nil {
			return translate(err)
		}
	}
	l.Version = next
	return nil
}

var _ domainavailability.Repository = (*LedgerRepository)(nil)
