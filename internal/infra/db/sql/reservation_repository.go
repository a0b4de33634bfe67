package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
)

type ReservationRepository struct {
	unit *Unit
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ID) (*domainreservation.Reservation, error) {
	var row reservationRow
	if err := r.unit.db(ctx).Where("id = ?", string(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, translate(err)
	}
	return row.toAggregate()
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	db := r.unit.db(ctx)
	row := newReservationRow(res)
	row.Version = res.Version + 1
	var result *gorm.DB
	if res.Version == 0 {
		result = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	} else {
		result = db.Model(&reservationRow{}).
			Where("id = ? AND version = ?", row.ID, res.Version).
			Select("*").
			Updates(&row)
	}
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = row.Version
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id domainreservation.ID) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	res := r.unit.db(ctx).Where("id = ?", string(id)).Delete(&reservationRow{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domainreservation.ErrNotFound
	}
	return nil
}

// List relies on ISO dates comparing lexically.
func (r *ReservationRepository) List(ctx context.Context, f domainreservation.Filter) ([]*domainreservation.Reservation, error) {
	q := r.unit.db(ctx).Model(&reservationRow{})
	if f.Archived != nil {
		q = q.Where("archived = ?", *f.Archived)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Unit != "" {
		q = q.Where("unit = ?", string(f.Unit))
	}
	if f.Window != nil {
		q = q.Where("start_date <= ? AND end_date >= ?", daterange.Format(f.Window.End), daterange.Format(f.Window.Start))
	}
	var rows []reservationRow
	if err := q.Order("start_date, id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*domainreservation.Reservation, 0, len(rows))
	for _, row := range rows {
		res, err := row.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
