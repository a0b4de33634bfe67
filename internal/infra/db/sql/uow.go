package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
)

// ErrConcurrentUpdate is a Conflict: another transaction changed the same
// aggregate first or the database aborted a serializable transaction.
var ErrConcurrentUpdate = fmt.Errorf("%w: sql: concurrent update detected", domainavailability.ErrConflict)

var (
	ErrUnitOfWorkNotConfigured = errors.New("sql: unit of work factory missing database")
	ErrReadOnly                = errors.New("sql: unit of work is read-only")
)

// Factory runs every unit of work in its own database transaction. Postgres
// transactions are serializable.
type Factory struct {
	DB *gorm.DB
}

func NewFactory(db *gorm.DB) Factory {
	return Factory{DB: db}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := &stdsql.TxOptions{}
	if f.DB.Dialector.Name() == DialectPostgres {
		txOpts.Isolation = stdsql.LevelSerializable
		txOpts.ReadOnly = opts.ReadOnly
	}
	tx := f.DB.WithContext(ctx).Begin(txOpts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	tx       *gorm.DB
	readOnly bool
	ended    bool
}

func (u *Unit) Ledgers() domainavailability.Repository {
	return &LedgerRepository{unit: u}
}

func (u *Unit) Reservations() domainreservation.Repository {
	return &ReservationRepository{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.ended {
		return nil
	}
	u.ended = true
	return translate(u.tx.Commit().Error)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.ended {
		return nil
	}
	u.ended = true
	err := u.tx.Rollback().Error
	if errors.Is(err, stdsql.ErrTxDone) {
		return nil
	}
	return err
}

func (u *Unit) db(ctx context.Context) *gorm.DB {
	return u.tx.WithContext(ctx)
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

// unitFrom returns the transaction bound to ctx, or db when none is.
func unitFrom(ctx context.Context, db *gorm.DB) *gorm.DB {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok {
			return u.db(ctx)
		}
	}
	return db.WithContext(ctx)
}

// translate maps Postgres serialization failures onto ErrConcurrentUpdate.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return ErrConcurrentUpdate
	}
	return err
}

var _ uow.UoWFactory = Factory{}
