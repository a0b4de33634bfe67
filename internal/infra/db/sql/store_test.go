package sql

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	reservationhandlers "monteur/internal/app/handlers/reservation"
	"monteur/internal/app/middleware"
	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainpricing "monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
	"monteur/internal/infra/clock"
)

var now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Config{Dialect: DialectSQLite, DSN: "file:" + name + "?mode=memory&cache=shared"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func march(start, end int) daterange.DateRange {
	return daterange.DateRange{Start: daterange.On(2026, 3, start), End: daterange.On(2026, 3, end)}
}

func inUnit(t *testing.T, f Factory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	t.Helper()
	ctx := context.Background()
	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	ctx = uow.Bind(ctx, unit)
	if err := fn(ctx, unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

func TestLedgerRoundTripAndVersionGuard(t *testing.T) {
	f := NewFactory(newTestDB(t))

	var stale *domainavailability.Ledger
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		l, err := unit.Ledgers().Ledger(ctx, units.Hackerberg)
		require.NoError(t, err)
		assert.Zero(t, l.Version)
		require.NoError(t, l.Insert(domainavailability.Entry{ID: "r1", Booked: units.Hackerberg, Range: march(1, 10), Kind: domainavailability.KindReservation, CreatedAt: now}, now))
		require.NoError(t, unit.Ledgers().Save(ctx, l))
		stale = l.Clone()
		return nil
	}))

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		l, err := unit.Ledgers().Ledger(ctx, units.Hackerberg)
		require.NoError(t, err)
		assert.Equal(t, int64(1), l.Version)
		got, ok := l.Find("r1")
		require.True(t, ok)
		assert.Equal(t, march(1, 10), got.Range)
		assert.Equal(t, domainavailability.StatusActive, got.Status)
		require.NoError(t, l.Release("r1", now))
		return unit.Ledgers().Save(ctx, l)
	}))

	err := inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		require.NoError(t, stale.Insert(domainavailability.Entry{ID: "r2", Range: march(20, 22), Kind: domainavailability.KindManualBlock}, now))
		return unit.Ledgers().Save(ctx, stale)
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.ErrorIs(t, err, domainavailability.ErrConflict)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	f := NewFactory(newTestDB(t))
	ctx := context.Background()
	unit, err := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	assert.ErrorIs(t, unit.Ledgers().Save(ctx, domainavailability.NewLedger(units.Neubau)), ErrReadOnly)
	assert.ErrorIs(t, unit.Reservations().Delete(ctx, "x"), ErrReadOnly)
}

func newReservation(t *testing.T, id string, unit units.ID, stay daterange.DateRange, party int) *domainreservation.Reservation {
	t.Helper()
	engine, err := domainpricing.NewEngine(units.DefaultCatalog(), domainpricing.DefaultPolicy())
	require.NoError(t, err)
	price, err := engine.Price(unit, party, stay, now)
	require.NoError(t, err)
	r, err := domainreservation.New(domainreservation.CreateParams{
		ID:    domainreservation.ID(id),
		Guest: domainreservation.Guest{Name: "Erika", Email: "erika@example.org", Phone: "1", Company: "Montage GmbH", Street: "Hauptstraße 1", Zip: "80331", City: "München"},
		Unit:  unit, Range: stay, Party: party, Price: price, PaymentRef: "pi_1", CreatedAt: now,
	})
	require.NoError(t, err)
	return r
}

func TestReservationRepository(t *testing.T) {
	f := NewFactory(newTestDB(t))
	first := newReservation(t, "res-1", units.Hackerberg, march(10, 12), 2)
	second := newReservation(t, "res-2", units.Neubau, march(1, 5), 6)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		require.NoError(t, unit.Reservations().Save(ctx, first))
		return unit.Reservations().Save(ctx, second)
	}))
	assert.Equal(t, int64(1), first.Version)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Reservations().ByID(ctx, "res-1")
		require.NoError(t, err)
		assert.Equal(t, first.Price, got.Price)
		assert.Equal(t, first.Guest, got.Guest)
		require.NoError(t, got.Archive("admin", now))
		return unit.Reservations().Save(ctx, got)
	}))

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		all, err := unit.Reservations().List(ctx, domainreservation.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, domainreservation.ID("res-2"), all[0].ID)
		require.NotNil(t, all[1].Archival)
		assert.Equal(t, "admin", all[1].Archival.By)

		active := false
		window := march(4, 8)
		filtered, err := unit.Reservations().List(ctx, domainreservation.Filter{Archived: &active, Window: &window})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, domainreservation.ID("res-2"), filtered[0].ID)

		require.NoError(t, unit.Reservations().Delete(ctx, "res-1"))
		_, err = unit.Reservations().ByID(ctx, "res-1")
		assert.ErrorIs(t, err, domainreservation.ErrNotFound)
		assert.ErrorIs(t, unit.Reservations().Delete(ctx, "res-1"), domainreservation.ErrNotFound)
		return nil
	}))

	stale := second.Clone()
	stale.Version = 0
	err := inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Reservations().Save(ctx, stale)
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestOutboxJoinsTheUnitOfWork(t *testing.T) {
	db := newTestDB(t)
	f := NewFactory(db)
	box := NewOutboxStore(db)
	box.now = func() time.Time { return now }
	ctx := context.Background()

	err := inUnit(t, f, func(ctx context.Context, _ uow.UnitOfWork) error {
		require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-0", Name: "reservation.committed", Payload: []byte(`{}`), OccurredAt: now}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, _ uow.UnitOfWork) error {
		return box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "reservation.committed", Payload: []byte(`{"a":1}`), OccurredAt: now, Aggregate: "res-1", Headers: map[string]string{"traceparent": "tp"}})
	}))

	msg, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "evt-1", msg.ID)
	assert.Equal(t, "tp", msg.Headers["traceparent"])

	again, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, box.MarkFailed(ctx, "evt-1", now.Add(time.Minute), "broker down"))
	due, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, due)

	box.now = func() time.Time { return now.Add(2 * time.Minute) }
	retried, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, 1, retried.Attempts)
	require.NoError(t, box.MarkSent(ctx, "evt-1"))

	done, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	s := NewIdempotencyStore(newTestDB(t), time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	rec := middleware.IdempotencyRecord{Key: "k1", Command: "reservation.commit", Fingerprint: "fp", Payload: []byte(`{}`), OccurredAt: now}
	require.NoError(t, s.Save(ctx, rec))
	got, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fp", got.Fingerprint)

	rec.Fingerprint = "fp2"
	require.NoError(t, s.Save(ctx, rec))
	got, _, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "fp2", got.Fingerprint)

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInboxStore(t *testing.T) {
	s := NewInboxStore(newTestDB(t), "monteur")
	ctx := context.Background()

	seen, err := s.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = s.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.Forget(ctx, "e1"))
	seen, err = s.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCommitReservationAgainstSQLite(t *testing.T) {
	db := newTestDB(t)
	box := NewOutboxStore(db)
	catalog := units.DefaultCatalog()
	engine, err := domainpricing.NewEngine(catalog, domainpricing.DefaultPolicy())
	require.NoError(t, err)
	h := &reservationhandlers.CommitReservationHandler{
		UoWFactory: NewFactory(db),
		Catalog:    catalog,
		Pricing:    engine,
		Clock:      clock.NewFixed(now),
		Outbox:     box,
	}
	guest := domainreservation.Guest{Name: "Erika", Email: "erika@example.org", Phone: "1", Company: "Montage GmbH", Street: "Hauptstraße 1", Zip: "80331", City: "München"}
	ctx := context.Background()

	res, err := h.Handle(ctx, reservationhandlers.CommitReservationCommand{Unit: "kombi", Start: daterange.On(2026, 3, 1), End: daterange.On(2026, 3, 5), Party: 8, Guest: guest, PaymentRef: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, "kombi", res.Unit)

	_, err = h.Handle(ctx, reservationhandlers.CommitReservationCommand{Unit: "neubau", Start: daterange.On(2026, 3, 5), End: daterange.On(2026, 3, 7), Party: 4, Guest: guest})
	assert.ErrorIs(t, err, domainavailability.ErrConflict)

	msg, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "reservation.committed", msg.Name)
}
