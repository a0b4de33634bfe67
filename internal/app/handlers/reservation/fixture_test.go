package reservation

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"monteur/internal/app/dto"
	"monteur/internal/app/outbox"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainpricing "monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
	"monteur/internal/infra/clock"
	"monteur/internal/infra/storage/memory"
)

type fixture struct {
	factory   memory.Factory
	box       *memory.Outbox
	clock     *clock.Fixed
	commit    *CommitReservationHandler
	lifecycle *LifecycleHandler
	queries   *QueryHandler
	events    []string
	snapshots []dto.ReservationSnapshot
}

type archiverFunc func(ctx context.Context, snapshot dto.ReservationSnapshot) error

func (f archiverFunc) Archive(ctx context.Context, snapshot dto.ReservationSnapshot) error {
	return f(ctx, snapshot)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := units.DefaultCatalog()
	engine, err := domainpricing.NewEngine(catalog, domainpricing.DefaultPolicy())
	require.NoError(t, err)

	f := &fixture{clock: clock.NewFixed(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))}
	store := memory.NewStore()
	f.factory = memory.Factory{Store: store}
	f.box = memory.NewOutbox(store, func(_ context.Context, rec outbox.EventRecord) error {
		f.events = append(f.events, rec.Name)
		return nil
	})
	ids := 0
	f.commit = &CommitReservationHandler{
		UoWFactory: f.factory,
		Catalog:    catalog,
		Pricing:    engine,
		Clock:      f.clock,
		Outbox:     f.box,
		NewID: func() string {
			ids++
			return "res-" + strconv.Itoa(ids)
		},
	}
	f.lifecycle = &LifecycleHandler{
		UoWFactory: f.factory,
		Catalog:    catalog,
		Clock:      f.clock,
		Outbox:     f.box,
		Archiver: archiverFunc(func(_ context.Context, s dto.ReservationSnapshot) error {
			f.snapshots = append(f.snapshots, s)
			return nil
		}),
	}
	f.queries = &QueryHandler{UoWFactory: f.factory}
	return f
}

func guest() domainreservation.Guest {
	return domainreservation.Guest{
		Name:    "Erika Mustermann",
		Email:   "erika@example.org",
		Phone:   "+49 89 123456",
		Company: "Montage GmbH",
		Street:  "Hauptstraße 1",
		Zip:     "80331",
		City:    "München",
	}
}

func commitCmd(unit string, start, end time.Time, party int) CommitReservationCommand {
	return CommitReservationCommand{Unit: unit, Start: start, End: end, Party: party, Guest: guest(), PaymentRef: "pi_1"}
}

// blocked reports whether the committed ledger of a physical unit blocks r.
func (f *fixture) blocked(t *testing.T, unit units.ID, r daterange.DateRange) bool {
	t.Helper()
	ctx := context.Background()
	u, err := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer u.Rollback(ctx)
	ledger, err := u.Ledgers().Ledger(ctx, unit)
	require.NoError(t, err)
	return ledger.IsBlocked(r)
}

func (f *fixture) entry(t *testing.T, unit units.ID, id string) (domainavailability.Entry, bool) {
	t.Helper()
	ctx := context.Background()
	u, err := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer u.Rollback(ctx)
	ledger, err := u.Ledgers().Ledger(ctx, unit)
	require.NoError(t, err)
	return ledger.Find(id)
}

func march(start, end int) daterange.DateRange {
	return daterange.DateRange{Start: daterange.On(2026, 3, start), End: daterange.On(2026, 3, end)}
}
