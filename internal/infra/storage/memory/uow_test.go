package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

var now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func march(start, end int) daterange.DateRange {
	return daterange.DateRange{Start: daterange.On(2026, 3, start), End: daterange.On(2026, 3, end)}
}

func TestCommitPublishesStagedLedger(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	ledger, err := unit.Ledgers().Ledger(ctx, units.Hackerberg)
	require.NoError(t, err)
	require.NoError(t, ledger.Insert(domainavailability.Entry{ID: "r1", Range: march(1, 5)}, now))
	require.NoError(t, unit.Ledgers().Save(ctx, ledger))
	require.NoError(t, unit.Commit(ctx))

	reader, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer reader.Rollback(ctx)
	got, err := reader.Ledgers().Ledger(ctx, units.Hackerberg)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked(march(5, 6)))
	assert.Equal(t, int64(1), got.Version)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	ledger, _ := unit.Ledgers().Ledger(ctx, units.Neubau)
	require.NoError(t, ledger.Insert(domainavailability.Entry{ID: "r1", Range: march(1, 5)}, now))
	require.NoError(t, unit.Ledgers().Save(ctx, ledger))
	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, unit.Rollback(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)

	reader, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer reader.Rollback(ctx)
	got, _ := reader.Ledgers().Ledger(ctx, units.Neubau)
	assert.Empty(t, got.Entries)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	assert.ErrorIs(t, unit.Ledgers().Save(ctx, domainavailability.NewLedger(units.Neubau)), ErrReadOnly)
}

func TestWritersAreSerialised(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}
	first, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	started := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		close(started)
		second, err := factory.Begin(ctx, uow.TxOptions{})
		if err == nil {
			close(acquired)
			_ = second.Rollback(ctx)
		}
	}()
	<-started

	select {
	case <-acquired:
		t.Fatal("second writer entered while the first was open")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, first.Commit(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second writer never started")
	}
}

func TestOutboxReleasesRecordsOnlyAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := Factory{Store: store}
	var relayed []string
	box := NewOutbox(store, func(_ context.Context, rec appoutbox.EventRecord) error {
		relayed = append(relayed, rec.ID)
		return nil
	})

	rolledBack, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, box.Add(uow.Bind(ctx, rolledBack), appoutbox.EventRecord{ID: "dropped"}))
	require.NoError(t, rolledBack.Rollback(ctx))

	committed, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, box.Add(uow.Bind(ctx, committed), appoutbox.EventRecord{ID: "kept"}))
	assert.Equal(t, 0, box.Pending())
	require.NoError(t, committed.Commit(ctx))

	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, []string{"kept"}, relayed)
	assert.Equal(t, 0, box.Pending())
}

func TestOutboxRequeuesFailedRelays(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	fail := true
	box := NewOutbox(store, func(context.Context, appoutbox.EventRecord) error {
		if fail {
			return errors.New("router down")
		}
		return nil
	})
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1"}))

	assert.Error(t, box.Flush(ctx))
	assert.Equal(t, 1, box.Pending())

	fail = false
	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, 0, box.Pending())
}
