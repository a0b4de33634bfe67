package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

var now = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func march(start, end int) daterange.DateRange {
	return daterange.DateRange{Start: daterange.On(2026, 3, start), End: daterange.On(2026, 3, end)}
}

func entry(id string, r daterange.DateRange) Entry {
	return Entry{ID: id, Range: r, Kind: KindReservation}
}

func TestIsBlockedCountsSharedEndpoint(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))

	assert.True(t, l.IsBlocked(march(10, 15)))
	assert.False(t, l.IsBlocked(march(11, 15)))
}

func TestInsertDoesNotCheckOverlap(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))
	require.NoError(t, l.Insert(entry("r2", march(5, 12)), now))
	assert.Len(t, l.Entries, 2)

	assert.ErrorIs(t, l.Insert(entry("r2", march(20, 22)), now), ErrDuplicateEntry)
}

func TestOccupyRejectsOverlap(t *testing.T) {
	l := NewLedger(units.Neubau)
	require.NoError(t, l.Occupy(entry("r1", march(1, 10)), now))
	l.ClearEvents()

	assert.ErrorIs(t, l.Occupy(entry("r2", march(10, 12)), now), ErrConflict)
	require.Len(t, l.PendingEvents(), 1)
	assert.IsType(t, OverbookingPrevented{}, l.PendingEvents()[0])
}

func TestReleaseAndRestore(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))

	require.NoError(t, l.Release("r1", now))
	assert.False(t, l.IsBlocked(march(1, 10)))
	got, ok := l.Find("r1")
	require.True(t, ok)
	assert.Equal(t, StatusArchived, got.Status)

	require.NoError(t, l.Restore("r1", now))
	assert.True(t, l.IsBlocked(march(1, 10)))

	assert.ErrorIs(t, l.Release("missing", now), ErrEntryNotFound)
	assert.ErrorIs(t, l.Restore("missing", now), ErrEntryNotFound)
}

func TestRestoreFailsWhenSlotWasRetaken(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))
	require.NoError(t, l.Release("r1", now))
	require.NoError(t, l.Occupy(entry("r2", march(8, 12)), now))

	assert.ErrorIs(t, l.CanRestore("r1"), ErrConflict)
	assert.ErrorIs(t, l.Restore("r1", now), ErrConflict)
	got, _ := l.Find("r1")
	assert.Equal(t, StatusArchived, got.Status)
}

func TestRemove(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))

	removed, err := l.Remove("r1", now)
	require.NoError(t, err)
	assert.Equal(t, "r1", removed.ID)
	assert.Empty(t, l.Entries)

	_, err = l.Remove("r1", now)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestNextFreeDateMergesUnsortedOverlaps(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("late", march(5, 10)), now))
	require.NoError(t, l.Insert(entry("early", march(3, 7)), now))

	assert.Equal(t, daterange.On(2026, 3, 11), l.NextFreeDate(march(1, 2)))
}

func TestNextFreeDateSkipsArchivedAndPastEntries(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("past", march(1, 2)), now))
	require.NoError(t, l.Insert(entry("gone", march(6, 9)), now))
	require.NoError(t, l.Release("gone", now))
	require.NoError(t, l.Insert(entry("next", march(12, 14)), now))

	assert.Equal(t, daterange.On(2026, 3, 6), l.NextFreeDate(march(3, 5)))
	assert.Equal(t, daterange.On(2026, 3, 15), l.NextFreeDate(march(3, 11)))
}

func TestCloneIsIndependent(t *testing.T) {
	l := NewLedger(units.Hackerberg)
	require.NoError(t, l.Insert(entry("r1", march(1, 10)), now))

	staged := l.Clone()
	require.NoError(t, staged.Release("r1", now))

	assert.True(t, l.IsBlocked(march(1, 10)))
	assert.False(t, staged.IsBlocked(march(1, 10)))
	assert.Len(t, staged.PendingEvents(), 1)
}
