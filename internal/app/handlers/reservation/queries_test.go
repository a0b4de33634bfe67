package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/domain/shared/daterange"
)

func seed(t *testing.T, f *fixture) []string {
	t.Helper()
	var ids []string
	for _, c := range []struct {
		unit       string
		start, end int
		paid       bool
	}{
		{"neubau", 20, 25, true},
		{"hackerberg", 1, 4, true},
		{"hackerberg", 10, 12, false},
	} {
		cmd := commitCmd(c.unit, march(c.start, c.end).Start, march(c.start, c.end).End, 2)
		if !c.paid {
			cmd.PaymentRef = ""
		}
		res, err := f.commit.Handle(context.Background(), cmd)
		require.NoError(t, err)
		ids = append(ids, res.ID)
		f.clock.Advance(time.Minute)
	}
	return ids
}

func TestListFiltersAndOrdersByArrival(t *testing.T) {
	f := newFixture(t)
	ids := seed(t, f)
	_, err := f.lifecycle.Archive(context.Background(), ArchiveReservationCommand{ReservationID: ids[2], Actor: "admin"})
	require.NoError(t, err)

	all, err := f.queries.List(context.Background(), ListReservationsQuery{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, []string{all.Items[0].ID, all.Items[1].ID, all.Items[2].ID})

	active := false
	list, err := f.queries.List(context.Background(), ListReservationsQuery{Archived: &active, Unit: "hackerberg"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, ids[1], list.Items[0].ID)

	windowed, err := f.queries.List(context.Background(), ListReservationsQuery{From: daterange.On(2026, 3, 12)})
	require.NoError(t, err)
	assert.Len(t, windowed.Items, 2)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	ids := seed(t, f)
	_, err := f.lifecycle.Cancel(context.Background(), CancelReservationCommand{ReservationID: ids[0]})
	require.NoError(t, err)

	stats, err := f.queries.Statistics(context.Background(), StatisticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReservations)
	assert.Equal(t, 2, stats.ConfirmedReservations)
	assert.Equal(t, 1, stats.CancelledReservations)
	assert.Equal(t, 1, stats.PendingPayments)
	// neubau 5 nights: 500 + 90 = 590, +41.30 tax; hackerberg 3 nights: 300 + 90 = 390, +27.30 tax
	assert.Equal(t, "1048.60", stats.Revenue.Display)
	require.Len(t, stats.Recent, 3)
	assert.Equal(t, ids[2], stats.Recent[0].ID)
}
