package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monteur/internal/app/uow"
	"monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/units"
)

func newReservation(t *testing.T, id string, start, end int) *domainreservation.Reservation {
	t.Helper()
	engine, err := pricing.NewEngine(units.DefaultCatalog(), pricing.DefaultPolicy())
	require.NoError(t, err)
	stay := march(start, end)
	price, err := engine.Price(units.Hackerberg, 2, stay, now)
	require.NoError(t, err)
	res, err := domainreservation.New(domainreservation.CreateParams{
		ID: domainreservation.ID(id),
		Guest: domainreservation.Guest{
			Name: "Max Muster", Email: "max@example.org", Phone: "0891234", Company: "Bau AG",
			Street: "Weg 2", Zip: "80331", City: "München",
		},
		Unit:      units.Hackerberg,
		Range:     stay,
		Party:     2,
		Price:     price,
		CreatedAt: now,
	})
	require.NoError(t, err)
	return res
}

func TestReservationRepositoryStagesDeletes(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Reservations().Save(ctx, newReservation(t, "b", 10, 12)))
	require.NoError(t, unit.Reservations().Save(ctx, newReservation(t, "a", 1, 3)))
	require.NoError(t, unit.Commit(ctx))

	unit, err = factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Reservations().Delete(ctx, "a"))
	_, err = unit.Reservations().ByID(ctx, "a")
	assert.ErrorIs(t, err, domainreservation.ErrNotFound)
	assert.ErrorIs(t, unit.Reservations().Delete(ctx, "missing"), domainreservation.ErrNotFound)
	require.NoError(t, unit.Rollback(ctx))

	reader, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer reader.Rollback(ctx)
	list, err := reader.Reservations().List(ctx, domainreservation.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domainreservation.ID("a"), list[0].ID)
	assert.Equal(t, domainreservation.ID("b"), list[1].ID)
}

func TestByIDReturnsCopies(t *testing.T) {
	ctx := context.Background()
	factory := Factory{Store: NewStore()}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Reservations().Save(ctx, newReservation(t, "a", 1, 3)))
	require.NoError(t, unit.Commit(ctx))

	unit, err = factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	got, err := unit.Reservations().ByID(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, got.Cancel(now))
	again, err := unit.Reservations().ByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domainreservation.StatusConfirmed, again.Status)
	require.NoError(t, unit.Rollback(ctx))
}
