package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"monteur/internal/app/commands"
	"monteur/internal/app/dto"
	ledgerapp "monteur/internal/app/handlers/ledger"
	reservationapp "monteur/internal/app/handlers/reservation"
	unitsapp "monteur/internal/app/handlers/units"
	"monteur/internal/app/middleware"
	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/queries"
	domainpricing "monteur/internal/domain/pricing"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
	"monteur/internal/infra/clock"
	"monteur/internal/infra/storage/memory"
)

func newDependencies(t *testing.T, relayed *[]string) Dependencies {
	t.Helper()
	return newDependenciesWithRelay(t, func(_ context.Context, rec appoutbox.EventRecord) error {
		*relayed = append(*relayed, rec.Name)
		return nil
	})
}

func newDependenciesWithRelay(t *testing.T, relay memory.RelayFunc) Dependencies {
	t.Helper()
	catalog := units.DefaultCatalog()
	engine, err := domainpricing.NewEngine(catalog, domainpricing.DefaultPolicy())
	require.NoError(t, err)
	store := memory.NewStore()
	return Dependencies{
		UoWFactory: memory.Factory{Store: store},
		Catalog:    catalog,
		Pricing:    engine,
		Clock:      clock.NewFixed(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)),
		Outbox:     memory.NewOutbox(store, relay),
		Encoder:    appoutbox.JSONEventEncoder{},
	}
}

func TestRegisterCoversEveryMessage(t *testing.T) {
	var relayed []string
	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	Register(commandBus, queryBus, newDependencies(t, &relayed))

	assert.Equal(t, []string{
		"ledger.block",
		"ledger.unblock",
		"reservation.archive",
		"reservation.cancel",
		"reservation.commit",
		"reservation.complete",
		"reservation.payment",
		"reservation.purge",
		"reservation.restore",
	}, commandBus.Keys())
	assert.Len(t, queryBus.Keys(), 10)
}

func TestBuildEnforcesOperatorAndFlushesOutbox(t *testing.T) {
	var relayed []string
	cmds, qs := Build(newDependencies(t, &relayed), Pipeline{Idempotency: memory.NewIdempotencyStore(time.Hour)})
	ctx := context.Background()

	commit := reservationapp.CommitReservationCommand{
		Unit:  "neubau",
		Start: daterange.On(2026, 3, 1),
		End:   daterange.On(2026, 3, 5),
		Party: 2,
		Guest: domainreservation.Guest{
			Name: "Erika Mustermann", Email: "erika@example.org", Phone: "+49 89 123456",
			Company: "Montage GmbH", Street: "Hauptstraße 1", Zip: "80331", City: "München",
		},
	}
	prepaid := commit
	prepaid.PaymentRef = "pi_1"
	_, err := commands.Dispatch[reservationapp.CommitReservationCommand, *dto.Reservation](ctx, cmds, prepaid)
	assert.ErrorIs(t, err, middleware.ErrForbidden)

	created, err := commands.Dispatch[reservationapp.CommitReservationCommand, *dto.Reservation](ctx, cmds, commit)
	require.NoError(t, err)
	assert.Equal(t, "pending", created.PaymentStatus)
	assert.Contains(t, relayed, "reservation.committed")

	_, err = commands.Dispatch[reservationapp.CancelReservationCommand, *dto.Reservation](ctx, cmds, reservationapp.CancelReservationCommand{ReservationID: created.ID})
	assert.ErrorIs(t, err, middleware.ErrForbidden)

	opCtx := middleware.ContextWithOperator(ctx, "admin")
	cancelled, err := commands.Dispatch[reservationapp.CancelReservationCommand, *dto.Reservation](opCtx, cmds, reservationapp.CancelReservationCommand{ReservationID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = commands.Dispatch[ledgerapp.BlockRangeCommand, *dto.Block](opCtx, cmds, ledgerapp.BlockRangeCommand{Unit: "hackerberg"})
	assert.ErrorIs(t, err, middleware.ErrValidation)

	list, err := queries.Ask[unitsapp.ListUnitsQuery, dto.UnitCollection](ctx, qs, unitsapp.ListUnitsQuery{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
}

func TestBuildPropagatesTraceContextToOutbox(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var records []appoutbox.EventRecord
	deps := newDependenciesWithRelay(t, func(_ context.Context, rec appoutbox.EventRecord) error {
		records = append(records, rec)
		return nil
	})
	cmds, _ := Build(deps, Pipeline{Tracer: tp.Tracer("monteur-test")})

	ctx := middleware.ContextWithOperator(context.Background(), "admin")
	_, err := commands.Dispatch[ledgerapp.BlockRangeCommand, *dto.Block](ctx, cmds, ledgerapp.BlockRangeCommand{
		Unit:  "hackerberg",
		Start: daterange.On(2026, 4, 1),
		End:   daterange.On(2026, 4, 3),
		Actor: "admin",
	})
	require.NoError(t, err)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "command ledger.block", ended[0].Name())
	traceID := ended[0].SpanContext().TraceID().String()

	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Regexp(t, "^00-"+traceID+"-[0-9a-f]{16}-01$", rec.Headers["traceparent"], rec.Name)
	}
}
