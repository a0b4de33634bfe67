// Package handlers registers every command and query handler on the buses.
package handlers

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"monteur/internal/app/commands"
	"monteur/internal/app/dto"
	availabilityapp "monteur/internal/app/handlers/availability"
	ledgerapp "monteur/internal/app/handlers/ledger"
	pricingapp "monteur/internal/app/handlers/pricing"
	reservationapp "monteur/internal/app/handlers/reservation"
	unitsapp "monteur/internal/app/handlers/units"
	"monteur/internal/app/middleware"
	"monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	"monteur/internal/app/queries"
	"monteur/internal/app/uow"
	domainpricing "monteur/internal/domain/pricing"
	"monteur/internal/domain/units"
)

type Dependencies struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
	Pricing    *domainpricing.Engine
	Clock      policies.Clock
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Archiver   policies.Archiver
	Logger     *slog.Logger
	NewID      func() string
}

func Register(commandBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Dependencies) {
	commit := &reservationapp.CommitReservationHandler{
		UoWFactory: d.UoWFactory,
		Catalog:    d.Catalog,
		Pricing:    d.Pricing,
		Clock:      d.Clock,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Logger:     d.Logger,
		NewID:      d.NewID,
	}
	lifecycle := &reservationapp.LifecycleHandler{
		UoWFactory: d.UoWFactory,
		Catalog:    d.Catalog,
		Clock:      d.Clock,
		Archiver:   d.Archiver,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Logger:     d.Logger,
	}
	blocks := &ledgerapp.Handler{
		UoWFactory: d.UoWFactory,
		Catalog:    d.Catalog,
		Clock:      d.Clock,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		NewID:      d.NewID,
	}

	commands.RegisterHandler(commandBus, reservationapp.CommitReservationCommand{}.Key(), commit)
	commands.RegisterHandler(commandBus, reservationapp.CancelReservationCommand{}.Key(),
		commands.HandlerFunc[reservationapp.CancelReservationCommand, *dto.Reservation](lifecycle.Cancel))
	commands.RegisterHandler(commandBus, reservationapp.ArchiveReservationCommand{}.Key(),
		commands.HandlerFunc[reservationapp.ArchiveReservationCommand, *dto.Reservation](lifecycle.Archive))
	commands.RegisterHandler(commandBus, reservationapp.RestoreReservationCommand{}.Key(),
		commands.HandlerFunc[reservationapp.RestoreReservationCommand, *dto.Reservation](lifecycle.Restore))
	commands.RegisterHandler(commandBus, reservationapp.PurgeReservationCommand{}.Key(),
		commands.HandlerFunc[reservationapp.PurgeReservationCommand, *reservationapp.PurgeReservationResult](lifecycle.Purge))
	commands.RegisterHandler(commandBus, reservationapp.CompleteReservationCommand{}.Key(),
		commands.HandlerFunc[reservationapp.CompleteReservationCommand, *dto.Reservation](lifecycle.Complete))
	commands.RegisterHandler(commandBus, reservationapp.RecordPaymentCommand{}.Key(),
		commands.HandlerFunc[reservationapp.RecordPaymentCommand, *dto.Reservation](lifecycle.RecordPayment))
	commands.RegisterHandler(commandBus, ledgerapp.BlockRangeCommand{}.Key(),
		commands.HandlerFunc[ledgerapp.BlockRangeCommand, *dto.Block](blocks.Block))
	commands.RegisterHandler(commandBus, ledgerapp.UnblockRangeCommand{}.Key(),
		commands.HandlerFunc[ledgerapp.UnblockRangeCommand, *ledgerapp.UnblockRangeResult](blocks.Unblock))

	reservationQueries := &reservationapp.QueryHandler{UoWFactory: d.UoWFactory}
	calendar := &availabilityapp.CalendarHandler{UoWFactory: d.UoWFactory, Catalog: d.Catalog, Clock: d.Clock}

	queries.RegisterHandler(queryBus, unitsapp.ListUnitsQuery{}.Key(), &unitsapp.ListUnitsHandler{Catalog: d.Catalog})
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(),
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoWFactory, Catalog: d.Catalog})
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.GetCalendarQuery, dto.Calendar](calendar.Calendar))
	queries.RegisterHandler(queryBus, availabilityapp.OccupiedPeriodsQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.OccupiedPeriodsQuery, dto.PeriodCollection](calendar.Periods))
	queries.RegisterHandler(queryBus, pricingapp.QuotePriceQuery{}.Key(),
		&pricingapp.QuotePriceHandler{Engine: d.Pricing, Clock: d.Clock})
	queries.RegisterHandler(queryBus, reservationapp.GetReservationQuery{}.Key(),
		queries.HandlerFunc[reservationapp.GetReservationQuery, dto.Reservation](reservationQueries.Get))
	queries.RegisterHandler(queryBus, reservationapp.ListReservationsQuery{}.Key(),
		queries.HandlerFunc[reservationapp.ListReservationsQuery, dto.ReservationCollection](reservationQueries.List))
	queries.RegisterHandler(queryBus, reservationapp.StatisticsQuery{}.Key(),
		queries.HandlerFunc[reservationapp.StatisticsQuery, dto.Statistics](reservationQueries.Statistics))
	queries.RegisterHandler(queryBus, ledgerapp.ListBlocksQuery{}.Key(),
		queries.HandlerFunc[ledgerapp.ListBlocksQuery, dto.BlockCollection](blocks.Blocks))
}

// Pipeline configures the middleware wrapped around the buses.
type Pipeline struct {
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Idempotency middleware.IdempotencyStore
}

// Build registers every handler and returns the buses the transports use.
// Outbox flushing wraps the transaction so relays only see committed units.
func Build(d Dependencies, p Pipeline) (commands.Bus, queries.Bus) {
	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	Register(commandBus, queryBus, d)

	validator := middleware.NewStructValidator()
	authorizer := middleware.OperatorAuthorizer{}
	var idempotency middleware.CommandMiddleware
	if p.Idempotency != nil {
		idempotency = middleware.Idempotency(p.Idempotency, nil)
	}
	cmds := middleware.ChainCommands(commandBus,
		middleware.Logging(p.Logger),
		middleware.Tracing(p.Tracer),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
		idempotency,
		middleware.OutboxFlush(d.Outbox, p.Logger),
		middleware.Transaction(d.UoWFactory, nil),
	)
	qs := middleware.ChainQueries(queryBus,
		middleware.QueryLogging(p.Logger),
		middleware.QueryTracing(p.Tracer),
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
	)
	return cmds, qs
}
