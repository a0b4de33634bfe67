package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"monteur/internal/app/commands"
	"monteur/internal/app/dto"
	reservationapp "monteur/internal/app/handlers/reservation"
	"monteur/internal/app/queries"
	domainreservation "monteur/internal/domain/reservation"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type guestRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Street  string `json:"street"`
	Zip     string `json:"zip"`
	City    string `json:"city"`
}

type createReservationRequest struct {
	Unit  string       `json:"unit" binding:"required"`
	Start string       `json:"start" binding:"required"`
	End   string       `json:"end" binding:"required"`
	Party int          `json:"party"`
	Guest guestRequest `json:"guest"`
}

type paymentRequest struct {
	Status    string `json:"status" binding:"required"`
	Reference string `json:"reference"`
}

// Create books a stay for a guest. Public bookings always start with a
// pending payment; settlement arrives as a payment event or an operator call.
func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	start, end, err := parseStay(req.Start, req.End)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	cmd := reservationapp.CommitReservationCommand{
		Unit:  req.Unit,
		Start: start,
		End:   end,
		Party: req.Party,
		Guest: domainreservation.Guest{
			Name:    req.Guest.Name,
			Email:   req.Guest.Email,
			Phone:   req.Guest.Phone,
			Company: req.Guest.Company,
			Street:  req.Guest.Street,
			Zip:     req.Guest.Zip,
			City:    req.Guest.City,
		},
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[reservationapp.CommitReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) List(c *gin.Context) {
	query := reservationapp.ListReservationsQuery{Status: c.Query("status"), Unit: c.Query("unit")}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			handleError(c, h.Logger, fmt.Errorf("%w: archived must be true or false", errMalformedRequest))
			return
		}
		query.Archived = &archived
	}
	var err error
	if query.From, err = parseOptionalDate(c.Query("from")); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	if query.To, err = parseOptionalDate(c.Query("to")); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[reservationapp.ListReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	query := reservationapp.GetReservationQuery{ReservationID: c.Param("id")}
	result, err := queries.Ask[reservationapp.GetReservationQuery, dto.Reservation](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	cmd := reservationapp.CancelReservationCommand{ReservationID: c.Param("id")}
	h.respond(c, dispatchReservation(c, h.Commands, cmd))
}

func (h ReservationHandler) Archive(c *gin.Context) {
	cmd := reservationapp.ArchiveReservationCommand{ReservationID: c.Param("id"), Actor: currentOperator(c)}
	h.respond(c, dispatchReservation(c, h.Commands, cmd))
}

func (h ReservationHandler) Restore(c *gin.Context) {
	cmd := reservationapp.RestoreReservationCommand{ReservationID: c.Param("id")}
	h.respond(c, dispatchReservation(c, h.Commands, cmd))
}

func (h ReservationHandler) Complete(c *gin.Context) {
	cmd := reservationapp.CompleteReservationCommand{ReservationID: c.Param("id")}
	h.respond(c, dispatchReservation(c, h.Commands, cmd))
}

func (h ReservationHandler) Payment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	cmd := reservationapp.RecordPaymentCommand{ReservationID: c.Param("id"), Status: req.Status, Reference: req.Reference}
	h.respond(c, dispatchReservation(c, h.Commands, cmd))
}

// Purge deletes an archived reservation for good.
func (h ReservationHandler) Purge(c *gin.Context) {
	cmd := reservationapp.PurgeReservationCommand{ReservationID: c.Param("id"), Actor: currentOperator(c)}
	result, err := commands.Dispatch[reservationapp.PurgeReservationCommand, *reservationapp.PurgeReservationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Statistics(c *gin.Context) {
	result, err := queries.Ask[reservationapp.StatisticsQuery, dto.Statistics](c.Request.Context(), h.Queries, reservationapp.StatisticsQuery{})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reservationOutcome struct {
	reservation *dto.Reservation
	err         error
}

func dispatchReservation[C commands.Command](c *gin.Context, bus commands.Bus, cmd C) reservationOutcome {
	res, err := commands.Dispatch[C, *dto.Reservation](c.Request.Context(), bus, cmd)
	return reservationOutcome{reservation: res, err: err}
}

func (h ReservationHandler) respond(c *gin.Context, out reservationOutcome) {
	if out.err != nil {
		handleError(c, h.Logger, out.err)
		return
	}
	c.JSON(http.StatusOK, out.reservation)
}

var (
	_ PublicReservationHTTP = ReservationHandler{}
	_ AdminReservationHTTP  = ReservationHandler{}
)
