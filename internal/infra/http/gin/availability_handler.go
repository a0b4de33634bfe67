package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"monteur/internal/app/dto"
	availabilityapp "monteur/internal/app/handlers/availability"
	pricingapp "monteur/internal/app/handlers/pricing"
	unitsapp "monteur/internal/app/handlers/units"
	"monteur/internal/app/queries"
	"monteur/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

type checkAvailabilityRequest struct {
	Unit  string `json:"unit"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
	Party int    `json:"party"`
}

func (h AvailabilityHandler) Units(c *gin.Context) {
	result, err := queries.Ask[unitsapp.ListUnitsQuery, dto.UnitCollection](c.Request.Context(), h.Queries, unitsapp.ListUnitsQuery{})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	var req checkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	start, end, err := parseStay(req.Start, req.End)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{Unit: req.Unit, Start: start, End: end, Party: req.Party}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Quote(c *gin.Context) {
	start, end, err := parseStay(c.Query("start"), c.Query("end"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	party, err := parseIntParam(c.Query("party"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	query := pricingapp.QuotePriceQuery{Unit: c.Query("unit"), Start: start, End: end, Party: party}
	result, err := queries.Ask[pricingapp.QuotePriceQuery, dto.PriceBreakdown](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Periods lists occupied ranges for the public booking calendar.
func (h AvailabilityHandler) Periods(c *gin.Context) {
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	query := availabilityapp.OccupiedPeriodsQuery{Unit: c.Param("unit"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.OccupiedPeriodsQuery, dto.PeriodCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, to, err := parseStay(c.Query("from"), c.Query("to"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))
	query := availabilityapp.GetCalendarQuery{Unit: c.Query("unit"), From: from, To: to, IncludeArchived: includeArchived}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseStay(startRaw, endRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(startRaw) == "" || strings.TrimSpace(endRaw) == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end dates are required", errMalformedRequest)
	}
	start, err := daterange.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := daterange.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseOptionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return daterange.ParseDate(raw)
}

func parseIntParam(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errMalformedRequest, raw)
	}
	return v, nil
}

var (
	_ AvailabilityHTTP = AvailabilityHandler{}
	_ CalendarHTTP     = AvailabilityHandler{}
)
