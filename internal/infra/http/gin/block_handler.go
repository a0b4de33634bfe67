package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"monteur/internal/app/commands"
	"monteur/internal/app/dto"
	ledgerapp "monteur/internal/app/handlers/ledger"
	"monteur/internal/app/queries"
)

// BlockHandler manages manual blocks on the operator calendar.
type BlockHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type blockRequest struct {
	Unit   string `json:"unit" binding:"required"`
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Reason string `json:"reason"`
}

func (h BlockHandler) List(c *gin.Context) {
	query := ledgerapp.ListBlocksQuery{Unit: c.Query("unit")}
	result, err := queries.Ask[ledgerapp.ListBlocksQuery, dto.BlockCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BlockHandler) Create(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	start, end, err := parseStay(req.Start, req.End)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	cmd := ledgerapp.BlockRangeCommand{Unit: req.Unit, Start: start, End: end, Reason: req.Reason, Actor: currentOperator(c)}
	result, err := commands.Dispatch[ledgerapp.BlockRangeCommand, *dto.Block](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BlockHandler) Delete(c *gin.Context) {
	cmd := ledgerapp.UnblockRangeCommand{BlockID: c.Param("id")}
	result, err := commands.Dispatch[ledgerapp.UnblockRangeCommand, *ledgerapp.UnblockRangeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BlockHTTP = BlockHandler{}
