package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"luxrent/internal/app/dto"
	refundapp "luxrent/internal/app/handlers/refund"
	"luxrent/internal/app/policies"
	"luxrent/internal/app/queries"
)

type RefundLookupHTTP interface {
	Get(c *gin.Context)
}

type RefundLookupHandler struct {
	Queries queries.Bus
}

func (h RefundLookupHandler) Get(c *gin.Context) {
	query := refundapp.GetRefundQuery{BookingID: c.Param("bookingId")}
	result, err := queries.Ask[refundapp.GetRefundQuery, *dto.RefundRecordDTO](c.Request.Context(), h.Queries, query)
	switch {
	case errors.Is(err, policies.ErrRefundRecordNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Refund not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Refund lookup failed"})
	case result == nil:
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Refund not found"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

var _ RefundLookupHTTP = RefundLookupHandler{}
