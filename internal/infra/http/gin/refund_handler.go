package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"luxrent/internal/app/commands"
	"luxrent/internal/app/dto"
	refundapp "luxrent/internal/app/handlers/refund"
	"luxrent/internal/app/policies"
	"luxrent/internal/domain/refund"
)

const (
	refundFailedError   = "Refund processing failed"
	refundFailedMessage = "We were unable to process your refund automatically. Please contact our concierge team at support@luxrent.example for immediate assistance."
)

type RefundHTTP interface {
	Refund(c *gin.Context)
}

type RefundHandler struct {
	Commands commands.Bus
	Events   policies.EventLogger
	Logger   *slog.Logger
}

// refundRequest is the raw body. paymentIntentId is accepted for older clients.
type refundRequest struct {
	PaymentReferenceID string `json:"paymentReferenceId"`
	PaymentIntentID    string `json:"paymentIntentId"`
	BookingID          string `json:"bookingId"`
	CancellationReason string `json:"cancellationReason"`
	CustomerEmail      string `json:"customerEmail"`
}

type refundInput struct {
	PaymentReferenceID string `json:"paymentReferenceId" binding:"notblank"`
	BookingID          string `json:"bookingId" binding:"notblank"`
	CancellationReason string `json:"cancellationReason" binding:"notblank"`
	CustomerEmail      string `json:"customerEmail" binding:"notblank,emailshape"`
}

func (r refundRequest) input() refundInput {
	ref := r.PaymentReferenceID
	if strings.TrimSpace(ref) == "" {
		ref = r.PaymentIntentID
	}
	return refundInput{
		PaymentReferenceID: strings.TrimSpace(ref),
		BookingID:          strings.TrimSpace(r.BookingID),
		CancellationReason: strings.TrimSpace(r.CancellationReason),
		CustomerEmail:      strings.TrimSpace(r.CustomerEmail),
	}
}

func (h RefundHandler) Refund(c *gin.Context) {
	setRefundCORSHeaders(c)
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodPost:
	default:
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "Method not allowed"})
		return
	}
	if h.Commands == nil {
		h.fail(c, errors.New("refund: command bus unavailable"), "dispatch")
		return
	}

	var raw refundRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.fail(c, err, "decode")
		return
	}
	in := raw.input()
	RegisterValidators()
	if err := binding.Validator.ValidateStruct(in); err != nil {
		vErr, ok := validationError(err)
		if !ok {
			h.fail(c, err, "validate")
			return
		}
		h.events().LogEvent(c.Request.Context(), policies.EventRefundValidationFailed, map[string]any{
			"bookingId":          in.BookingID,
			"paymentReferenceId": in.PaymentReferenceID,
			"customerEmail":      in.CustomerEmail,
			"error":              vErr.Error(),
		}, policies.SeverityWarn)
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: vErr.Error()})
		return
	}

	cmd := refundapp.ProcessRefundCommand{
		PaymentReferenceID: in.PaymentReferenceID,
		BookingID:          in.BookingID,
		CancellationReason: in.CancellationReason,
		CustomerEmail:      in.CustomerEmail,
	}
	result, err := commands.Dispatch[refundapp.ProcessRefundCommand, *dto.RefundResponse](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		var vErr *refund.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: vErr.Error()})
		case errors.Is(err, refund.ErrChargeNotFound):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Payment intent not found"})
		default:
			h.logger().ErrorContext(c.Request.Context(), "refund failed", "booking_id", in.BookingID, "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: refundFailedError, Message: refundFailedMessage})
		}
		return
	}
	if result == nil {
		h.fail(c, errors.New("refund: empty result"), "dispatch")
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail answers with the fixed support message; the cause goes to the logs only.
func (h RefundHandler) fail(c *gin.Context, err error, stage string) {
	h.events().LogEvent(c.Request.Context(), policies.EventRefundFailed, map[string]any{
		"stage": stage,
		"error": err.Error(),
	}, policies.SeverityError)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: refundFailedError, Message: refundFailedMessage})
}

func (h RefundHandler) events() policies.EventLogger {
	if h.Events != nil {
		return h.Events
	}
	return policies.NopEventLogger()
}

func (h RefundHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func setRefundCORSHeaders(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

var _ RefundHTTP = RefundHandler{}
