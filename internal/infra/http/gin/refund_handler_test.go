package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxrent/internal/app/commands"
	"luxrent/internal/app/dto"
	refundapp "luxrent/internal/app/handlers/refund"
	"luxrent/internal/app/policies"
	"luxrent/internal/app/queries"
	"luxrent/internal/domain/refund"
	"luxrent/internal/infra/config"
	"luxrent/internal/infra/obs"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

const validBody = `{"paymentReferenceId":"pi_1234567890","bookingId":"bk_42","cancellationReason":"changed_mind","customerEmail":"jane.doe@example.com"}`

func newTestRouter(bus commands.Bus, h Handlers) *gin.Engine {
	if h.Refund == nil {
		h.Refund = RefundHandler{Commands: bus}
	}
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, h)
}

func perform(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func successResponse() *dto.RefundResponse {
	gross := 1000.0
	hours := 10
	return &dto.RefundResponse{
		Success: true,
		Refund:  dto.RefundDTO{ID: "re_1", Amount: 150, Currency: "USD", Status: "succeeded"},
		Calculation: dto.CalculationDTO{
			OriginalAmount:   5000,
			RefundAmount:     150,
			RefundPercentage: 0.2,
			GrossRefund:      &gross,
			HoursUntilStart:  &hours,
			PolicyApplied:    "<24h",
		},
		Message:                "Refund of 150.00 USD processed successfully",
		ProcessingTimeEstimate: refundapp.ProcessingTimeEstimate,
	}
}

func TestRefundPreflight(t *testing.T) {
	router := newTestRouter(busFunc(func(context.Context, commands.Command) (any, error) {
		t.Fatal("bus must not be called")
		return nil, nil
	}), Handlers{})

	for _, path := range []string{"/refund", "/api/v1/refund"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://shop.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"), path)
		assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"), path)
	}
}

func TestRefundLookupPreflightUsesSharedPolicy(t *testing.T) {
	router := newTestRouter(nil, Handlers{RefundLookup: RefundLookupHandler{Queries: queryFunc(func(context.Context, queries.Query) (any, error) {
		t.Fatal("query bus must not be called")
		return nil, nil
	})}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/refunds/bk_1", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestRefundRejectsOtherMethods(t *testing.T) {
	router := newTestRouter(nil, Handlers{})
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := perform(router, method, "/refund", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "Method not allowed", decodeError(t, w).Error)
	}
}

func TestRefundValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing reason",
			body: `{"paymentReferenceId":"pi_1","bookingId":"bk_1","customerEmail":"jane@example.com"}`,
			want: "Missing required fields: cancellationReason",
		},
		{
			name: "several blanks in order",
			body: `{"paymentReferenceId":" ","cancellationReason":"x"}`,
			want: "Missing required fields: paymentReferenceId, bookingId, customerEmail",
		},
		{
			name: "malformed email",
			body: `{"paymentReferenceId":"pi_1","bookingId":"bk_1","cancellationReason":"x","customerEmail":"jane@example"}`,
			want: "Invalid email address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := newTestRouter(busFunc(func(context.Context, commands.Command) (any, error) {
				called = true
				return nil, nil
			}), Handlers{})

			w := perform(router, http.MethodPost, "/refund", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeError(t, w).Error)
			assert.False(t, called)
		})
	}
}

func TestRefundMalformedJSONIsInternalError(t *testing.T) {
	router := newTestRouter(busFunc(func(context.Context, commands.Command) (any, error) {
		return nil, nil
	}), Handlers{})

	w := perform(router, http.MethodPost, "/refund", `{"bookingId":`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, refundFailedError, body.Error)
	assert.Equal(t, refundFailedMessage, body.Message)
}

func TestRefundSuccess(t *testing.T) {
	var got refundapp.ProcessRefundCommand
	router := newTestRouter(busFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		got = cmd.(refundapp.ProcessRefundCommand)
		return successResponse(), nil
	}), Handlers{})

	w := perform(router, http.MethodPost, "/refund", validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bk_42", got.BookingID)
	assert.Equal(t, "pi_1234567890", got.PaymentReferenceID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Refund of 150.00 USD processed successfully", body["message"])
	refundBody := body["refund"].(map[string]any)
	assert.Equal(t, "re_1", refundBody["id"])
	assert.Equal(t, 150.0, refundBody["amount"])
	calc := body["calculation"].(map[string]any)
	assert.Equal(t, 1000.0, calc["grossRefund"])
	assert.Equal(t, "<24h", calc["policyApplied"])
}

func TestRefundAcceptsPaymentIntentAlias(t *testing.T) {
	var got refundapp.ProcessRefundCommand
	router := newTestRouter(busFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		got = cmd.(refundapp.ProcessRefundCommand)
		return successResponse(), nil
	}), Handlers{})

	body := `{"paymentIntentId":"pi_legacy","bookingId":"bk_1","cancellationReason":"x","customerEmail":"jane@example.com"}`
	w := perform(router, http.MethodPost, "/api/v1/refund", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_legacy", got.PaymentReferenceID)
}

func TestRefundErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{name: "charge not found", err: refund.ErrChargeNotFound, status: http.StatusNotFound, want: "Payment intent not found"},
		{name: "validation from handler", err: &refund.ValidationError{Missing: []string{"bookingId"}}, status: http.StatusBadRequest, want: "Missing required fields: bookingId"},
		{name: "gateway failure", err: &refund.GatewayError{Op: "execute_refund", Err: errors.New("sk_live secret leaked")}, status: http.StatusInternalServerError, want: refundFailedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(busFunc(func(context.Context, commands.Command) (any, error) {
				return nil, tt.err
			}), Handlers{})

			w := perform(router, http.MethodPost, "/refund", validBody)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.want, decodeError(t, w).Error)
			assert.NotContains(t, w.Body.String(), "sk_live")
		})
	}
}

func TestRefundRateLimited(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	defer limiter.Stop()
	router := newTestRouter(busFunc(func(context.Context, commands.Command) (any, error) {
		return successResponse(), nil
	}), Handlers{RateLimit: limiter.Middleware()})

	first := perform(router, http.MethodPost, "/refund", validBody)
	second := perform(router, http.MethodPost, "/refund", validBody)
	preflight := perform(router, http.MethodOptions, "/refund", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Too many requests", decodeError(t, second).Error)
	assert.Equal(t, http.StatusOK, preflight.Code)
}

func TestRefundLookup(t *testing.T) {
	lookup := RefundLookupHandler{Queries: queryFunc(func(_ context.Context, q queries.Query) (any, error) {
		if q.(refundapp.GetRefundQuery).BookingID == "bk_42" {
			return &dto.RefundRecordDTO{BookingID: "bk_42", RefundID: "re_1", Status: "succeeded", Amount: 750, Currency: "USD", CreatedAt: time.Unix(0, 0).UTC()}, nil
		}
		return nil, policies.ErrRefundRecordNotFound
	})}
	router := newTestRouter(nil, Handlers{RefundLookup: lookup})

	found := perform(router, http.MethodGet, "/api/v1/refunds/bk_42", "")
	missing := perform(router, http.MethodGet, "/api/v1/refunds/bk_0", "")

	require.Equal(t, http.StatusOK, found.Code)
	var rec dto.RefundRecordDTO
	require.NoError(t, json.Unmarshal(found.Body.Bytes(), &rec))
	assert.Equal(t, "re_1", rec.RefundID)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
