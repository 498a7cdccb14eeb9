package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	striperefund "github.com/stripe/stripe-go/v76/refund"

	"luxrent/internal/app/policies"
)

var ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

// StripeGateway reads payment intents and creates refunds through stripe-go.
// The client never retries on its own; retries belong to the caller.
type StripeGateway struct {
	intents paymentintent.Client
	refunds striperefund.Client
}

// NewStripeGateway builds a gateway against baseURL, normally https://api.stripe.com.
// A nil client gets one with the given timeout.
func NewStripeGateway(baseURL, secretKey string, timeout time.Duration, client *http.Client, logger *slog.Logger) *StripeGateway {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        client,
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if logger != nil {
		cfg.LeveledLogger = slogLeveled{logger: logger.With("component", "stripe")}
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	return &StripeGateway{
		intents: paymentintent.Client{B: backend, Key: secretKey},
		refunds: striperefund.Client{B: backend, Key: secretKey},
	}
}

func (g *StripeGateway) RetrieveCharge(ctx context.Context, referenceID string) (*policies.Charge, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(referenceID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &policies.Charge{
		ReferenceID:  pi.ID,
		AmountMinor:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Status:       string(pi.Status),
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
	}, nil
}

func (g *StripeGateway) ExecuteRefund(ctx context.Context, req policies.RefundRequest) (policies.RefundReceipt, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.ReferenceID),
		Amount:        stripe.Int64(req.AmountMinor),
	}
	params.Context = ctx
	if req.ReasonCode != "" {
		params.Reason = stripe.String(req.ReasonCode)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	out, err := g.refunds.New(params)
	if err != nil {
		return policies.RefundReceipt{}, classify(err)
	}
	return policies.RefundReceipt{
		ID:          out.ID,
		Status:      string(out.Status),
		AmountMinor: out.Amount,
		Currency:    strings.ToUpper(string(out.Currency)),
	}, nil
}

// classify marks server-side and transport failures as ErrGatewayUnavailable.
// Request errors keep their *stripe.Error as is.
func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
}

// slogLeveled routes stripe-go's request logging into slog. Request-level
// errors are surfaced by the caller, so the library's own error lines drop to warn.
type slogLeveled struct {
	logger *slog.Logger
}

func (l slogLeveled) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l slogLeveled) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l slogLeveled) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l slogLeveled) Errorf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

var _ policies.PaymentGateway = (*StripeGateway)(nil)
