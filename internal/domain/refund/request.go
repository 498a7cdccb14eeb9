package refund

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrChargeNotFound = errors.New("refund: charge not found")
	ErrInvalidCharge  = errors.New("refund: charge cannot be refunded")
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has the basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailShape.MatchString(strings.TrimSpace(email))
}

// CancellationRequest is a customer's request to cancel a paid booking.
type CancellationRequest struct {
	PaymentReferenceID string
	BookingID          string
	CancellationReason string
	CustomerEmail      string
}

// Normalize trims surrounding whitespace from every field.
func (r CancellationRequest) Normalize() CancellationRequest {
	return CancellationRequest{
		PaymentReferenceID: strings.TrimSpace(r.PaymentReferenceID),
		BookingID:          strings.TrimSpace(r.BookingID),
		CancellationReason: strings.TrimSpace(r.CancellationReason),
		CustomerEmail:      strings.TrimSpace(r.CustomerEmail),
	}
}

// Validate returns a *ValidationError naming every missing field, or the malformed email.
func (r CancellationRequest) Validate() error {
	r = r.Normalize()
	var missing []string
	if r.PaymentReferenceID == "" {
		missing = append(missing, "paymentReferenceId")
	}
	if r.BookingID == "" {
		missing = append(missing, "bookingId")
	}
	if r.CancellationReason == "" {
		missing = append(missing, "cancellationReason")
	}
	if r.CustomerEmail == "" {
		missing = append(missing, "customerEmail")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	if !ValidEmail(r.CustomerEmail) {
		return &ValidationError{Field: "customerEmail", Message: "Invalid email address"}
	}
	return nil
}

// ValidationError describes a request the caller must correct.
type ValidationError struct {
	Missing []string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "Missing required fields: " + strings.Join(e.Missing, ", ")
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid field %s", e.Field)
}

// GatewayError wraps a failed payment gateway call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("refund: gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
