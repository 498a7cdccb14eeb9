package refund

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"luxrent/internal/app/policies"
	domainrefund "luxrent/internal/domain/refund"
	"luxrent/internal/domain/shared/money"
)

// Charge metadata keys written by the checkout flow.
const (
	MetaItemType             = "itemType"
	MetaItemName             = "itemName"
	MetaStartDate            = "startDate"
	MetaBookingID            = "bookingId"
	MetaCustomerEmail        = "customerEmail"
	MetaSpecialCircumstances = "specialCircumstances"
)

var startDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var refundableStatuses = map[string]bool{
	"":          true,
	"succeeded": true,
}

// SnapshotFromCharge rebuilds the booking from the charge the customer paid. Metadata
// recorded at checkout wins over the request; the request fills in what the charge lacks.
func SnapshotFromCharge(charge policies.Charge, req domainrefund.CancellationRequest) (domainrefund.BookingSnapshot, error) {
	if !refundableStatuses[strings.ToLower(charge.Status)] {
		return domainrefund.BookingSnapshot{}, fmt.Errorf("%w: status %q", domainrefund.ErrInvalidCharge, charge.Status)
	}
	if charge.AmountMinor < 0 {
		return domainrefund.BookingSnapshot{}, fmt.Errorf("%w: negative amount", domainrefund.ErrInvalidCharge)
	}
	amount, err := money.FromMinorUnits(charge.AmountMinor, charge.Currency)
	if err != nil {
		return domainrefund.BookingSnapshot{}, fmt.Errorf("%w: %v", domainrefund.ErrInvalidCharge, err)
	}
	meta := charge.Metadata
	start, err := parseStartDate(meta[MetaStartDate])
	if err != nil {
		return domainrefund.BookingSnapshot{}, fmt.Errorf("%w: %v", domainrefund.ErrInvalidCharge, err)
	}
	special, _ := strconv.ParseBool(strings.TrimSpace(meta[MetaSpecialCircumstances]))

	return domainrefund.BookingSnapshot{
		OriginalAmount:       amount.Amount,
		Currency:             amount.Currency,
		ItemType:             domainrefund.ItemType(meta[MetaItemType]),
		ItemName:             firstNonEmpty(meta[MetaItemName], "your booking"),
		StartDateTime:        start,
		CustomerEmail:        firstNonEmpty(meta[MetaCustomerEmail], charge.ReceiptEmail, req.CustomerEmail),
		BookingID:            firstNonEmpty(meta[MetaBookingID], req.BookingID),
		SpecialCircumstances: special,
	}, nil
}

func parseStartDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s metadata", MetaStartDate)
	}
	for _, layout := range startDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", MetaStartDate, raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
