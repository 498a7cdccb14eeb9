package notify

import (
	"fmt"
	"html"
	"strings"

	"luxrent/internal/app/policies"
)

const subjectPrefix = "Your LuxRent refund"

func subject(c policies.RefundConfirmation) string {
	return fmt.Sprintf("%s for %s", subjectPrefix, c.ItemName)
}

func plainText(c policies.RefundConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your cancellation of %s (booking %s) has been processed.\n\n", c.ItemName, c.BookingID)
	fmt.Fprintf(&b, "Original amount: %s %s\n", c.OriginalAmount, c.Currency)
	fmt.Fprintf(&b, "Refund amount: %s %s\n", c.RefundAmount, c.Currency)
	fmt.Fprintf(&b, "Policy applied: %s\n", c.Calculation.PolicyApplied)
	if c.RefundID != "" {
		fmt.Fprintf(&b, "Refund reference: %s\n", c.RefundID)
	}
	fmt.Fprintf(&b, "\nFunds usually arrive within %s.\n", c.ProcessingTimeEstimate)
	return b.String()
}

func htmlBody(c policies.RefundConfirmation) string {
	esc := html.EscapeString
	return fmt.Sprintf(`<html><body>
<h2>Refund confirmed</h2>
<p>Your cancellation of <strong>%s</strong> (booking %s) has been processed.</p>
<table>
<tr><td>Original amount</td><td>%s %s</td></tr>
<tr><td>Refund amount</td><td><strong>%s %s</strong></td></tr>
<tr><td>Policy applied</td><td>%s</td></tr>
</table>
<p>Funds usually arrive within %s.</p>
</body></html>`,
		esc(c.ItemName), esc(c.BookingID),
		esc(c.OriginalAmount), esc(c.Currency),
		esc(c.RefundAmount), esc(c.Currency),
		esc(c.Calculation.PolicyApplied),
		esc(c.ProcessingTimeEstimate),
	)
}
