package record

import "time"

// Status values derived from RefundReceived
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ReturnRecord represents one tracked purchase/return/refund lifecycle
type ReturnRecord struct {
	ID             string     `json:"id"`
	StoreName      string     `json:"store_name"`
	PriceCents     int64      `json:"price_cents"` // Price in cents
	PurchaseDate   time.Time  `json:"purchase_date"`
	ReturnByDate   *time.Time `json:"return_by_date,omitempty"`
	ReturnedDate   *time.Time `json:"returned_date,omitempty"`
	HasReceipt     bool       `json:"has_receipt"`
	RefundReceived bool       `json:"refund_received"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Status derives the record status from RefundReceived. It is never stored
// independently.
func (r *ReturnRecord) Status() string {
	if r.RefundReceived {
		return StatusCompleted
	}
	return StatusPending
}

// DateOnly truncates a time to a date-only value at UTC midnight. All dates
// on a ReturnRecord are date-only; zeroing the time component avoids
// timezone-boundary comparison bugs.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO 8601 date string into a date-only value
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// FormatDate renders a date-only value as an ISO 8601 date string
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// daysBetween returns the number of whole days from a to b. Both are
// expected to be date-only values.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
