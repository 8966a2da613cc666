package ocr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// extractedDateLayout is the fixed textual format the extraction function
// returns dates in
const extractedDateLayout = "01/02/2006" // MM/DD/YYYY

// extractionPayload is the wire shape of an extraction response
type extractionPayload struct {
	StoreName    string   `json:"storeName"`
	PurchaseDate string   `json:"purchaseDate"`
	ReturnByDate *string  `json:"returnByDate"`
	Amount       *float64 `json:"amount"`
}

// parseExtractionJSON parses a raw extraction response, tolerating the
// markdown fences LLM backends wrap JSON in
func parseExtractionJSON(text string) (*PartialFields, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var payload extractionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return fieldsFromPayload(payload), nil
}

// fieldsFromPayload converts a wire payload to PartialFields. Fields that
// fail to parse are dropped rather than propagated: a missing autofill
// value is just something the user types themselves.
func fieldsFromPayload(payload extractionPayload) *PartialFields {
	fields := &PartialFields{
		StoreName:    strings.TrimSpace(payload.StoreName),
		PurchaseDate: parseExtractedDate(payload.PurchaseDate),
	}
	if payload.ReturnByDate != nil {
		fields.ReturnByDate = parseExtractedDate(*payload.ReturnByDate)
	}
	if payload.Amount != nil {
		fields.PriceCents = dollarsToCents(*payload.Amount)
	}
	return fields
}

// parseExtractedDate parses an MM/DD/YYYY date, returning nil when the
// value doesn't parse
func parseExtractedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := time.Parse(extractedDateLayout, s)
	if err != nil {
		return nil
	}
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// dollarsToCents converts an extracted dollar amount to cents, dropping
// non-positive or absurd values
func dollarsToCents(amount float64) *int64 {
	cents := int64(math.Round(amount * 100))
	if cents <= 0 || cents > 99_999_999 {
		return nil
	}
	return &cents
}
