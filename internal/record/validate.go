package record

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxStoreNameLen = 100
	maxPriceCents   = 99_999_999 // 999,999.99
)

// Policy carries product rules that vary between deployments
type Policy struct {
	// RequireReturnByNotPast rejects drafts whose return-by date is already
	// in the past at creation time.
	RequireReturnByNotPast bool
}

// Draft holds the raw form fields as typed by the user. Dates are ISO date
// strings, price is decimal text. Optional fields are empty strings when
// unset.
type Draft struct {
	StoreName    string `json:"store_name"`
	Price        string `json:"price"`
	PurchaseDate string `json:"purchase_date"`
	ReturnByDate string `json:"return_by_date"`
	ReturnedDate string `json:"returned_date"`
}

// Validate checks a draft against the field and date-ordering rules and
// returns a normalized record on success: trimmed store name, price in
// cents, dates as date-only values. It is pure; today must already be a
// date-only value. Checks short-circuit on the first violation so the
// caller can surface a single message at a time.
func Validate(draft Draft, today time.Time, policy Policy) (*ReturnRecord, error) {
	storeName := strings.TrimSpace(draft.StoreName)
	if storeName == "" {
		return nil, validationErr(KindEmptyStoreName, "store name is required")
	}
	if len(storeName) > maxStoreNameLen {
		return nil, validationErr(KindStoreNameTooLong, "store name must be %d characters or fewer", maxStoreNameLen)
	}

	priceCents, err := ParsePriceCents(draft.Price)
	if err != nil {
		return nil, validationErr(KindPriceInvalid, "price must be a positive amount like 12.99")
	}
	if priceCents <= 0 || priceCents > maxPriceCents {
		return nil, validationErr(KindPriceOutOfRange, "price must be between 0.01 and 999,999.99")
	}

	if strings.TrimSpace(draft.PurchaseDate) == "" {
		return nil, validationErr(KindPurchaseDateMissing, "purchase date is required")
	}
	purchaseDate, err := ParseDate(strings.TrimSpace(draft.PurchaseDate))
	if err != nil {
		return nil, validationErr(KindPurchaseDateInvalid, "purchase date must be a valid date (YYYY-MM-DD)")
	}
	if purchaseDate.After(today) {
		return nil, validationErr(KindPurchaseDateFuture, "purchase date cannot be in the future")
	}

	var returnedDate *time.Time
	if s := strings.TrimSpace(draft.ReturnedDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return nil, validationErr(KindReturnedDateInvalid, "returned date must be a valid date (YYYY-MM-DD)")
		}
		if d.Before(purchaseDate) {
			return nil, validationErr(KindReturnedBeforePurchase, "returned date cannot be before the purchase date")
		}
		if d.After(today) {
			return nil, validationErr(KindReturnedInFuture, "returned date cannot be in the future")
		}
		returnedDate = &d
	}

	var returnByDate *time.Time
	if s := strings.TrimSpace(draft.ReturnByDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return nil, validationErr(KindReturnByInvalid, "return-by date must be a valid date (YYYY-MM-DD)")
		}
		if d.Before(purchaseDate) {
			return nil, validationErr(KindReturnByBeforePurchase, "return-by date cannot be before the purchase date")
		}
		if policy.RequireReturnByNotPast && d.Before(today) {
			return nil, validationErr(KindReturnByPast, "return-by date has already passed")
		}
		returnByDate = &d
	}

	return &ReturnRecord{
		StoreName:    storeName,
		PriceCents:   priceCents,
		PurchaseDate: purchaseDate,
		ReturnByDate: returnByDate,
		ReturnedDate: returnedDate,
	}, nil
}

// ParsePriceCents converts decimal price text to integer cents without
// going through floating point. Accepts an optional leading dollar sign
// and at most two fractional digits.
func ParsePriceCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, &ValidationError{Kind: KindPriceInvalid, Message: "empty price"}
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, &ValidationError{Kind: KindPriceInvalid, Message: "empty price"}
	}
	if len(frac) > 2 {
		return 0, &ValidationError{Kind: KindPriceInvalid, Message: "more than two decimal places"}
	}
	// Pad to exactly two fractional digits
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, &ValidationError{Kind: KindPriceInvalid, Message: "not a decimal number"}
		}
		cents = cents*10 + int64(r-'0')
		if cents > maxPriceCents*10 {
			// Bail before overflow; range check happens in Validate
			return cents, nil
		}
	}
	return cents, nil
}

// FormatPrice renders cents as decimal price text, the inverse of
// ParsePriceCents.
func FormatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
