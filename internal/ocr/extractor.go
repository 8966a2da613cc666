package ocr

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// PartialFields holds best-effort values extracted from a receipt image.
// Every field is optional; absent fields are left for the user to type.
type PartialFields struct {
	StoreName    string     `json:"store_name,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	ReturnByDate *time.Time `json:"return_by_date,omitempty"`
	PriceCents   *int64     `json:"price_cents,omitempty"`
}

// Empty reports whether extraction produced nothing usable
func (f PartialFields) Empty() bool {
	return f.StoreName == "" && f.PurchaseDate == nil && f.ReturnByDate == nil && f.PriceCents == nil
}

// Extractor defines the interface for the external field extraction call
type Extractor interface {
	// Extract analyzes a compressed receipt image and returns whatever
	// fields it could read
	Extract(ctx context.Context, imageData []byte) (*PartialFields, error)
	// Close closes the extractor and releases resources
	Close() error
}

// Distinguishable extraction failure conditions
var (
	ErrRateLimited    = errors.New("extraction rate limited")
	ErrQuotaExhausted = errors.New("extraction quota exhausted")
)

// Warning kinds for soft extraction failures
const (
	WarnTimeout     = "EXTRACTION_TIMEOUT"
	WarnRateLimited = "EXTRACTION_RATE_LIMITED"
	WarnQuota       = "EXTRACTION_QUOTA_EXHAUSTED"
	WarnFailed      = "EXTRACTION_FAILED"
)

// Warning is a user-facing soft failure. Extraction warnings never block
// the surrounding create/edit flow.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const defaultExtractTimeout = 30 * time.Second

// Assist wraps an Extractor as an advisory-only adapter: every failure
// mode degrades to "no fields extracted" plus a soft warning, never an
// error into the caller. Submission must succeed identically whether or
// not extraction ran.
type Assist struct {
	extractor Extractor
	timeout   time.Duration
}

// NewAssist creates an Assist with the default extraction timeout
func NewAssist(extractor Extractor) *Assist {
	return &Assist{
		extractor: extractor,
		timeout:   defaultExtractTimeout,
	}
}

// NewAssistWithTimeout creates an Assist with a custom timeout for testing
func NewAssistWithTimeout(extractor Extractor, timeout time.Duration) *Assist {
	return &Assist{
		extractor: extractor,
		timeout:   timeout,
	}
}

// Autofill runs one bounded extraction call. On any failure the returned
// fields are empty and the warning names the cause.
func (a *Assist) Autofill(ctx context.Context, imageData []byte) (PartialFields, *Warning) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	fields, err := a.extractor.Extract(ctx, imageData)
	if err != nil {
		slog.Warn("Receipt extraction failed", "error", err)
		return PartialFields{}, classify(err)
	}
	if fields == nil {
		return PartialFields{}, nil
	}
	return *fields, nil
}

func classify(err error) *Warning {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Warning{Kind: WarnTimeout, Message: "Reading the receipt took too long. Fill in the fields manually."}
	case errors.Is(err, ErrRateLimited):
		return &Warning{Kind: WarnRateLimited, Message: "Receipt reading is temporarily rate limited. Fill in the fields manually."}
	case errors.Is(err, ErrQuotaExhausted):
		return &Warning{Kind: WarnQuota, Message: "Receipt reading quota is used up. Fill in the fields manually."}
	default:
		return &Warning{Kind: WarnFailed, Message: "Couldn't read the receipt. Fill in the fields manually."}
	}
}
