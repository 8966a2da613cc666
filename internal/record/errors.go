package record

import (
	"errors"
	"fmt"
)

// Validation error kinds. Each kind names the first violation found; the
// validator never aggregates multiple violations into one error.
const (
	KindEmptyStoreName         = "EMPTY_STORE_NAME"
	KindStoreNameTooLong       = "STORE_NAME_TOO_LONG"
	KindPriceInvalid           = "PRICE_INVALID"
	KindPriceOutOfRange        = "PRICE_OUT_OF_RANGE"
	KindPurchaseDateMissing    = "PURCHASE_DATE_MISSING"
	KindPurchaseDateInvalid    = "PURCHASE_DATE_INVALID"
	KindPurchaseDateFuture     = "PURCHASE_DATE_FUTURE"
	KindReturnedDateInvalid    = "RETURNED_DATE_INVALID"
	KindReturnedBeforePurchase = "RETURNED_BEFORE_PURCHASE"
	KindReturnedInFuture       = "RETURNED_IN_FUTURE"
	KindReturnByInvalid        = "RETURN_BY_INVALID"
	KindReturnByBeforePurchase = "RETURN_BY_BEFORE_PURCHASE"
	KindReturnByPast           = "RETURN_BY_PAST"
)

// ValidationError is a user-fixable, field-addressable validation failure
type ValidationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func validationErr(kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrLimitExceeded is returned when a user already owns the maximum number
// of records. The database enforces it authoritatively; the service also
// checks it up front to avoid a wasted write.
var ErrLimitExceeded = errors.New("return limit reached")

// ErrNotFound is returned when a record does not exist for the session user
var ErrNotFound = errors.New("record not found")

// ErrImageNotFound is returned when a record has no stored receipt image.
// A record may report HasReceipt while the image store has no bytes for it;
// the two stores reconcile eventually rather than transactionally.
var ErrImageNotFound = errors.New("receipt image not found")

// TransientError wraps a persistence failure the user may retry. It is
// surfaced, never auto-retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
