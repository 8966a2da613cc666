package record

import (
	"fmt"
	"time"
)

const (
	// Days after the returned date before the refund reminder fires
	refundReminderAfterDays = 3
	// Days before the return-by date during which a record is "due soon"
	dueSoonWindowDays = 3
)

// Classification is the derived deadline state of a record. It is
// recomputed on every access from the stored fields and the current date,
// never cached.
type Classification string

const (
	ClassNone    Classification = ""
	ClassDueSoon Classification = "due_soon"
	ClassOverdue Classification = "overdue"
)

// MarkReturned records the date the item was physically returned. The date
// must fall within [purchaseDate, today]. The record stays pending;
// returned-ness is a sub-flag, not a top-level state.
func MarkReturned(rec *ReturnRecord, date, today time.Time) error {
	if date.Before(rec.PurchaseDate) {
		return validationErr(KindReturnedBeforePurchase, "returned date cannot be before the purchase date")
	}
	if date.After(today) {
		return validationErr(KindReturnedInFuture, "returned date cannot be in the future")
	}
	d := DateOnly(date)
	rec.ReturnedDate = &d
	return nil
}

// ToggleRefund flips refund receipt; status follows
func ToggleRefund(rec *ReturnRecord) {
	rec.RefundReceived = !rec.RefundReceived
}

// MarkComplete forces refund receipt on. Idempotent one-directional
// convenience over ToggleRefund.
func MarkComplete(rec *ReturnRecord) {
	rec.RefundReceived = true
}

// NeedsRefundReminder reports whether the user should be nudged to check
// for the refund: item returned at least refundReminderAfterDays ago and
// the refund not yet received.
func NeedsRefundReminder(rec *ReturnRecord, today time.Time) bool {
	if rec.ReturnedDate == nil || rec.RefundReceived {
		return false
	}
	return daysBetween(*rec.ReturnedDate, today) >= refundReminderAfterDays
}

// Classify derives the deadline state of a record for the given date.
// Overdue means the return window has closed without the refund arriving;
// due soon means the window closes within dueSoonWindowDays.
func Classify(rec *ReturnRecord, today time.Time) Classification {
	if rec.ReturnByDate == nil || rec.RefundReceived {
		return ClassNone
	}
	if today.After(*rec.ReturnByDate) {
		return ClassOverdue
	}
	if daysBetween(today, *rec.ReturnByDate) <= dueSoonWindowDays {
		return ClassDueSoon
	}
	return ClassNone
}

// Reminder is one notification tuple fed to the delivery collaborator
type Reminder struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Reminders computes the notification feed for a record set at a given
// date. Pure function of its inputs; delivery mechanics live elsewhere.
func Reminders(records []*ReturnRecord, today time.Time) []Reminder {
	reminders := make([]Reminder, 0)
	for _, rec := range records {
		switch Classify(rec, today) {
		case ClassOverdue:
			reminders = append(reminders, Reminder{
				Title: "Return overdue",
				Body:  fmt.Sprintf("The return window for %s closed on %s.", rec.StoreName, FormatDate(*rec.ReturnByDate)),
			})
		case ClassDueSoon:
			reminders = append(reminders, Reminder{
				Title: "Return due soon",
				Body:  fmt.Sprintf("Return your %s purchase by %s.", rec.StoreName, FormatDate(*rec.ReturnByDate)),
			})
		}
		if NeedsRefundReminder(rec, today) {
			reminders = append(reminders, Reminder{
				Title: "Check your refund",
				Body:  fmt.Sprintf("You returned your %s purchase on %s but haven't marked the refund as received.", rec.StoreName, FormatDate(*rec.ReturnedDate)),
			})
		}
	}
	return reminders
}
