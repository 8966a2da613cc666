package record

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator assigns record IDs the way the persistence collaborator
// would: opaque and immutable
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service is the return store: it mirrors the user's records to the
// persistence collaborator and enforces the creation ceiling. Every
// operation takes an explicit Session rather than reading ambient auth
// state.
type Service struct {
	db          DB
	storage     Storage
	policy      Policy
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage, policy Policy) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		policy:      policy,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, policy Policy, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		policy:      policy,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Partial holds an edit's changed fields as raw form text. Nil means
// "leave unchanged"; a pointer to the empty string clears an optional
// field.
type Partial struct {
	StoreName    *string `json:"store_name,omitempty"`
	Price        *string `json:"price,omitempty"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	ReturnByDate *string `json:"return_by_date,omitempty"`
	ReturnedDate *string `json:"returned_date,omitempty"`
}

// today returns the current date as a date-only value
func (s *Service) today() time.Time {
	return DateOnly(s.timeSource.Now())
}

// Today exposes the current date-only value for derived-signal rendering
func (s *Service) Today() time.Time {
	return s.today()
}

// transient passes domain errors through untouched and wraps everything
// else as a retryable persistence failure
func transient(op string, err error) error {
	if errors.Is(err, ErrLimitExceeded) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrImageNotFound) {
		return err
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// List returns all of the session user's records, scalar fields only
func (s *Service) List(sess Session) ([]*ReturnRecord, error) {
	records, err := s.db.ListRecords(sess.UserID)
	if err != nil {
		return nil, transient("listing records", err)
	}
	return records, nil
}

// Get retrieves one record by ID
func (s *Service) Get(sess Session, id string) (*ReturnRecord, error) {
	rec, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return nil, transient("getting record", err)
	}
	return rec, nil
}

// Create validates a draft and persists a new record. The local count
// check is an early exit only; the database enforces the ceiling
// authoritatively inside its create transaction.
func (s *Service) Create(sess Session, draft Draft) (*ReturnRecord, error) {
	rec, err := Validate(draft, s.today(), s.policy)
	if err != nil {
		return nil, err
	}

	count, err := s.db.CountRecords(sess.UserID)
	if err != nil {
		return nil, transient("counting records", err)
	}
	if count >= MaxRecordsPerUser {
		return nil, ErrLimitExceeded
	}

	now := s.timeSource.Now()
	rec.ID = s.idGenerator.Generate()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.db.CreateRecord(sess.UserID, rec); err != nil {
		return nil, transient("creating record", err)
	}
	return rec, nil
}

// Update merges changed fields into the stored record, re-runs full
// validation on the merged result, and commits only if it passes. A
// failed edit changes nothing.
func (s *Service) Update(sess Session, id string, partial Partial) (*ReturnRecord, error) {
	existing, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return nil, transient("getting record for update", err)
	}

	draft := draftFromRecord(existing)
	if partial.StoreName != nil {
		draft.StoreName = *partial.StoreName
	}
	if partial.Price != nil {
		draft.Price = *partial.Price
	}
	if partial.PurchaseDate != nil {
		draft.PurchaseDate = *partial.PurchaseDate
	}
	if partial.ReturnByDate != nil {
		draft.ReturnByDate = *partial.ReturnByDate
	}
	if partial.ReturnedDate != nil {
		draft.ReturnedDate = *partial.ReturnedDate
	}

	merged, err := Validate(draft, s.today(), s.policy)
	if err != nil {
		return nil, err
	}

	merged.ID = existing.ID
	merged.HasReceipt = existing.HasReceipt
	merged.RefundReceived = existing.RefundReceived
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveRecord(sess.UserID, merged); err != nil {
		return nil, transient("saving record", err)
	}
	return merged, nil
}

// draftFromRecord renders a stored record back into raw form text so an
// edit can be validated exactly like a fresh draft
func draftFromRecord(rec *ReturnRecord) Draft {
	draft := Draft{
		StoreName:    rec.StoreName,
		Price:        FormatPrice(rec.PriceCents),
		PurchaseDate: FormatDate(rec.PurchaseDate),
	}
	if rec.ReturnByDate != nil {
		draft.ReturnByDate = FormatDate(*rec.ReturnByDate)
	}
	if rec.ReturnedDate != nil {
		draft.ReturnedDate = FormatDate(*rec.ReturnedDate)
	}
	return draft
}

// MarkReturned records the physical return date for a record
func (s *Service) MarkReturned(sess Session, id, dateStr string) (*ReturnRecord, error) {
	date, err := ParseDate(strings.TrimSpace(dateStr))
	if err != nil {
		return nil, validationErr(KindReturnedDateInvalid, "returned date must be a valid date (YYYY-MM-DD)")
	}

	rec, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return nil, transient("getting record", err)
	}
	if err := MarkReturned(rec, date, s.today()); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveRecord(sess.UserID, rec); err != nil {
		return nil, transient("saving record", err)
	}
	return rec, nil
}

// ToggleRefund flips refund receipt on a record
func (s *Service) ToggleRefund(sess Session, id string) (*ReturnRecord, error) {
	rec, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return nil, transient("getting record", err)
	}
	ToggleRefund(rec)
	rec.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveRecord(sess.UserID, rec); err != nil {
		return nil, transient("saving record", err)
	}
	return rec, nil
}

// MarkComplete forces refund receipt on. Idempotent.
func (s *Service) MarkComplete(sess Session, id string) (*ReturnRecord, error) {
	rec, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return nil, transient("getting record", err)
	}
	MarkComplete(rec)
	rec.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveRecord(sess.UserID, rec); err != nil {
		return nil, transient("saving record", err)
	}
	return rec, nil
}

// Delete removes a record and its stored image
func (s *Service) Delete(sess Session, id string) error {
	if err := s.db.DeleteRecord(sess.UserID, id); err != nil {
		return transient("deleting record", err)
	}
	if err := s.storage.DeleteImage(id); err != nil {
		// The record is gone; an orphaned image is not worth failing over
		slog.Warn("Failed to delete receipt image", "record_id", id, "error", err)
	}
	return nil
}

// SetImage stores the encoded receipt image for a record and flags the
// record. If the flag write fails after the image saved, the mismatch is
// logged and reconciled on a later write rather than rolled back.
func (s *Service) SetImage(sess Session, id string, data []byte) error {
	rec, err := s.db.GetRecord(sess.UserID, id)
	if err != nil {
		return transient("getting record", err)
	}

	if err := s.storage.SaveImage(id, data); err != nil {
		return transient("saving receipt image", err)
	}

	rec.HasReceipt = true
	rec.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveRecord(sess.UserID, rec); err != nil {
		slog.Warn("Image saved but record flag update failed", "record_id", id, "error", err)
	}
	return nil
}

// GetImage fetches the encoded receipt image for a record. Called lazily
// from detail views only, never during list fetches.
func (s *Service) GetImage(sess Session, id string) ([]byte, error) {
	if _, err := s.db.GetRecord(sess.UserID, id); err != nil {
		return nil, transient("getting record", err)
	}
	data, err := s.storage.GetImage(id)
	if err != nil {
		return nil, transient("getting receipt image", err)
	}
	return data, nil
}

// Reminders computes the current notification feed for the session user
func (s *Service) Reminders(sess Session) ([]Reminder, error) {
	records, err := s.db.ListRecords(sess.UserID)
	if err != nil {
		return nil, transient("listing records", err)
	}
	return Reminders(records, s.today()), nil
}

// AppVersion reads the app_version string from the config surface
func (s *Service) AppVersion() (string, error) {
	return s.db.AppVersion()
}
