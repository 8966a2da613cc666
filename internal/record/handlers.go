package record

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/return-tracker/internal/imaging"
	"github.com/zombor/return-tracker/internal/ocr"
)

// recordView is a record plus its derived signals, recomputed on every
// render so they can never go stale
type recordView struct {
	*ReturnRecord
	Status              string         `json:"status"`
	Classification      Classification `json:"classification,omitempty"`
	NeedsRefundReminder bool           `json:"needs_refund_reminder"`
}

func (s *Server) view(rec *ReturnRecord, today time.Time) recordView {
	return recordView{
		ReturnRecord:        rec,
		Status:              rec.Status(),
		Classification:      Classify(rec, today),
		NeedsRefundReminder: NeedsRefundReminder(rec, today),
	}
}

func (s *Server) views(records []*ReturnRecord) []recordView {
	today := s.service.Today()
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, s.view(rec, today))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes and one specific,
// cause-naming message each
func writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   verr.Kind,
			"message": verr.Message,
		})
		return
	}

	var ierr *imaging.Error
	if errors.As(err, &ierr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   ierr.Kind,
			"message": "The receipt photo could not be processed.",
		})
		return
	}

	switch {
	case errors.Is(err, ErrLimitExceeded):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "RETURN_LIMIT_REACHED",
			"message": "You already track the maximum of 25 returns. Delete one to add another.",
		})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "NOT_FOUND",
			"message": "No such record.",
		})
	case errors.Is(err, ErrImageNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "IMAGE_NOT_FOUND",
			"message": "This record has no stored receipt photo.",
		})
	case errors.Is(err, ErrIntakeBusy):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "DRAFT_BUSY",
			"message": "The draft is still processing. Try again in a moment.",
		})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "TRANSIENT",
			"message": "Something went wrong talking to storage. Try the action again.",
		})
	}
}

// handleListRecords returns all of the user's records, scalar fields only
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.List(s.session(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.views(records))
}

// handleCreateRecord validates a submitted draft and creates the record
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": "Request body must be a JSON draft.",
		})
		return
	}

	rec, err := s.service.Create(s.session(r), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(rec, s.service.Today()))
}

// handleGetRecord returns one record
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(s.session(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, s.service.Today()))
}

// handleUpdateRecord applies a partial edit, all-or-nothing
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var partial Partial
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": "Request body must be a JSON partial edit.",
		})
		return
	}

	rec, err := s.service.Update(s.session(r), r.PathValue("id"), partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, s.service.Today()))
}

// handleDeleteRecord removes a record
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(s.session(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkReturned records the date the item went back to the store
func (s *Server) handleMarkReturned(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": `Request body must be {"date": "YYYY-MM-DD"}.`,
		})
		return
	}

	rec, err := s.service.MarkReturned(s.session(r), r.PathValue("id"), body.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, s.service.Today()))
}

// handleToggleRefund flips refund receipt
func (s *Server) handleToggleRefund(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.ToggleRefund(s.session(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, s.service.Today()))
}

// handleMarkComplete forces refund receipt on
func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.MarkComplete(s.session(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(rec, s.service.Today()))
}

// handleGetImage serves the stored receipt image. Fetched lazily from
// detail views only; list responses never carry image bytes.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetImage(s.session(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// handlePutImage runs a captured photo through the compression pipeline
// and stores the result against the record
func (s *Server) handlePutImage(w http.ResponseWriter, r *http.Request) {
	raw := s.readUpload(w, r)
	if raw == nil {
		return
	}

	img, err := imaging.Compress(r.Context(), raw, r.Header.Get("Content-Type"), s.compressOpts)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.SetImage(s.session(r), r.PathValue("id"), img.Data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExtract compresses an uploaded photo and runs advisory field
// extraction over it. The response always carries a fields object; a
// warning explains any soft failure.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	raw := s.readUpload(w, r)
	if raw == nil {
		return
	}

	img, err := imaging.Compress(r.Context(), raw, r.Header.Get("Content-Type"), s.compressOpts)
	if err != nil {
		writeError(w, err)
		return
	}

	type extractResponse struct {
		Fields  ocr.PartialFields `json:"fields"`
		Warning *ocr.Warning      `json:"warning,omitempty"`
	}

	if s.assist == nil {
		writeJSON(w, http.StatusOK, extractResponse{
			Warning: &ocr.Warning{
				Kind:    "EXTRACTION_UNAVAILABLE",
				Message: "No extraction backend is configured. Fill in the fields manually.",
			},
		})
		return
	}

	fields, warning := s.assist.Autofill(r.Context(), img.Data)
	writeJSON(w, http.StatusOK, extractResponse{Fields: fields, Warning: warning})
}

// readUpload reads a raw image body, bounded a little above the pipeline's
// own source ceiling so Compress gets to report the specific error. A nil
// result means the response has already been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) []byte {
	limit := int64(s.compressOpts.MaxSourceBytes)
	if limit == 0 {
		limit = 8 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": "Error reading uploaded image.",
		})
		return nil
	}
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "BAD_REQUEST",
			"message": "No image data provided.",
		})
		return nil
	}
	return raw
}

// handleReminders returns the current notification feed
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.service.Reminders(s.session(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

// handleVersion returns the app_version string from the config surface
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := s.service.AppVersion()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"app_version": version})
}
