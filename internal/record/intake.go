package record

import (
	"context"
	"errors"
	"sync"

	"github.com/zombor/return-tracker/internal/imaging"
	"github.com/zombor/return-tracker/internal/ocr"
)

// Phase is the intake flow state. One explicit field, written only by the
// controller, replaces inferring busyness from in-flight call state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCompressing Phase = "compressing"
	PhaseExtracting  Phase = "extracting"
	PhaseReady       Phase = "ready"
)

// ErrIntakeBusy is returned when submit or attach is attempted while
// compression or extraction is in flight
var ErrIntakeBusy = errors.New("draft is busy")

// Warning is a non-fatal condition surfaced to the user without blocking
// the flow that produced it
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const warnImageSaveFailed = "IMAGE_SAVE_FAILED"

// Compressor is the image pipeline entry point the intake depends on
type Compressor func(ctx context.Context, raw []byte, contentType string) (*imaging.EncodedImage, error)

// Autofiller is the advisory extraction adapter
type Autofiller interface {
	Autofill(ctx context.Context, imageData []byte) (ocr.PartialFields, *ocr.Warning)
}

// Intake drives one draft record from capture to submission: attach and
// compress a photo, optionally autofill from it, then validate and
// create. Submission is gated on the phase so a slow compression or
// extraction can never race a submit.
type Intake struct {
	mu       sync.Mutex
	phase    Phase
	gen      int
	draft    Draft
	image    *imaging.EncodedImage
	compress Compressor
	assist   Autofiller
}

// NewIntake creates an intake controller. assist may be nil when no
// extraction backend is configured.
func NewIntake(compress Compressor, assist Autofiller) *Intake {
	return &Intake{
		phase:    PhaseIdle,
		compress: compress,
		assist:   assist,
	}
}

// Phase returns the current flow state
func (i *Intake) Phase() Phase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}

// Busy reports whether compression or extraction is in flight
func (i *Intake) Busy() bool {
	p := i.Phase()
	return p == PhaseCompressing || p == PhaseExtracting
}

// Draft returns a copy of the current draft
func (i *Intake) Draft() Draft {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.draft
}

// Image returns the compressed receipt image, if one is attached
func (i *Intake) Image() *imaging.EncodedImage {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.image
}

// EditDraft applies a user edit to the draft
func (i *Intake) EditDraft(fn func(*Draft)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn(&i.draft)
}

// AttachPhoto compresses a captured photo into the draft. Failures leave
// the draft's image unset and do not block later submission without a
// photo.
func (i *Intake) AttachPhoto(ctx context.Context, raw []byte, contentType string) error {
	i.mu.Lock()
	if i.phase == PhaseCompressing || i.phase == PhaseExtracting {
		i.mu.Unlock()
		return ErrIntakeBusy
	}
	i.gen++
	gen := i.gen
	i.phase = PhaseCompressing
	i.mu.Unlock()

	img, err := i.compress(ctx, raw, contentType)

	i.mu.Lock()
	defer i.mu.Unlock()
	if gen != i.gen {
		// Reset happened while we were compressing; the result belongs
		// to an abandoned draft
		return nil
	}
	if err != nil {
		i.image = nil
		i.phase = PhaseIdle
		return err
	}
	i.image = img
	i.phase = PhaseReady
	return nil
}

// Autofill runs one advisory extraction over the attached image and
// merges the result into the draft, filling blanks only. User-entered
// values are never overwritten by a lower-confidence guess.
func (i *Intake) Autofill(ctx context.Context) *ocr.Warning {
	i.mu.Lock()
	if i.assist == nil || i.image == nil {
		i.mu.Unlock()
		return nil
	}
	if i.phase == PhaseCompressing || i.phase == PhaseExtracting {
		i.mu.Unlock()
		return nil
	}
	i.gen++
	gen := i.gen
	i.phase = PhaseExtracting
	imageData := i.image.Data
	i.mu.Unlock()

	fields, warning := i.assist.Autofill(ctx, imageData)

	i.mu.Lock()
	defer i.mu.Unlock()
	if gen != i.gen {
		return nil
	}
	i.draft = applyExtracted(i.draft, fields)
	i.phase = PhaseReady
	return warning
}

// Submit validates the draft and creates the record, then stores the
// attached image if present. An image-store failure surfaces as a
// warning on an otherwise successful create.
func (i *Intake) Submit(svc *Service, sess Session) (*ReturnRecord, *Warning, error) {
	i.mu.Lock()
	if i.phase == PhaseCompressing || i.phase == PhaseExtracting {
		i.mu.Unlock()
		return nil, nil, ErrIntakeBusy
	}
	draft := i.draft
	image := i.image
	i.mu.Unlock()

	rec, err := svc.Create(sess, draft)
	if err != nil {
		return nil, nil, err
	}

	var warning *Warning
	if image != nil {
		if err := svc.SetImage(sess, rec.ID, image.Data); err != nil {
			warning = &Warning{
				Kind:    warnImageSaveFailed,
				Message: "The record was saved but the receipt photo could not be stored.",
			}
		} else {
			rec.HasReceipt = true
		}
	}

	i.Reset()
	return rec, warning, nil
}

// Reset abandons the draft. Any in-flight compression or extraction
// result is discarded when it arrives.
func (i *Intake) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen++
	i.phase = PhaseIdle
	i.draft = Draft{}
	i.image = nil
}

// applyExtracted merges extracted fields into a draft as one immutable
// step: a pure reducer, fill-blanks-only
func applyExtracted(d Draft, f ocr.PartialFields) Draft {
	if d.StoreName == "" && f.StoreName != "" {
		d.StoreName = f.StoreName
	}
	if d.Price == "" && f.PriceCents != nil {
		d.Price = FormatPrice(*f.PriceCents)
	}
	if d.PurchaseDate == "" && f.PurchaseDate != nil {
		d.PurchaseDate = FormatDate(*f.PurchaseDate)
	}
	if d.ReturnByDate == "" && f.ReturnByDate != nil {
		d.ReturnByDate = FormatDate(*f.ReturnByDate)
	}
	return d
}
