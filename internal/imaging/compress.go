package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"golang.org/x/image/draw"
)

// Error kinds for image processing failures
const (
	KindTooLarge        = "IMAGE_TOO_LARGE"
	KindTimeout         = "IMAGE_PROCESSING_TIMEOUT"
	KindDecodeFailed    = "IMAGE_DECODE_FAILED"
	KindEncodeFailed    = "IMAGE_ENCODE_FAILED"
	KindEncodedTooSmall = "IMAGE_ENCODED_TOO_SMALL"
)

// Error is an image processing failure. Whatever the kind, the caller
// ends up with no image: partial results are never returned.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// EncodedImage is a bounded-size JPEG ready for storage and OCR
type EncodedImage struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Options bound the pipeline. Zero values take the defaults below.
type Options struct {
	MaxSourceBytes  int           // reject larger inputs before decoding
	MaxWidth        int           // downscale wider images, preserving aspect
	JPEGQuality     int           // lossy re-encode quality factor
	MinEncodedBytes int           // guard against near-empty encoder output
	Timeout         time.Duration // hard deadline for the whole pipeline
}

const (
	defaultMaxSourceBytes  = 8 << 20 // 8MB
	defaultMaxWidth        = 1200
	defaultJPEGQuality     = 65
	defaultMinEncodedBytes = 512
	defaultTimeout         = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxSourceBytes == 0 {
		o.MaxSourceBytes = defaultMaxSourceBytes
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = defaultMaxWidth
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = defaultJPEGQuality
	}
	if o.MinEncodedBytes == 0 {
		o.MinEncodedBytes = defaultMinEncodedBytes
	}
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Compress turns an arbitrary camera/file-picker capture into a
// bounded-size JPEG. Oversized inputs are rejected before any decode
// work; images wider than MaxWidth are downscaled preserving aspect
// ratio, never upscaled. On timeout the late result is discarded.
func Compress(ctx context.Context, raw []byte, contentType string, opts Options) (*EncodedImage, error) {
	opts = opts.withDefaults()

	if len(raw) == 0 {
		return nil, &Error{Kind: KindDecodeFailed, Err: fmt.Errorf("empty input")}
	}
	if len(raw) > opts.MaxSourceBytes {
		return nil, &Error{Kind: KindTooLarge, Err: fmt.Errorf("input is %d bytes, limit is %d", len(raw), opts.MaxSourceBytes)}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		img *EncodedImage
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := compress(raw, contentType, opts)
		done <- result{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		// The worker's late result lands in the buffered channel and is
		// never read; nothing of it reaches the draft.
		return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
	case r := <-done:
		return r.img, r.err
	}
}

func compress(raw []byte, contentType string, opts Options) (*EncodedImage, error) {
	img, err := decode(raw, contentType)
	if err != nil {
		return nil, &Error{Kind: KindDecodeFailed, Err: err}
	}

	img = downscale(img, opts.MaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, &Error{Kind: KindEncodeFailed, Err: err}
	}
	if buf.Len() < opts.MinEncodedBytes {
		return nil, &Error{Kind: KindEncodedTooSmall, Err: fmt.Errorf("encoder produced %d bytes", buf.Len())}
	}

	bounds := img.Bounds()
	return &EncodedImage{
		Data:        buf.Bytes(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ContentType: "image/jpeg",
	}, nil
}

// decode handles the capture formats phones actually produce: JPEG, PNG,
// GIF, HEIC/HEIF, and single-page PDF receipts
func decode(raw []byte, contentType string) (image.Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	if mimeType == "application/pdf" {
		return pdfFirstPage(raw)
	}
	if isHEICFormat(raw) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pdfFirstPage renders the first page of a PDF receipt to an image
func pdfFirstPage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// downscale scales an image down to at most maxWidth, preserving aspect
// ratio. Narrower images pass through untouched; height is never capped
// beyond the aspect-preserving scale.
func downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	if width <= maxWidth {
		return img
	}

	height := bounds.Dy() * maxWidth / width
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// isHEICFormat checks for the HEIC/HEIF ftyp box signature; Go's standard
// image package can't decode the format iPhones default to
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
