package record

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for the receipt image store. Images are
// keyed by record ID, one encoded image per record, and are read/written
// independently of the record's scalar fields so list fetches never pay
// for image bytes.
type Storage interface {
	// SaveImage stores the encoded image for a record
	SaveImage(recordID string, data []byte) error

	// GetImage retrieves the encoded image for a record. Returns
	// ErrImageNotFound when no image is stored.
	GetImage(recordID string) ([]byte, error)

	// DeleteImage removes the image for a record
	DeleteImage(recordID string) error
}

// LocalStorage implements the Storage interface using the local
// filesystem, one JPEG file per record ID
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

func (l *LocalStorage) imagePath(recordID string) string {
	return filepath.Join(l.basePath, recordID+".jpg")
}

// SaveImage stores the encoded image for a record
func (l *LocalStorage) SaveImage(recordID string, data []byte) error {
	if err := os.WriteFile(l.imagePath(recordID), data, 0644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

// GetImage retrieves the encoded image for a record
func (l *LocalStorage) GetImage(recordID string) ([]byte, error) {
	data, err := os.ReadFile(l.imagePath(recordID))
	if os.IsNotExist(err) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// DeleteImage removes the image for a record
func (l *LocalStorage) DeleteImage(recordID string) error {
	err := os.Remove(l.imagePath(recordID))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}
