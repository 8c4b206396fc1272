package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// Blobs stores document bytes behind opaque locators, independent of where metadata lives.
type Blobs interface {
	// SaveBlob writes data under a fresh locator. Locators are never reused, so two records can never
	// share a blob.
	SaveBlob(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error)
	// LoadBlob returns the bytes at locator or ErrNotFound.
	LoadBlob(ctx context.Context, locator string) ([]byte, error)
	// DeleteBlob removes the bytes at locator. A missing blob is not an error.
	DeleteBlob(ctx context.Context, locator string) error
	// PresignBlob returns a time-limited download URL for locator.
	PresignBlob(ctx context.Context, locator string, expiry time.Duration) (string, error)
}

// BlobStore implements Blobs on any Storage backend.
type BlobStore struct {
	backend Storage
	prefix  string
	now     func() time.Time
}

var _ Blobs = (*BlobStore)(nil)

// NewBlobStore keys blobs as {prefix}/{yyyy}/{mm}/{uuid}{ext}.
func NewBlobStore(backend Storage, prefix string) *BlobStore {
	return &BlobStore{backend: backend, prefix: prefix, now: time.Now}
}

func (s *BlobStore) SaveBlob(ctx context.Context, data []byte, contentType string, meta map[string]string) (string, error) {
	now := s.now().UTC()
	key := path.Join(s.prefix, now.Format("2006"), now.Format("01"), uuid.NewString()+extFor(contentType))

	_, err := s.backend.Put(ctx, key, bytes.NewReader(data), PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("save blob: %w", err)
	}
	return key, nil
}

func (s *BlobStore) LoadBlob(ctx context.Context, locator string) ([]byte, error) {
	rc, _, err := s.backend.Get(ctx, locator)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *BlobStore) DeleteBlob(ctx context.Context, locator string) error {
	err := s.backend.Delete(ctx, locator)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *BlobStore) PresignBlob(ctx context.Context, locator string, expiry time.Duration) (string, error) {
	return s.backend.PresignGet(ctx, locator, expiry)
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
