// Package upload validates and stores media files attached to article
// writes. Files are persisted under a flat directory keyed by a
// generated name; the article record only ever references that name.
package upload

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Validation failures. Both fire before any article mutation.
var (
	ErrInvalidType = errors.New("Invalid file type")
	ErrTooLarge    = errors.New("File too large")
)

// allowedTypes is the MIME allow-list for article media.
var allowedTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"video/mp4":       {},
	"video/quicktime": {},
}

// Saver stores uploaded files under a fixed directory.
type Saver struct {
	dir      string
	maxBytes int64
}

// NewSaver creates the uploads directory if needed and returns a Saver
// enforcing the per-file size cap.
func NewSaver(dir string, maxBytes int64) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Saver{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the uploads directory.
func (s *Saver) Dir() string {
	return s.dir
}

// Save stores the first file posted under field, if any, and returns
// the generated filename. A request without that field yields ("",
// nil). Disallowed types and oversized files are rejected without
// writing anything.
func (s *Saver) Save(form *multipart.Form, field string) (string, error) {
	if form == nil {
		return "", nil
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return "", nil
	}
	header := headers[0]

	contentType := strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0])
	if _, ok := allowedTypes[contentType]; !ok {
		return "", ErrInvalidType
	}
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	// header.Size comes from the parsed form, but cap the copy anyway.
	limit := s.maxBytes
	if limit <= 0 {
		limit = header.Size
	}
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		os.Remove(dst.Name())

		return "", err
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(dst.Name())

		return "", ErrTooLarge
	}

	return name, nil
}
