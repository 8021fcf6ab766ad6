// Package storage keeps uploaded supporting documents on local disk.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "reimburse/internal/errors"
)

// PublicPrefix is the URL path documents are served under.
const PublicPrefix = "/Documents/"

var allowedMIME = []string{"application/pdf", "image/png", "image/jpeg"}

// DocumentStore saves and removes request documents.
type DocumentStore interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalDocumentStore writes documents into a directory served statically.
type LocalDocumentStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewLocalDocumentStore creates the document directory if needed.
func NewLocalDocumentStore(dir, baseURL string, maxBytes int64) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &LocalDocumentStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Dir returns the directory documents are written to.
func (s *LocalDocumentStore) Dir() string {
	return s.dir
}

// Save stores content as <uuid>_<filename> and returns its public URL.
// Only PDF, PNG and JPEG content up to the configured size is accepted.
func (s *LocalDocumentStore) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	if content == nil {
		return "", apperrors.ErrDocumentMissing
	}
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return "", apperrors.ErrDocumentMissing
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperrors.ErrInvalidDocument.With("larger than %d bytes", s.maxBytes)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedMIME...) {
		return "", apperrors.ErrInvalidDocument.With("content type %s", mtype.String())
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + "_" + sanitizeFilename(filename, mtype.Extension())
	if err := writeFile(filepath.Join(s.dir, name), data); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return s.baseURL + PublicPrefix + name, nil
}

// Delete removes the document behind url. Unknown or foreign URLs are ignored.
func (s *LocalDocumentStore) Delete(_ context.Context, url string) error {
	idx := strings.LastIndex(url, PublicPrefix)
	if idx < 0 {
		return nil
	}
	name := filepath.Base(url[idx+len(PublicPrefix):])
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

func sanitizeFilename(filename, ext string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "document" + ext
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
