package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reimburse/internal/errors"
)

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func newStore(t *testing.T, maxBytes int64) *LocalDocumentStore {
	t.Helper()
	s, err := NewLocalDocumentStore(filepath.Join(t.TempDir(), "Documents"), "http://localhost:8080/", maxBytes)
	require.NoError(t, err)
	return s
}

func TestSaveAndDelete(t *testing.T) {
	s := newStore(t, 1<<20)
	ctx := context.Background()

	url, err := s.Save(ctx, "taxi receipt.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/Documents/"))
	assert.True(t, strings.HasSuffix(url, "_taxi_receipt.pdf"))

	name := filepath.Base(url)
	stored, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, pdfContent, stored)

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(s.Dir(), name))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is harmless
	assert.NoError(t, s.Delete(ctx, url))
}

func TestSaveRejectsInvalidContent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		maxBytes int64
		content  []byte
		want     error
	}{
		{name: "empty", maxBytes: 1 << 20, content: nil, want: apperrors.ErrDocumentMissing},
		{name: "plain text", maxBytes: 1 << 20, content: []byte("just some text"), want: apperrors.ErrInvalidDocument},
		{name: "too large", maxBytes: 10, content: pdfContent, want: apperrors.ErrInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.maxBytes)
			_, err := s.Save(ctx, "file.pdf", bytes.NewReader(tt.content))
			assert.ErrorIs(t, err, tt.want)

			entries, err := os.ReadDir(s.Dir())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd", ".pdf"))
	assert.Equal(t, "a_b.pdf", sanitizeFilename(`C:\tmp\a b.pdf`, ".pdf"))
	assert.Equal(t, "document.png", sanitizeFilename("", ".png"))
}

func TestDeleteIgnoresForeignURL(t *testing.T) {
	s := newStore(t, 1<<20)
	assert.NoError(t, s.Delete(context.Background(), "https://example.com/other/file.pdf"))
}
