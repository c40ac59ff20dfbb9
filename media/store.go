//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// Package media stores uploaded image payloads on local disk and hands back
// opaque refs. Messages and profiles only ever carry the ref, never bytes.
package media

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "quick-chat/errors"
)

type IStore interface {
	SaveDataURL(dataURL string) (string, error)
	Open(ref string) (string, error)
}

type Store struct {
	dir string
	log *slog.Logger
}

func NewStore(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// SaveDataURL decodes a base64 data-URL as sent by the web client, sniffs
// the real content type, and writes the bytes under a fresh UUID name.
// The declared mime type in the URL is ignored; only the sniffed one counts.
func (s *Store) SaveDataURL(dataURL string) (string, error) {
	_, payload, found := strings.Cut(dataURL, ",")
	if !found || !strings.HasPrefix(dataURL, "data:") {
		return "", apperrors.ErrInvalidImage
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", apperrors.ErrInvalidImage
	}

	detected := mimetype.Detect(raw)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", apperrors.ErrInvalidImage
	}

	name := uuid.NewString() + detected.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return "", fmt.Errorf("media write: %w", err)
	}

	s.log.Debug("Image stored", "ref", name, "mime", detected.String(), "bytes", len(raw))
	return name, nil
}

// Open resolves a ref back to an absolute file path for serving. Refs are
// uuid-with-extension names, so anything with a path separator is rejected.
func (s *Store) Open(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, "/\\") {
		return "", apperrors.ErrInvalidImage
	}
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.ErrMediaNotFound
	}
	return path, nil
}
