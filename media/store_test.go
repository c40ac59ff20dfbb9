package media

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "quick-chat/errors"
)

// 1x1 transparent PNG
const pngPayload = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	return store
}

func TestStore_SaveDataURL_And_Open(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	ref, err := store.SaveDataURL("data:image/png;base64," + pngPayload)
	req.NoError(err)
	req.True(strings.HasSuffix(ref, ".png"))

	path, err := store.Open(ref)
	req.NoError(err)

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.NotEmpty(data)
}

func TestStore_SaveDataURL_Sniffs_Real_Type(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	// The declared mime type lies; the payload is still a PNG
	ref, err := store.SaveDataURL("data:application/pdf;base64," + pngPayload)
	req.NoError(err)
	req.True(strings.HasSuffix(ref, ".png"))
}

func TestStore_SaveDataURL_Rejections(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name    string
		dataURL string
	}{
		{"Not a data URL", "https://example.com/image.png"},
		{"Missing payload", "data:image/png;base64"},
		{"Broken base64", "data:image/png;base64,!!!not-base64!!!"},
		{"Not an image", "data:text/plain;base64,aGVsbG8gd29ybGQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SaveDataURL(tt.dataURL)
			require.ErrorIs(t, err, apperrors.ErrInvalidImage)
		})
	}
}

func TestStore_Open_Rejects_Path_Traversal(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Open("../etc/passwd")
	req.ErrorIs(err, apperrors.ErrInvalidImage)

	_, err = store.Open("unknown-ref.png")
	req.ErrorIs(err, apperrors.ErrMediaNotFound)
}
