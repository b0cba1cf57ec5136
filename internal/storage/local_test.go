package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingdesk/internal/storage"
)

func TestLocalStore_UploadListDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := storage.NewLocalStore(root)

	p2, err := s.Upload(ctx, strings.NewReader("b"), "A-100", "200-b.png")
	require.NoError(t, err)
	p1, err := s.Upload(ctx, strings.NewReader("a"), "A-100", "100-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/media/A-100/100-a.jpg", p1)
	assert.Equal(t, "/media/A-100/200-b.png", p2)

	// non-images in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(root, "A-100", "notes.txt"), []byte("x"), 0o644))

	got, err := s.List(ctx, "A-100")
	require.NoError(t, err)
	assert.Equal(t, []string{p1, p2}, got)

	full, err := s.FilePath(p1)
	require.NoError(t, err)
	b, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "a", string(b))

	require.NoError(t, s.Delete(ctx, p1, ""))
	require.NoError(t, s.Delete(ctx, "200-b.png", "A-100"))
	// already gone
	require.NoError(t, s.Delete(ctx, p1, ""))

	got, err = s.List(ctx, "A-100")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStore_ListUnknownArticle(t *testing.T) {
	s := storage.NewLocalStore(filepath.Join(t.TempDir(), "missing-root"))
	got, err := s.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := storage.NewLocalStore(t.TempDir())

	_, err := s.Upload(ctx, strings.NewReader("x"), "..", "a.jpg")
	assert.Error(t, err)
	_, err = s.Upload(ctx, strings.NewReader("x"), "A1", "../a.jpg")
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, "/media/../../etc/passwd", ""))
	_, err = s.FilePath("/media/A1/../../x.jpg")
	assert.Error(t, err)
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{
		"a.jpg": true, "a.JPEG": true, "b.png": true, "c.heic": true,
		"d.gif": false, "e": false, "f.jpg.exe": false,
	} {
		assert.Equal(t, want, storage.IsImage(name), name)
	}
}

func TestPublicIDFromURL(t *testing.T) {
	id, err := storage.PublicIDFromURL("https://res.cloudinary.com/demo/image/upload/v1712/listings/A-100/171-x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "listings/A-100/171-x", id)

	id, err = storage.PublicIDFromURL("https://res.cloudinary.com/demo/image/upload/listings/A-100/y.png")
	require.NoError(t, err)
	assert.Equal(t, "listings/A-100/y", id)

	_, err = storage.PublicIDFromURL("https://example.com/media/A-100/y.png")
	assert.Error(t, err)
}
