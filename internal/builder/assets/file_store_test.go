package assets

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(size int) []byte {
	head := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if size < len(head) {
		size = len(head)
	}
	out := make([]byte, size)
	copy(out, head)
	return out
}

func TestUploadListDelete(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/assets/", 0)
	ctx := context.Background()

	a, err := store.Upload(ctx, "owner-1", "My Photo.PNG", bytes.NewReader(pngBytes(512)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(a.ID, "-my-photo.png"))
	assert.Equal(t, "my-photo.png", a.Name)
	assert.Equal(t, "/assets/owner-1/"+a.ID, a.URL)
	assert.Equal(t, int64(512), a.Size)
	assert.Equal(t, "image/png", a.ContentType)

	list, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "image/png", list[0].ContentType)

	require.NoError(t, store.Delete(ctx, "owner-1", a.ID))
	assert.ErrorIs(t, store.Delete(ctx, "owner-1", a.ID), ErrNotFound)

	list, err = store.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListUnknownOwnerIsEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/assets", 0)
	list, err := store.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/assets", 0)
	_, err := store.Upload(context.Background(), "o", "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadEnforcesQuota(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, "/assets", 1000)
	ctx := context.Background()

	_, err := store.Upload(ctx, "o", "a.png", bytes.NewReader(pngBytes(600)))
	require.NoError(t, err)

	_, err = store.Upload(ctx, "o", "b.png", bytes.NewReader(pngBytes(600)))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// временные файлы не остаются и не съедают квоту
	entries, err := os.ReadDir(store.OwnerDir("o"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.Upload(ctx, "o", "c.png", bytes.NewReader(pngBytes(400)))
	assert.NoError(t, err)

	_, err = store.Upload(ctx, "o", "d.png", bytes.NewReader(pngBytes(20)))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRejectsPathTraversal(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/assets", 0)
	ctx := context.Background()

	_, err := store.Upload(ctx, "../etc", "x.png", bytes.NewReader(pngBytes(64)))
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, store.Delete(ctx, "o", "../secret"), ErrInvalidName)
	_, err = store.List(ctx, "a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestUploadHonoursCancelledContext(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/assets", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, "o", "x.png", bytes.NewReader(pngBytes(8192)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Photo 1.JPG":         "photo-1.jpg",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.png`: "a-b.png",
		"":                    "file",
		"...":                 "file",
		"привет.mp3":          "mp3",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeName(in), in)
	}
}

func TestNameFromID(t *testing.T) {
	id := newAssetID("song.mp3")
	assert.Equal(t, "song.mp3", nameFromID(id))
	assert.Equal(t, "plain", nameFromID("plain"))
}
