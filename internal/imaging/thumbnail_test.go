package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"storefront/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*storage.FSStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFSStore(root, "/media")
	require.NoError(t, err)
	return store, root
}

func encodeTestImage(t *testing.T, width, height int, ext string) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	if ext == ".png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func writeOriginal(t *testing.T, store *storage.FSStore, name string, data []byte) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), name, bytes.NewReader(data), int64(len(data))))
}

func TestGenerateBoundsThumbnail(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	thumbnailer := NewThumbnailer(store, 100, 100)

	writeOriginal(t, store, "wide.jpg", encodeTestImage(t, 400, 200, ".jpg"))

	require.NoError(t, thumbnailer.Generate(ctx, "wide.jpg"))

	file, err := os.Open(filepath.Join(root, "wide_thumb.jpg"))
	require.NoError(t, err)
	defer file.Close()

	thumb, format, err := image.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 100)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 100)
	// Aspect ratio preserved: 400x200 fit into 100x100 is 100x50.
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 50, thumb.Bounds().Dy())
}

func TestGenerateKeepsPNGFormat(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	thumbnailer := NewThumbnailer(store, 64, 64)

	writeOriginal(t, store, "icon.png", encodeTestImage(t, 200, 200, ".png"))

	require.NoError(t, thumbnailer.Generate(ctx, "icon.png"))

	file, err := os.Open(filepath.Join(root, "icon_thumb.png"))
	require.NoError(t, err)
	defer file.Close()

	_, format, err := image.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestGenerateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	thumbnailer := NewThumbnailer(store, 100, 100)

	writeOriginal(t, store, "photo.jpg", encodeTestImage(t, 300, 300, ".jpg"))

	require.NoError(t, thumbnailer.Generate(ctx, "photo.jpg"))

	thumbPath := filepath.Join(root, "photo_thumb.jpg")
	before, err := os.Stat(thumbPath)
	require.NoError(t, err)

	// Second call must skip generation entirely.
	require.NoError(t, thumbnailer.Generate(ctx, "photo.jpg"))

	after, err := os.Stat(thumbPath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, before.Size(), after.Size())
}

func TestGenerateFailsOnUndecodableSource(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	thumbnailer := NewThumbnailer(store, 100, 100)

	writeOriginal(t, store, "broken.jpg", []byte("this is not an image"))

	err := thumbnailer.Generate(ctx, "broken.jpg")
	require.Error(t, err)

	// No corrupt or empty thumbnail is left behind.
	_, statErr := os.Stat(filepath.Join(root, "broken_thumb.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateFailsOnMissingSource(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	thumbnailer := NewThumbnailer(store, 100, 100)

	assert.Error(t, thumbnailer.Generate(ctx, "nowhere.jpg"))
}
