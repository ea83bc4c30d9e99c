package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"

	"storefront/internal/storage"
)

const jpegQuality = 90

// Thumbnailer produces bounded-size derivatives of stored originals.
type Thumbnailer struct {
	store storage.Store
	maxW  int
	maxH  int
}

func NewThumbnailer(store storage.Store, maxWidth, maxHeight int) *Thumbnailer {
	return &Thumbnailer{store: store, maxW: maxWidth, maxH: maxHeight}
}

// Generate writes the thumbnail for the stored original at name, resized to
// fit the bounding box preserving aspect ratio and encoded in the original's
// format. Generate-once: if the thumbnail object already exists the call is
// a no-op, no re-encode and no overwrite.
func (t *Thumbnailer) Generate(ctx context.Context, name string) error {
	thumbName := ThumbName(name)

	exists, err := t.store.Exists(ctx, thumbName)
	if err != nil {
		return fmt.Errorf("failed to check thumbnail %s: %w", thumbName, err)
	}
	if exists {
		return nil
	}

	reader, err := t.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to open original %s: %w", name, err)
	}
	defer reader.Close()

	src, _, err := image.Decode(reader)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	g := gift.New(gift.ResizeToFit(t.maxW, t.maxH, gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	var buf bytes.Buffer
	if err := encode(&buf, dst, name); err != nil {
		return fmt.Errorf("failed to encode thumbnail %s: %w", thumbName, err)
	}

	if err := t.store.Write(ctx, thumbName, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("failed to write thumbnail %s: %w", thumbName, err)
	}

	return nil
}

func encode(buf *bytes.Buffer, img image.Image, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Encode(buf, img)
	default:
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality})
	}
}
