package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/chai2010/webp"
)

// WebPContentType is the content type of re-encoded images.
const WebPContentType = "image/webp"

// Normalizer re-encodes raster images to WebP before they are stored.
type Normalizer struct {
	quality int
}

// NewNormalizer returns a Normalizer. A quality outside 1..100 disables
// re-encoding and returns nil.
func NewNormalizer(quality int) *Normalizer {
	if quality <= 0 || quality > 100 {
		return nil
	}
	return &Normalizer{quality: quality}
}

// Normalize returns the WebP encoding of data. Blobs that cannot be decoded
// (svg, ico, truncated downloads) are returned unchanged. A nil Normalizer is
// a no-op.
func (n *Normalizer) Normalize(contentType string, data []byte) (string, []byte) {
	if n == nil || contentType == WebPContentType {
		return contentType, data
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("imaging: keep original", "content_type", contentType, "error", err)
		return contentType, data
	}
	out, err := n.encode(img)
	if err != nil {
		slog.Warn("imaging: webp encode failed", "format", format, "error", err)
		return contentType, data
	}
	b := img.Bounds()
	slog.Debug("imaging: re-encoded", "format", format, "width", b.Dx(), "height", b.Dy(), "bytes_in", len(data), "bytes_out", len(out))
	return WebPContentType, out
}

func (n *Normalizer) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(n.quality)}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
