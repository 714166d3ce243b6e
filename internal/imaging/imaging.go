// Package imaging checks uploaded images against their claimed type and
// shrinks oversized ones.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/erazemk/najdeno/internal/model"
)

// JPEGQuality is the compression quality for re-encoded JPEGs.
const JPEGQuality = 85

// Processor sniffs and downscales images.
type Processor struct {
	maxDimension int
}

// NewProcessor returns a processor that shrinks JPEG and PNG images so
// neither side exceeds maxDimension. A non-positive maxDimension disables
// downscaling.
func NewProcessor(maxDimension int) *Processor {
	return &Processor{maxDimension: maxDimension}
}

// Process verifies that data really is an image of the type named by ext
// (without the dot) and returns the bytes to store. JPEG and PNG images
// larger than the limit are re-encoded in their own format; anything else
// is returned unchanged.
func (p *Processor) Process(data []byte, ext string) ([]byte, error) {
	ext = normalizeExt(ext)

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") || normalizeExt(detected.Extension()) != ext {
		return nil, fmt.Errorf("%w: content is %s, not %s", model.ErrUnsupportedAssetType, detected.String(), ext)
	}

	switch ext {
	case "jpg", "png":
	default:
		return data, nil
	}

	if p.maxDimension <= 0 {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image header: %w", model.ErrUnsupportedAssetType, err)
	}
	if cfg.Width <= p.maxDimension && cfg.Height <= p.maxDimension {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %w", model.ErrUnsupportedAssetType, err)
	}

	img = downscale(img, p.maxDimension)

	var buf bytes.Buffer
	if ext == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ext, err)
	}

	return buf.Bytes(), nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving the aspect ratio. Uses Catmull-Rom interpolation.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
