// Package imaging prepares uploaded garment photos for the compositing
// provider, which performs best with inputs no larger than 768x768.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// MaxGarmentDim is the bounding box the try-on provider expects.
const MaxGarmentDim = 768

// FitGarment decodes the uploaded photo, scales it down to fit inside a
// maxDim square while keeping aspect ratio, and re-encodes it as PNG.
// Images already inside the box are only re-encoded, never upscaled.
func FitGarment(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = MaxGarmentDim
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode garment: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return encodePNG(src)
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return encodePNG(dst)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
