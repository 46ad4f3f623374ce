// Package imaging prepares an attached photo for storage: it bounds the
// display size reported to clients and re-encodes a resized, compressed
// transfer copy.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	maxDisplayWidth  = 300
	maxDisplayHeight = 300
	maxTransferWidth = 1024
	jpegQuality      = 70
)

type Processed struct {
	Data   []byte
	Width  int // display width, fitted within 300x300
	Height int // display height
}

// FitDisplay computes the largest size proportional to w x h that fits
// within the 300x300 display bound. Images already inside the bound keep
// their size.
func FitDisplay(w, h int) (int, int) {
	if w <= maxDisplayWidth && h <= maxDisplayHeight {
		return w, h
	}
	ratio := float64(w) / float64(h)
	if ratio > 1 {
		return maxDisplayWidth, int(float64(maxDisplayWidth) / ratio)
	}
	return int(float64(maxDisplayHeight) * ratio), maxDisplayHeight
}

// Process decodes data, scales it down to at most 1024px wide and
// re-encodes it as JPEG at 70% quality. The returned dimensions are the
// display fit of the original image, not the transfer copy.
func Process(data []byte) (*Processed, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}
	displayW, displayH := FitDisplay(w, h)

	out := src
	if w > maxTransferWidth {
		scaledH := h * maxTransferWidth / w
		if scaledH < 1 {
			scaledH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxTransferWidth, scaledH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Processed{Data: buf.Bytes(), Width: displayW, Height: displayH}, nil
}
