// Package media turns captured video frames into the compressed stills sent
// to the live session.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	MIMETypeJPEG = "image/jpeg"

	DefaultMaxWidth = 480
	DefaultQuality  = 60
)

// ErrEmptyFrame is returned for frames with no pixels.
var ErrEmptyFrame = errors.New("frame has zero width or height")

// TargetSize returns the dimensions a width x height frame is scaled to so it
// fits within maxWidth, preserving aspect ratio. Frames already narrower than
// maxWidth are left alone.
func TargetSize(width, height, maxWidth int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	h := int(float64(height) * float64(maxWidth) / float64(width))
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}

// EncodeFrame downscales img to at most maxWidth pixels wide and encodes it as
// JPEG at the given quality (1-100).
func EncodeFrame(img image.Image, maxWidth, quality int) ([]byte, error) {
	if img == nil {
		return nil, ErrEmptyFrame
	}
	b := img.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxWidth)
	if w == 0 || h == 0 {
		return nil, ErrEmptyFrame
	}

	src := img
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJPEG decodes one JPEG image, as delivered by the camera pipe.
func DecodeJPEG(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}
