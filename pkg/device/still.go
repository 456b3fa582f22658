package device

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Still serves a fixed image as the camera feed. It is used when no camera is
// available and for demos.
type Still struct {
	img image.Image
}

// OpenStill decodes a JPEG or PNG file.
func OpenStill(path string) (*Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open still image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode still image %s: %w", path, err)
	}
	return NewStill(img), nil
}

// NewStill wraps an in-memory image.
func NewStill(img image.Image) *Still {
	return &Still{img: img}
}

// Size implements live.VideoSurface.
func (s *Still) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Frame implements live.VideoSurface.
func (s *Still) Frame() (image.Image, error) {
	return s.img, nil
}
