package live

import (
	"fmt"

	"github.com/vango-go/agriguard-live/pkg/core/audio"
	"github.com/vango-go/agriguard-live/pkg/core/media"
)

// frameSampler turns the current video frame into an image chunk.
type frameSampler struct {
	surface  VideoSurface
	maxWidth int
	quality  int
}

// Sample returns ok=false without error when the surface is not ready yet.
func (f frameSampler) Sample() (chunk MediaChunk, ok bool, err error) {
	if f.surface == nil {
		return MediaChunk{}, false, nil
	}
	if w, h := f.surface.Size(); w == 0 || h == 0 {
		return MediaChunk{}, false, nil
	}
	img, err := f.surface.Frame()
	if err != nil {
		return MediaChunk{}, false, fmt.Errorf("read frame: %w", err)
	}
	data, err := media.EncodeFrame(img, f.maxWidth, f.quality)
	if err != nil {
		return MediaChunk{}, false, err
	}
	return MediaChunk{MIMEType: MIMETypeImage, Data: audio.BytesToText(data)}, true, nil
}
