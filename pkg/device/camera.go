package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/vango-go/agriguard-live/pkg/core/media"
)

// ErrNoFrame is returned by Frame before the camera has produced any image.
var ErrNoFrame = errors.New("no camera frame yet")

const maxFrameBytes = 8 << 20

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// CameraConfig selects the capture device. Zero values use the platform
// default device at 1280x720.
type CameraConfig struct {
	FFmpeg string
	Format string
	Device string
	Width  int
	Height int
	FPS    int
}

func (c CameraConfig) withDefaults() CameraConfig {
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.Format == "" || c.Device == "" {
		format, device := platformCamera()
		if c.Format == "" {
			c.Format = format
		}
		if c.Device == "" {
			c.Device = device
		}
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = 1280, 720
	}
	if c.FPS <= 0 {
		c.FPS = 5
	}
	return c
}

func platformCamera() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", "0"
	case "windows":
		return "dshow", "video=Integrated Camera"
	default:
		return "v4l2", "/dev/video0"
	}
}

func (c CameraConfig) args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", c.Format,
		"-framerate", strconv.Itoa(c.FPS),
		"-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-i", c.Device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	}
}

// Camera streams MJPEG frames from an ffmpeg child process and keeps the
// latest one. It implements live.VideoSurface.
type Camera struct {
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	latest []byte
	width  int
	height int
	err    error
}

// OpenCamera starts the capture process. The returned camera reports a zero
// size until the first frame arrives.
func OpenCamera(ctx context.Context, cfg CameraConfig, logger *slog.Logger) (*Camera, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if _, err := exec.LookPath(cfg.FFmpeg); err != nil {
		return nil, fmt.Errorf("camera capture needs ffmpeg: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, cfg.FFmpeg, cfg.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("camera pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start camera: %w", err)
	}

	c := &Camera{logger: logger, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		readErr := c.consume(stdout)
		waitErr := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		err := errors.Join(readErr, waitErr)
		if err == nil {
			err = io.EOF
		}
		c.fail(err)
		logger.Warn("camera stopped", "error", err, "stderr", stderr.String())
	}()
	return c, nil
}

func (c *Camera) consume(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256<<10), maxFrameBytes)
	sc.Split(splitJPEG)
	for sc.Scan() {
		frame := bytes.Clone(sc.Bytes())
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
		if err != nil {
			c.logger.Debug("skipping undecodable frame", "error", err, "bytes", len(frame))
			continue
		}
		c.mu.Lock()
		c.latest = frame
		c.width, c.height = cfg.Width, cfg.Height
		c.mu.Unlock()
	}
	return sc.Err()
}

// fail records that the capture process exited and drops the last frame.
func (c *Camera) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.latest = nil
	c.width, c.height = 0, 0
	c.mu.Unlock()
}

// Size implements live.VideoSurface. It reports zero once capture has stopped.
func (c *Camera) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, 0
	}
	return c.width, c.height
}

// Frame implements live.VideoSurface.
func (c *Camera) Frame() (image.Image, error) {
	c.mu.Lock()
	data, err := c.latest, c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNoFrame
	}
	return media.DecodeJPEG(data)
}

// Close stops the capture process and waits for it to exit.
func (c *Camera) Close() error {
	c.cancel()
	<-c.done
	return nil
}

// splitJPEG is a bufio.SplitFunc yielding one complete JPEG image per token.
// Bytes before a start-of-image marker are discarded.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may begin the next marker.
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
