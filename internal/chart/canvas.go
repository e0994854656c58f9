package chart

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Image formats a Canvas can encode to.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// Canvas is an in-memory drawing surface. Drawing a configuration renders it
// to an encoded image that stays available until the surface is cleared or
// the chart instance is destroyed.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	format string
	bound  *canvasChart
	img    []byte
}

// NewCanvas creates a canvas of the given size. Unknown formats fall back to PNG.
func NewCanvas(width, height int, format string) *Canvas {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatSVG {
		format = FormatPNG
	}
	return &Canvas{width: width, height: height, format: format}
}

// Format returns "png" or "svg".
func (c *Canvas) Format() string { return c.format }

// Ext returns the file extension for the canvas format, including the dot.
func (c *Canvas) Ext() string { return "." + c.format }

// ContentType returns the MIME type of the encoded image.
func (c *Canvas) ContentType() string {
	if c.format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Clear erases the drawn image. A zero-size canvas has no 2D context.
func (c *Canvas) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.width <= 0 || c.height <= 0 {
		return &ResourceError{Resource: "2d context", Err: fmt.Errorf("canvas size %dx%d", c.width, c.height)}
	}
	c.img = nil
	return nil
}

// Draw renders cfg and binds the resulting chart to the canvas.
func (c *Canvas) Draw(cfg *Config) (Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.width <= 0 || c.height <= 0 {
		return nil, &ResourceError{Resource: "2d context", Err: fmt.Errorf("canvas size %dx%d", c.width, c.height)}
	}
	if c.bound != nil {
		return nil, &ResourceError{Resource: "drawing surface", Err: errors.New("canvas is already in use by another chart")}
	}
	var buf bytes.Buffer
	if err := Render(cfg, c.width, c.height, c.format, &buf); err != nil {
		return nil, err
	}
	c.img = buf.Bytes()
	c.bound = &canvasChart{canvas: c, cfg: cfg}
	return c.bound, nil
}

// Bytes returns a copy of the current image, or nil when nothing is drawn.
func (c *Canvas) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil {
		return nil
	}
	out := make([]byte, len(c.img))
	copy(out, c.img)
	return out
}

type canvasChart struct {
	canvas *Canvas
	cfg    *Config
}

func (cc *canvasChart) Config() *Config { return cc.cfg }

func (cc *canvasChart) Destroy() {
	c := cc.canvas
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound == cc {
		c.bound = nil
		c.img = nil
	}
}
