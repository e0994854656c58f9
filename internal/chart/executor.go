package chart

import (
	"errors"
	"regexp"
	"sync"
)

// Surface is a drawing target that charts are bound to.
type Surface interface {
	// Clear resets the surface. It fails with *ResourceError when the
	// surface cannot be drawn on.
	Clear() error
	Draw(cfg *Config) (Instance, error)
}

// isolatedConfig captures the configuration literal passed as the second
// argument of a chart construction that closes at the end of a line.
var isolatedConfig = regexp.MustCompile(`(?m)new\s+Chart\s*\(\s*[^,]+,\s*(\{[\s\S]*?\})\s*\)\s*;?[ \t]*$`)

// Executor turns extracted chart code into a chart bound to a surface.
type Executor struct {
	mu     sync.Mutex
	handle *Handle
}

// NewExecutor returns an executor that keeps its chart in h. A nil h gets a
// fresh handle.
func NewExecutor(h *Handle) *Executor {
	if h == nil {
		h = &Handle{}
	}
	return &Executor{handle: h}
}

// Handle returns the handle the executor binds charts to.
func (e *Executor) Handle() *Handle { return e.handle }

// Execute disposes the current chart and builds a new one from code on surface.
// A self-contained configuration literal is decoded directly; otherwise the
// code is interpreted as a short script. On failure the handle stays empty.
func (e *Executor) Execute(code string, surface Surface) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handle.Dispose()
	if surface == nil {
		return &ResourceError{Resource: "drawing surface"}
	}

	if m := isolatedConfig.FindStringSubmatch(code); m != nil {
		obj, err := ParseLiteral(m[1])
		switch {
		case err == nil:
			return e.bind(surface, obj, "config")
		case !errors.Is(err, errNotSelfContained):
			return &ExecutionError{Stage: "config", Err: err}
		}
	}

	if err := surface.Clear(); err != nil {
		return err
	}
	obj, err := interpretScript(RewriteScript(code))
	if err != nil {
		return &ExecutionError{Stage: "script", Err: err}
	}
	return e.bind(surface, obj, "script")
}

func (e *Executor) bind(surface Surface, obj map[string]any, stage string) error {
	cfg, err := DecodeConfig(obj)
	if err != nil {
		return &ExecutionError{Stage: stage, Err: err}
	}
	if err := surface.Clear(); err != nil {
		return err
	}
	inst, err := surface.Draw(cfg)
	if err != nil {
		var re *ResourceError
		if errors.As(err, &re) {
			return err
		}
		return &ExecutionError{Stage: stage, Err: err}
	}
	e.handle.Bind(inst)
	return nil
}
