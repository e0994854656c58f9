package chart

import "sync"

// Instance is a chart bound to a drawing surface.
type Instance interface {
	// Destroy releases the instance and unbinds it from its surface.
	Destroy()
	Config() *Config
}

// Handle holds the single chart instance currently bound to a surface.
// The zero value is an empty handle ready to use.
type Handle struct {
	mu      sync.Mutex
	current Instance
}

// Dispose destroys the current instance, if any, and empties the handle.
func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposeLocked()
}

func (h *Handle) disposeLocked() {
	if h.current != nil {
		h.current.Destroy()
		h.current = nil
	}
}

// Bind stores inst as the current instance, destroying whatever was bound before.
func (h *Handle) Bind(inst Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == inst {
		return
	}
	h.disposeLocked()
	h.current = inst
}

// Current returns the bound instance or nil.
func (h *Handle) Current() Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
