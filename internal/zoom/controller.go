package zoom

import (
	"math"
	"sync"
)

// Window bounds in seconds
const (
	MinWindow     = 0.01
	MaxWindow     = 0.36
	DefaultWindow = 0.3

	// wheelScale converts a wheel delta into seconds
	wheelScale = 1000.0
)

// Controller owns one panel's time-window width.
type Controller struct {
	mu     sync.Mutex
	window float64
}

// NewController creates a controller starting at the given window, clamped into range.
func NewController(initial float64) *Controller {
	return &Controller{window: Clamp(initial)}
}

// Window returns the current window width in seconds.
func (c *Controller) Window() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// OnWheel applies a wheel delta and reports whether the window changed.
// A delta that pushes past a bound the window already sits on is a no-op,
// as is a NaN delta.
func (c *Controller) OnWheel(deltaY float64) bool {
	if math.IsNaN(deltaY) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := Clamp(c.window + deltaY/wheelScale)
	if next == c.window {
		return false
	}
	c.window = next
	return true
}

// Clamp bounds w to [MinWindow, MaxWindow]; NaN maps to the default window.
func Clamp(w float64) float64 {
	switch {
	case w != w:
		return DefaultWindow
	case w < MinWindow:
		return MinWindow
	case w > MaxWindow:
		return MaxWindow
	}
	return w
}
