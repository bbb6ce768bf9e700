package render

import "github.com/wcharczuk/go-chart/v2/drawing"

// Point is a position in backing-store pixels
type Point struct {
	X float64
	Y float64
}

// Canvas is the 2D drawing surface the renderer paints on.
// Coordinates are backing-store pixels with the origin at the top-left.
type Canvas interface {
	// Size returns the backing-store dimensions
	Size() (width, height int)
	// Clear discards everything drawn and fills the background
	Clear() error

	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Stroke draws the current path and starts a new one
	Stroke(color drawing.Color, width float64)

	FillRect(x, y, w, h float64, color drawing.Color)
	// FillText draws text with its baseline starting at (x, y)
	FillText(text string, x, y, size float64, color drawing.Color)
	MeasureText(text string, size float64) float64
}
