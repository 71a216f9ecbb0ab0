package layout

import (
	"math"
	"strings"
)

// Position is a point in canvas space (unscaled pixels).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in canvas pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are finite and strictly positive.
func (s Size) Valid() bool {
	return isFinite(s.Width) && isFinite(s.Height) && s.Width > 0 && s.Height > 0
}

// Finite reports whether both coordinates are finite numbers.
func (p Position) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

type TableShape string

const (
	ShapeRound       TableShape = "ROUND"
	ShapeRectangular TableShape = "RECTANGULAR"
	ShapeSquare      TableShape = "SQUARE"
	ShapeCustom      TableShape = "CUSTOM"
)

// Valid reports whether s is one of the known table shapes.
func (s TableShape) Valid() bool {
	switch s {
	case ShapeRound, ShapeRectangular, ShapeSquare, ShapeCustom:
		return true
	}
	return false
}

// ParseTableShape parses a shape name case-insensitively.
func ParseTableShape(v string) (TableShape, bool) {
	shape := TableShape(strings.ToUpper(strings.TrimSpace(v)))
	if !shape.Valid() {
		return "", false
	}
	return shape, true
}

// DefaultTableSize returns the footprint a freshly dropped table of the given
// shape gets when nothing else is known about it.
func DefaultTableSize(shape TableShape) Size {
	switch shape {
	case ShapeRectangular:
		return Size{Width: 160, Height: 80}
	case ShapeSquare:
		return Size{Width: 100, Height: 100}
	case ShapeCustom:
		return Size{Width: 120, Height: 120}
	default:
		return Size{Width: 100, Height: 100}
	}
}

// NormalizeRotation wraps an angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	if !isFinite(deg) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -0 and values that round up to 360 both collapse to 0
	if r == 0 || r >= 360 {
		return 0
	}
	return r
}

// SnapToGrid rounds v to the nearest multiple of grid. A non-positive grid
// disables snapping.
func SnapToGrid(v, grid float64) float64 {
	if grid <= 0 || !isFinite(grid) {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPosition snaps both coordinates of p to the grid.
func SnapPosition(p Position, grid float64) Position {
	return Position{X: SnapToGrid(p.X, grid), Y: SnapToGrid(p.Y, grid)}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
