package layout

import "math"

const (
	// ChairWidth and ChairHeight are the chair footprint in canvas pixels.
	ChairWidth  = 20.0
	ChairHeight = 12.0

	// ChairOffset is the distance from the table edge to a chair's center.
	ChairOffset = 15.0

	// MaxTableCapacity is the largest number of chairs a single table may carry.
	MaxTableCapacity = 40
)

// Chair is a derived seat around a table. X and Y are the chair's top-left
// corner; Rotation is in degrees and points the chair at the table.
type Chair struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
	SeatNumber int     `json:"seatNumber"`
}

// Center returns the center of the chair footprint.
func (c Chair) Center() Position {
	return Position{X: c.X + ChairWidth/2, Y: c.Y + ChairHeight/2}
}

// CalculateChairs places capacity chairs around a table with the given shape,
// top-left origin and dimensions. Results are recomputed on every call and
// depend only on the arguments. Unknown shapes are treated as ROUND.
func CalculateChairs(shape TableShape, x, y, width, height float64, capacity int) []Chair {
	switch shape {
	case ShapeRectangular:
		return CalculateRectangularTableChairs(x, y, width, height, capacity)
	case ShapeSquare:
		return CalculateSquareTableChairs(x, y, width, capacity)
	case ShapeCustom:
		return CalculateCustomTableChairs(x, y, width, height, capacity)
	default:
		return CalculateRoundTableChairs(x, y, width, height, capacity)
	}
}

// CalculateRoundTableChairs spaces chairs evenly on a circle of radius
// width/2, starting at 12 o'clock and winding clockwise on screen.
func CalculateRoundTableChairs(x, y, width, height float64, capacity int) []Chair {
	return circleChairs(x+width/2, y+height/2, width/2, capacity)
}

// CalculateCustomTableChairs uses the round placement with the radius of the
// largest circle that fits the bounding box.
func CalculateCustomTableChairs(x, y, width, height float64, capacity int) []Chair {
	return circleChairs(x+width/2, y+height/2, math.Min(width, height)/2, capacity)
}

// CalculateSquareTableChairs is CalculateRectangularTableChairs with equal sides.
func CalculateSquareTableChairs(x, y, size float64, capacity int) []Chair {
	return CalculateRectangularTableChairs(x, y, size, size, capacity)
}

// CalculateRectangularTableChairs walks the table perimeter clockwise from the
// top-left corner (top, right, bottom, left) and drops a chair every
// perimeter/capacity pixels. A chair landing exactly on a corner belongs to
// the side that ends at that corner.
func CalculateRectangularTableChairs(x, y, width, height float64, capacity int) []Chair {
	if capacity < 1 {
		return nil
	}

	perimeter := 2 * (width + height)
	topEnd := width
	rightEnd := width + height
	bottomEnd := 2*width + height

	chairs := make([]Chair, 0, capacity)
	for i := 0; i < capacity; i++ {
		d := float64(i) * perimeter / float64(capacity)

		var cx, cy, rotation float64
		switch {
		case d <= topEnd:
			cx, cy = x+d, y-ChairOffset
			rotation = 0
		case d <= rightEnd:
			cx, cy = x+width+ChairOffset, y+(d-topEnd)
			rotation = 90
		case d <= bottomEnd:
			cx, cy = x+width-(d-rightEnd), y+height+ChairOffset
			rotation = 180
		default:
			cx, cy = x-ChairOffset, y+height-(d-bottomEnd)
			rotation = 270
		}

		chairs = append(chairs, newChair(cx, cy, rotation, i+1))
	}
	return chairs
}

func circleChairs(cx, cy, radius float64, capacity int) []Chair {
	if capacity < 1 {
		return nil
	}

	dist := radius + ChairOffset
	step := 360.0 / float64(capacity)

	chairs := make([]Chair, 0, capacity)
	for i := 0; i < capacity; i++ {
		angle := float64(i) * step
		// Screen angle 0 is 3 o'clock; shift by -90 so seat 1 sits at the top.
		rad := (angle - 90) * math.Pi / 180
		px := cx + dist*math.Cos(rad)
		py := cy + dist*math.Sin(rad)
		chairs = append(chairs, newChair(px, py, angle, i+1))
	}
	return chairs
}

// newChair converts a chair center into the top-left based record.
func newChair(cx, cy, rotation float64, seat int) Chair {
	return Chair{
		X:          cx - ChairWidth/2,
		Y:          cy - ChairHeight/2,
		Rotation:   NormalizeRotation(rotation),
		SeatNumber: seat,
	}
}
