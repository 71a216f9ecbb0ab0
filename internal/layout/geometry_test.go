package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{45, 45},
		{360, 0},
		{370, 10},
		{-90, 270},
		{-360, 0},
		{725, 5},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeRotation(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestSnapToGrid(t *testing.T) {
	assert.Equal(t, 20.0, SnapToGrid(17, 10))
	assert.Equal(t, 10.0, SnapToGrid(14.9, 10))
	assert.Equal(t, -20.0, SnapToGrid(-16, 10))
	assert.Equal(t, 17.3, SnapToGrid(17.3, 0))
	assert.Equal(t, 17.3, SnapToGrid(17.3, -5))

	p := SnapPosition(Position{X: 33, Y: 47}, 25)
	assert.Equal(t, Position{X: 25, Y: 50}, p)
}

func TestSizeValid(t *testing.T) {
	assert.True(t, Size{Width: 1, Height: 1}.Valid())
	assert.False(t, Size{Width: 0, Height: 1}.Valid())
	assert.False(t, Size{Width: 10, Height: -1}.Valid())
	assert.False(t, Size{Width: math.NaN(), Height: 1}.Valid())
}

func TestParseTableShape(t *testing.T) {
	shape, ok := ParseTableShape(" rectangular ")
	require.True(t, ok)
	assert.Equal(t, ShapeRectangular, shape)

	_, ok = ParseTableShape("hexagon")
	assert.False(t, ok)

	_, ok = ParseTableShape("")
	assert.False(t, ok)
}

func TestDefaultTableSize(t *testing.T) {
	for _, shape := range allShapes {
		assert.True(t, DefaultTableSize(shape).Valid(), string(shape))
	}
	sq := DefaultTableSize(ShapeSquare)
	assert.Equal(t, sq.Width, sq.Height)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))
	assert.Equal(t, "AZ", RowLabel(51))
	assert.Equal(t, "BA", RowLabel(52))
	assert.Equal(t, "", RowLabel(-1))
}

func TestCalculateRowSeats(t *testing.T) {
	seats := CalculateRowSeats(100, 200, 3, 4, 40, 30)
	require.Len(t, seats, 12)

	first := seats[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "A", first.RowLabel)
	assert.Equal(t, 115.0, first.X)
	assert.Equal(t, 220.0, first.Y)

	last := seats[11]
	assert.Equal(t, 3, last.Row)
	assert.Equal(t, 4, last.Number)
	assert.Equal(t, "C", last.RowLabel)
	assert.Equal(t, 100+3*30+15.0, last.X)
	assert.Equal(t, 200+2*40+20.0, last.Y)

	assert.Empty(t, CalculateRowSeats(0, 0, 0, 10, 30, 30))
	assert.Empty(t, CalculateRowSeats(0, 0, 2, 0, 30, 30))
}

func TestRowBlockSize(t *testing.T) {
	assert.Equal(t, Size{Width: 300, Height: 105}, RowBlockSize(3, 10, 0, 0))
	assert.Equal(t, Size{Width: 80, Height: 50}, RowBlockSize(2, 4, 25, 20))
}
