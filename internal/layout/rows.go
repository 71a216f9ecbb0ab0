package layout

const (
	DefaultSeatSpacing = 30.0
	DefaultRowSpacing  = 35.0
)

// Seat is one seat of a theater-style row block. X and Y are the seat center.
type Seat struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Row      int     `json:"row"`
	Number   int     `json:"number"`
	RowLabel string  `json:"rowLabel"`
}

// RowBlockSize returns the footprint of a row block with the given shape.
func RowBlockSize(rowCount, seatsPerRow int, rowSpacing, seatSpacing float64) Size {
	if rowSpacing <= 0 {
		rowSpacing = DefaultRowSpacing
	}
	if seatSpacing <= 0 {
		seatSpacing = DefaultSeatSpacing
	}
	return Size{
		Width:  float64(max(seatsPerRow, 1)) * seatSpacing,
		Height: float64(max(rowCount, 1)) * rowSpacing,
	}
}

// CalculateRowSeats lays out rowCount*seatsPerRow seats in row-major order
// starting at the block's top-left corner (x, y). Rows and seat numbers are
// 1-based. Non-positive spacings fall back to the defaults.
func CalculateRowSeats(x, y float64, rowCount, seatsPerRow int, rowSpacing, seatSpacing float64) []Seat {
	if rowCount < 1 || seatsPerRow < 1 {
		return nil
	}
	if rowSpacing <= 0 {
		rowSpacing = DefaultRowSpacing
	}
	if seatSpacing <= 0 {
		seatSpacing = DefaultSeatSpacing
	}

	seats := make([]Seat, 0, rowCount*seatsPerRow)
	for r := 0; r < rowCount; r++ {
		label := RowLabel(r)
		for c := 0; c < seatsPerRow; c++ {
			seats = append(seats, Seat{
				X:        x + float64(c)*seatSpacing + seatSpacing/2,
				Y:        y + float64(r)*rowSpacing + rowSpacing/2,
				Row:      r + 1,
				Number:   c + 1,
				RowLabel: label,
			})
		}
	}
	return seats
}

// RowLabel returns the spreadsheet-style label for a zero-based row index:
// 0 -> A, 25 -> Z, 26 -> AA.
func RowLabel(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}
