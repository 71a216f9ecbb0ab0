package document

import (
	"time"

	"github.com/seatplan/seatplan/internal/layout"
)

type ItemType string

const (
	ItemTypeTable      ItemType = "TABLE"
	ItemTypeRowSection ItemType = "ROW_SECTION"
	ItemTypeStage      ItemType = "STAGE"
	ItemTypeDanceFloor ItemType = "DANCE_FLOOR"
)

// Decoration reports whether the item is a static, seatless decoration.
func (t ItemType) Decoration() bool {
	return t == ItemTypeStage || t == ItemTypeDanceFloor
}

// CanvasItem is one placeable object of a seating layout. Type selects which
// of the type-specific fields are meaningful.
type CanvasItem struct {
	Type      ItemType        `json:"type"`
	ID        string          `json:"id"`
	Position  layout.Position `json:"position"`
	Size      layout.Size     `json:"size"`
	Rotation  float64         `json:"rotation"`
	Label     string          `json:"label,omitempty"`
	Color     string          `json:"color,omitempty"`
	SectionID string          `json:"sectionId,omitempty"`

	// TABLE
	Shape    layout.TableShape `json:"shape,omitempty"`
	Capacity int               `json:"capacity,omitempty"`

	// ROW_SECTION
	RowCount    int      `json:"rowCount,omitempty"`
	SeatsPerRow int      `json:"seatsPerRow,omitempty"`
	RowSpacing  float64  `json:"rowSpacing,omitempty"`
	SeatSpacing float64  `json:"seatSpacing,omitempty"`
	RowLabels   []string `json:"rowLabels,omitempty"`
}

// Chairs recomputes the chairs of a TABLE item from its current geometry.
// Chairs are never stored; other item types have none.
func (it CanvasItem) Chairs() []layout.Chair {
	if it.Type != ItemTypeTable {
		return nil
	}
	return layout.CalculateChairs(it.Shape, it.Position.X, it.Position.Y, it.Size.Width, it.Size.Height, it.Capacity)
}

// Seats recomputes the seat grid of a ROW_SECTION item. Explicit row labels
// replace the generated A, B, C... labels where present.
func (it CanvasItem) Seats() []layout.Seat {
	if it.Type != ItemTypeRowSection {
		return nil
	}
	seats := layout.CalculateRowSeats(it.Position.X, it.Position.Y, it.RowCount, it.SeatsPerRow, it.RowSpacing, it.SeatSpacing)
	for i := range seats {
		if r := seats[i].Row - 1; r < len(it.RowLabels) && it.RowLabels[r] != "" {
			seats[i].RowLabel = it.RowLabels[r]
		}
	}
	return seats
}

// SeatCount is the number of seats the item contributes to the layout.
func (it CanvasItem) SeatCount() int {
	switch it.Type {
	case ItemTypeTable:
		return max(it.Capacity, 0)
	case ItemTypeRowSection:
		return max(it.RowCount, 0) * max(it.SeatsPerRow, 0)
	default:
		return 0
	}
}

// Center returns the center of the item's unrotated bounding box.
func (it CanvasItem) Center() layout.Position {
	return layout.Position{
		X: it.Position.X + it.Size.Width/2,
		Y: it.Position.Y + it.Size.Height/2,
	}
}

// Layout is the persisted seating chart: canvas settings plus the item list.
// Items are kept in paint order (back to front).
type Layout struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Version    int          `json:"version"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Background string       `json:"background"`
	Items      []CanvasItem `json:"items"`
	CreatedAt  string       `json:"createdAt"`
	UpdatedAt  string       `json:"updatedAt"`
}

// IndexOf returns the index of the item with the given id, or -1.
func (l *Layout) IndexOf(id string) int {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Item returns a pointer to the item with the given id.
func (l *Layout) Item(id string) (*CanvasItem, bool) {
	i := l.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return &l.Items[i], true
}

// TotalSeats sums the seats of every item in the layout.
func (l *Layout) TotalSeats() int {
	total := 0
	for _, it := range l.Items {
		total += it.SeatCount()
	}
	return total
}

// Clone returns a deep copy of the layout.
func (l *Layout) Clone() *Layout {
	c := *l
	c.Items = make([]CanvasItem, len(l.Items))
	for i, it := range l.Items {
		if it.RowLabels != nil {
			it.RowLabels = append([]string(nil), it.RowLabels...)
		}
		c.Items[i] = it
	}
	return &c
}

// NewEmptyLayout creates an empty layout for a new chart, stamped with the
// current time.
func NewEmptyLayout(chartID, name string) *Layout {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Layout{
		ID:         chartID,
		Name:       name,
		Version:    1,
		Width:      1600,
		Height:     1000,
		Background: "#f8f7f4",
		Items:      []CanvasItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
