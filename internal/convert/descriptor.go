// Package convert turns backend-shaped section descriptors into canvas items
// and validates canvas item lists before they are saved.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/seatplan/seatplan/internal/layout"
)

const (
	// DefaultTableCapacity applies when a table declares neither a capacity
	// nor any seats.
	DefaultTableCapacity = 8

	// DefaultSeatsPerRow applies when a row declares no seats.
	DefaultSeatsPerRow = 10
)

// SectionDescriptor is one imported section. Every field is optional.
type SectionDescriptor struct {
	ID     *string            `json:"id,omitempty"`
	Name   *string            `json:"name,omitempty"`
	Tables []*TableDescriptor `json:"tables,omitempty"`
	Rows   []*RowDescriptor   `json:"rows,omitempty"`
}

// TableDescriptor is an imported table. Missing fields take the defaults
// applied by ResolveTable.
type TableDescriptor struct {
	ID       *string          `json:"id,omitempty"`
	Shape    *string          `json:"shape,omitempty"`
	Capacity *int             `json:"capacity,omitempty"`
	Position *layout.Position `json:"position,omitempty"`
	Size     *layout.Size     `json:"size,omitempty"`
	Rotation *float64         `json:"rotation,omitempty"`
	Label    *string          `json:"label,omitempty"`
	Color    *string          `json:"color,omitempty"`
	Seats    []SeatDescriptor `json:"seats,omitempty"`
}

// RowDescriptor is an imported row of seats.
type RowDescriptor struct {
	ID    *string          `json:"id,omitempty"`
	Label *string          `json:"label,omitempty"`
	Seats []SeatDescriptor `json:"seats,omitempty"`
}

// SeatDescriptor is an imported seat. The converter only counts seats.
type SeatDescriptor struct {
	ID     *string `json:"id,omitempty"`
	Number *int    `json:"number,omitempty"`
	Label  *string `json:"label,omitempty"`
}

// ResolvedTable is a TableDescriptor with every default made explicit.
// Position is nil when the table must be auto-placed.
type ResolvedTable struct {
	ID       string
	Shape    layout.TableShape
	Capacity int
	Position *layout.Position
	Size     layout.Size
	Rotation float64
	Label    string
	Color    string
}

// ResolveTable applies the import defaults to d:
//   - shape: ROUND when missing or unknown
//   - capacity: declared capacity, else the number of seats, else 8
//   - size: declared size when valid, else the shape's default size
//   - rotation: normalized into [0, 360), 0 when missing
//
// ID is left empty when the descriptor has none.
func ResolveTable(d *TableDescriptor) ResolvedTable {
	r := ResolvedTable{
		Shape:    layout.ShapeRound,
		Capacity: DefaultTableCapacity,
	}
	if d == nil {
		r.Size = layout.DefaultTableSize(r.Shape)
		return r
	}

	r.ID = str(d.ID)
	r.Label = str(d.Label)
	r.Color = str(d.Color)

	if d.Shape != nil {
		if shape, ok := layout.ParseTableShape(*d.Shape); ok {
			r.Shape = shape
		}
	}

	switch {
	case d.Capacity != nil:
		r.Capacity = *d.Capacity
	case len(d.Seats) > 0:
		r.Capacity = len(d.Seats)
	}

	if d.Size != nil && d.Size.Valid() {
		r.Size = *d.Size
	} else {
		r.Size = layout.DefaultTableSize(r.Shape)
	}
	if r.Shape == layout.ShapeSquare {
		r.Size.Height = r.Size.Width
	}

	if d.Rotation != nil {
		r.Rotation = layout.NormalizeRotation(*d.Rotation)
	}

	if d.Position != nil && d.Position.Finite() {
		p := *d.Position
		r.Position = &p
	}

	return r
}

// RowSeatCount returns the number of seats a row declares, or
// DefaultSeatsPerRow when it declares none.
func RowSeatCount(d *RowDescriptor) int {
	if d == nil || len(d.Seats) == 0 {
		return DefaultSeatsPerRow
	}
	return len(d.Seats)
}

// ParseSections decodes imported section data. Both a bare JSON array and an
// object with a "sections" key are accepted; null decodes to no sections.
func ParseSections(data []byte) ([]*SectionDescriptor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var wrapper struct {
			Sections []*SectionDescriptor `json:"sections"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
		return wrapper.Sections, nil
	}

	var sections []*SectionDescriptor
	if err := json.Unmarshal(trimmed, &sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	return sections, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
