package document

import (
	"github.com/seatplan/seatplan/internal/layout"
	"github.com/seatplan/seatplan/internal/typeid"
)

// NewSampleLayout returns a small banquet layout used by the playground chart
// and the WASM bridge.
func NewSampleLayout(chartID string) *Layout {
	l := NewEmptyLayout(chartID, "Sample Banquet")
	l.Items = []CanvasItem{
		{
			Type:     ItemTypeStage,
			ID:       typeid.NewStageID(),
			Position: layout.Position{X: 600, Y: 40},
			Size:     layout.Size{Width: 400, Height: 120},
			Label:    "Stage",
			Color:    "#3d3d5c",
		},
		{
			Type:     ItemTypeDanceFloor,
			ID:       typeid.NewDanceFloorID(),
			Position: layout.Position{X: 650, Y: 200},
			Size:     layout.Size{Width: 300, Height: 200},
			Label:    "Dance Floor",
			Color:    "#e8d9b5",
		},
		{
			Type:     ItemTypeTable,
			ID:       typeid.NewTableID(),
			Position: layout.Position{X: 300, Y: 250},
			Size:     layout.DefaultTableSize(layout.ShapeRound),
			Shape:    layout.ShapeRound,
			Capacity: 8,
			Label:    "Table 1",
			Color:    "#8fb996",
		},
		{
			Type:     ItemTypeTable,
			ID:       typeid.NewTableID(),
			Position: layout.Position{X: 1150, Y: 250},
			Size:     layout.DefaultTableSize(layout.ShapeRectangular),
			Rotation: 90,
			Shape:    layout.ShapeRectangular,
			Capacity: 10,
			Label:    "Head Table",
			Color:    "#c9a66b",
		},
		{
			Type:        ItemTypeRowSection,
			ID:          typeid.NewRowSectionID(),
			Position:    layout.Position{X: 500, Y: 500},
			Size:        layout.RowBlockSize(4, 20, layout.DefaultRowSpacing, layout.DefaultSeatSpacing),
			Label:       "Balcony",
			RowCount:    4,
			SeatsPerRow: 20,
			RowSpacing:  layout.DefaultRowSpacing,
			SeatSpacing: layout.DefaultSeatSpacing,
		},
	}
	return l
}
