package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

func table(id string, shape layout.TableShape, capacity int) document.CanvasItem {
	return document.CanvasItem{
		Type:     document.ItemTypeTable,
		ID:       id,
		Size:     layout.DefaultTableSize(layout.ShapeRound),
		Shape:    shape,
		Capacity: capacity,
	}
}

func TestValidateCanvasItems_Empty(t *testing.T) {
	res := ValidateCanvasItems(nil)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "nothing to save")
}

func TestValidateCanvasItems_ReportsEveryError(t *testing.T) {
	items := []document.CanvasItem{
		table("a", layout.ShapeRound, 0),
		table("b", "", 6),
	}

	res := ValidateCanvasItems(items)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "table 1")
	assert.Contains(t, res.Errors[0], "capacity")
	assert.Contains(t, res.Errors[1], "table 2")
	assert.Contains(t, res.Errors[1], "shape")
}

func TestValidateCanvasItems_Valid(t *testing.T) {
	items := []document.CanvasItem{
		table("a", layout.ShapeRectangular, 10),
		{Type: document.ItemTypeRowSection, ID: "r", RowCount: 3, SeatsPerRow: 12},
		{Type: document.ItemTypeStage, ID: "s"},
		{Type: document.ItemTypeDanceFloor, ID: "d"},
	}

	res := ValidateCanvasItems(items)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateCanvasItems_Rules(t *testing.T) {
	tests := []struct {
		name string
		item document.CanvasItem
		want []string
	}{
		{
			name: "unknown shape",
			item: table("x", layout.TableShape("OVAL"), 4),
			want: []string{`unknown shape "OVAL"`},
		},
		{
			name: "over capacity",
			item: table("x", layout.ShapeRound, layout.MaxTableCapacity+1),
			want: []string{"at most 40"},
		},
		{
			name: "capacity and shape",
			item: table("x", "", -2),
			want: []string{"capacity must be at least 1", "shape is required"},
		},
		{
			name: "empty row section",
			item: document.CanvasItem{Type: document.ItemTypeRowSection, ID: "x", Label: "Balcony"},
			want: []string{`row section "Balcony": row count`, `row section "Balcony": seats per row`},
		},
		{
			name: "unknown type",
			item: document.CanvasItem{Type: "BAR", ID: "x"},
			want: []string{`unknown item type "BAR"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateCanvasItems([]document.CanvasItem{tt.item})
			assert.False(t, res.Valid)
			require.Len(t, res.Errors, len(tt.want))
			for i, w := range tt.want {
				assert.Contains(t, res.Errors[i], w)
			}
		})
	}
}

func TestValidateCanvasItems_DuplicateIDs(t *testing.T) {
	res := ValidateCanvasItems([]document.CanvasItem{
		table("same", layout.ShapeRound, 8),
		table("same", layout.ShapeRound, 8),
	})
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "duplicate id")
}
