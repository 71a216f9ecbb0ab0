package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

func TestBuildSceneGraphNilLayout(t *testing.T) {
	sg := BuildSceneGraph(nil, "")
	assert.Nil(t, sg.Root)
	assert.Nil(t, CompileDrawCommands(sg))
	assert.Empty(t, HitTest(sg, 0, 0))
}

func TestBuildSceneGraphSample(t *testing.T) {
	l := document.NewSampleLayout("chart_sample")
	sg := BuildSceneGraph(l, "")

	require.NotNil(t, sg.Root)
	assert.Len(t, sg.Root.Children, len(l.Items))
	assert.Len(t, sg.NodesByID, len(l.Items))
	assert.Equal(t, 8+10+4*20, sg.TotalSeats)
	assert.Equal(t, l.TotalSeats(), sg.TotalSeats)
}

func TestBuildSkipsInvalidSize(t *testing.T) {
	l := document.NewEmptyLayout("c", "c")
	l.Items = []document.CanvasItem{{Type: document.ItemTypeStage, ID: "stage_bad"}}
	sg := BuildSceneGraph(l, "")
	assert.Empty(t, sg.Root.Children)
	assert.NotContains(t, sg.NodesByID, "stage_bad")
}

func TestRotatedTableBounds(t *testing.T) {
	l := document.NewEmptyLayout("c", "c")
	l.Items = []document.CanvasItem{{
		Type:     document.ItemTypeTable,
		ID:       "tbl_rot",
		Size:     layout.Size{Width: 160, Height: 80},
		Rotation: 90,
		Shape:    layout.ShapeRectangular,
		Capacity: 1,
	}}
	sg := BuildSceneGraph(l, "")
	node := sg.NodesByID["tbl_rot"]
	require.NotNil(t, node)

	body := computePathBounds(node.Path, node.WorldTransform)
	assert.InDelta(t, 40, body.X, 1e-9)
	assert.InDelta(t, -40, body.Y, 1e-9)
	assert.InDelta(t, 80, body.Width, 1e-9)
	assert.InDelta(t, 160, body.Height, 1e-9)
}

func TestRowSectionSeatsAreChildren(t *testing.T) {
	l := document.NewEmptyLayout("c", "c")
	l.Items = []document.CanvasItem{{
		Type:        document.ItemTypeRowSection,
		ID:          "rows_1",
		Position:    layout.Position{X: 0, Y: 0},
		Size:        layout.RowBlockSize(2, 3, 0, 0),
		RowCount:    2,
		SeatsPerRow: 3,
		RowLabels:   []string{"AA"},
	}}
	sg := BuildSceneGraph(l, "")
	node := sg.NodesByID["rows_1"]
	require.Len(t, node.Children, 6)
	assert.Equal(t, "AA", node.Children[0].Label)
	assert.Equal(t, "B", node.Children[3].Label)
	for _, c := range node.Children {
		assert.Equal(t, NodeSeat, c.Kind)
		assert.Equal(t, "rows_1", c.ItemID)
	}
}

func TestDrawCommandsToJSONEmpty(t *testing.T) {
	out, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestMatrixInvert(t *testing.T) {
	m := ViewMatrix(1.5, layout.Position{X: 10, Y: -20}).Multiply(RotateDegrees(30))
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())
	assert.True(t, RotateAbout(360, 5, 5).IsIdentity())
}
