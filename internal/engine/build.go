package engine

import (
	"math"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

const (
	seatRadius     = 8.0
	selectionColor = "#2f80ed"
	chairFill      = "#d9d4cc"
	chairStroke    = "#6b6359"
	tableFill      = "#ffffff"
	tableStroke    = "#3b3b3b"
)

// BuildSceneGraph builds a render-ready scene graph from a layout. Chairs and
// seats are recomputed from each item's current geometry on every build.
func BuildSceneGraph(l *document.Layout, selectedID string) *SceneGraph {
	sg := NewSceneGraph()
	if l == nil {
		return sg
	}

	root := &SceneNode{
		Kind:           NodeGroup,
		WorldTransform: Identity(),
		Visible:        true,
	}

	for i := range l.Items {
		item := &l.Items[i]
		node := buildItemNode(item, root, item.ID == selectedID)
		if node == nil {
			continue
		}
		root.Children = append(root.Children, node)
		root.Bounds = root.Bounds.Union(node.Bounds)
		sg.NodesByID[item.ID] = node
		sg.TotalSeats += item.SeatCount()
	}

	sg.Root = root
	sg.Dirty = false
	return sg
}

// buildItemNode builds the node for one canvas item together with its chairs
// or seats.
func buildItemNode(item *document.CanvasItem, parent *SceneNode, selected bool) *SceneNode {
	if !item.Size.Valid() {
		return nil
	}

	center := item.Center()
	world := RotateAbout(item.Rotation, center.X, center.Y)

	node := &SceneNode{
		ItemID:         item.ID,
		WorldTransform: world,
		Visible:        true,
		Parent:         parent,
		Label:          item.Label,
		StrokeWidth:    1,
	}

	x, y, w, h := item.Position.X, item.Position.Y, item.Size.Width, item.Size.Height

	switch item.Type {
	case document.ItemTypeTable:
		node.Kind = NodeTable
		node.Fill = firstNonEmpty(item.Color, tableFill)
		node.Stroke = tableStroke
		switch item.Shape {
		case layout.ShapeRectangular, layout.ShapeSquare:
			node.Path = rectPath(x, y, w, h)
		case layout.ShapeCustom:
			r := math.Min(w, h) / 2
			node.Path = ellipsePath(center.X, center.Y, r, r)
		default:
			node.Path = ellipsePath(center.X, center.Y, w/2, h/2)
		}

		for _, chair := range item.Chairs() {
			cc := chair.Center()
			child := &SceneNode{
				Kind:           NodeChair,
				ItemID:         item.ID,
				SeatNumber:     chair.SeatNumber,
				WorldTransform: world.Multiply(RotateAbout(chair.Rotation, cc.X, cc.Y)),
				Visible:        true,
				Parent:         node,
				Path:           rectPath(chair.X, chair.Y, layout.ChairWidth, layout.ChairHeight),
				Fill:           chairFill,
				Stroke:         chairStroke,
				StrokeWidth:    1,
			}
			child.Bounds = computePathBounds(child.Path, child.WorldTransform)
			node.Children = append(node.Children, child)
		}

	case document.ItemTypeRowSection:
		node.Kind = NodeRowSection
		node.Stroke = tableStroke
		node.Path = rectPath(x, y, w, h)
		for _, seat := range item.Seats() {
			child := &SceneNode{
				Kind:           NodeSeat,
				ItemID:         item.ID,
				SeatNumber:     seat.Number,
				WorldTransform: world,
				Visible:        true,
				Parent:         node,
				Path:           ellipsePath(seat.X, seat.Y, seatRadius, seatRadius),
				Fill:           firstNonEmpty(item.Color, chairFill),
				Stroke:         chairStroke,
				StrokeWidth:    1,
				Label:          seat.RowLabel,
			}
			child.Bounds = computePathBounds(child.Path, child.WorldTransform)
			node.Children = append(node.Children, child)
		}

	default:
		node.Kind = NodeDecoration
		node.Fill = firstNonEmpty(item.Color, "#cccccc")
		node.Path = rectPath(x, y, w, h)
	}

	if selected {
		node.Stroke = selectionColor
		node.StrokeWidth = 2
	}

	node.Bounds = computePathBounds(node.Path, world)
	for _, child := range node.Children {
		node.Bounds = node.Bounds.Union(child.Bounds)
	}
	return node
}

// rectPath generates path commands for an axis-aligned rectangle.
func rectPath(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// ellipsePath generates path commands for an ellipse centered at (cx, cy)
// using bezier curves.
func ellipsePath(cx, cy, rx, ry float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3 ≈ 0.5522847498
	k := 0.5522847498
	kx, ky := rx*k, ry*k

	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

// computePathBounds computes the axis-aligned bounding box of a path in
// canvas space. Bezier control points are included, which slightly
// over-approximates curves.
func computePathBounds(path []PathCommand, worldTransform Matrix2D) Rect {
	var minX, minY, maxX, maxY float64
	first := true

	add := func(x, y float64) {
		wx, wy := worldTransform.TransformPoint(x, y)
		if first {
			minX, maxX = wx, wx
			minY, maxY = wy, wy
			first = false
			return
		}
		minX = math.Min(minX, wx)
		maxX = math.Max(maxX, wx)
		minY = math.Min(minY, wy)
		maxY = math.Max(maxY, wy)
	}

	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			continue
		}

		switch op {
		case "M", "L":
			if len(cmd) >= 3 {
				add(toFloat64(cmd[1]), toFloat64(cmd[2]))
			}
		case "C":
			if len(cmd) >= 7 {
				for i := 1; i+1 < 7; i += 2 {
					add(toFloat64(cmd[i]), toFloat64(cmd[i+1]))
				}
			}
		case "Z":
			// Close path - no new points
		}
	}

	if first {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
