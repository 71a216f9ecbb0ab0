package engine

import (
	"encoding/json"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context
// after applying the view transform.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "path", "text"
	ItemID      string        `json:"itemId,omitempty"`      // For hit correlation
	Kind        NodeKind      `json:"kind,omitempty"`        // What the path depicts
	SeatNumber  int           `json:"seatNumber,omitempty"`  // Chair/seat number
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Text        string        `json:"text,omitempty"`        // Label for "text" ops
	X           float64       `json:"x,omitempty"`           // Text anchor
	Y           float64       `json:"y,omitempty"`
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front): an item's body is drawn
// before its chairs, and its label last.
func CompileDrawCommands(sg *SceneGraph) []DrawCommand {
	if sg == nil || sg.Root == nil {
		return nil
	}

	var commands []DrawCommand
	compileNode(sg.Root, &commands)
	return commands
}

// compileNode recursively generates draw commands for a node and its children.
func compileNode(node *SceneNode, commands *[]DrawCommand) {
	if node == nil || !node.Visible {
		return
	}

	if len(node.Path) > 0 {
		*commands = append(*commands, DrawCommand{
			Op:          "path",
			ItemID:      node.ItemID,
			Kind:        node.Kind,
			SeatNumber:  node.SeatNumber,
			Transform:   node.WorldTransform.ToSlice(),
			Path:        node.Path,
			Fill:        node.Fill,
			Stroke:      node.Stroke,
			StrokeWidth: node.StrokeWidth,
		})
	}

	for _, child := range node.Children {
		compileNode(child, commands)
	}

	// Item labels sit at the unrotated center of the item body.
	if node.Label != "" && node.Kind != NodeSeat && node.Kind != NodeChair {
		cx, cy := computePathBounds(node.Path, Identity()).Center()
		*commands = append(*commands, DrawCommand{
			Op:        "text",
			ItemID:    node.ItemID,
			Kind:      node.Kind,
			Transform: node.WorldTransform.ToSlice(),
			Text:      node.Label,
			X:         cx,
			Y:         cy,
		})
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest performs a hit test on the scene graph at the given canvas point.
// Returns the item id of the topmost (frontmost) item containing the point,
// or empty string. A hit on a chair or seat resolves to its item.
func HitTest(sg *SceneGraph, x, y float64) string {
	if sg == nil || sg.Root == nil {
		return ""
	}
	return hitTestNode(sg.Root, x, y)
}

// hitTestNode recursively tests a node and its children.
// Children are tested first (they're on top in painter's order).
func hitTestNode(node *SceneNode, x, y float64) string {
	if node == nil || !node.Visible {
		return ""
	}

	for i := len(node.Children) - 1; i >= 0; i-- {
		if hit := hitTestNode(node.Children[i], x, y); hit != "" {
			return hit
		}
	}

	if len(node.Path) > 0 && node.ItemID != "" {
		bounds := computePathBounds(node.Path, node.WorldTransform)
		if !bounds.IsEmpty() && bounds.Contains(x, y) {
			return node.ItemID
		}
	}

	return ""
}

// GetItemBounds returns the bounding box of an item including its chairs.
func GetItemBounds(sg *SceneGraph, itemID string) Rect {
	if sg == nil {
		return Rect{}
	}
	node, ok := sg.NodesByID[itemID]
	if !ok {
		return Rect{}
	}
	return node.Bounds
}
