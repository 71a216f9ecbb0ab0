package engine

// SceneGraph is the render-ready state of a layout. It is rebuilt from the
// item list whenever the layout changes, so chairs always follow their table.
type SceneGraph struct {
	Root       *SceneNode
	NodesByID  map[string]*SceneNode // item id -> item node
	Dirty      bool
	TotalSeats int
}

// NodeKind identifies what a scene node draws.
type NodeKind string

const (
	NodeGroup      NodeKind = "group"
	NodeTable      NodeKind = "table"
	NodeChair      NodeKind = "chair"
	NodeRowSection NodeKind = "rowSection"
	NodeSeat       NodeKind = "seat"
	NodeDecoration NodeKind = "decoration"
)

// SceneNode is a resolved node ready for rendering. Paths are expressed in
// the node's local space; WorldTransform maps them to canvas space.
type SceneNode struct {
	Kind NodeKind

	// ItemID is the canvas item this node belongs to. Chairs and seats carry
	// their parent item's id so hits on them resolve to the item.
	ItemID string

	// SeatNumber is set on chair and seat nodes.
	SeatNumber int

	WorldTransform Matrix2D

	Visible bool

	Parent   *SceneNode
	Children []*SceneNode

	Path        []PathCommand
	Fill        string
	Stroke      string
	StrokeWidth float64
	Label       string

	// Hit testing
	Bounds Rect // axis-aligned bounding box in canvas space
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []interface{}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		NodesByID: make(map[string]*SceneNode),
		Dirty:     true,
	}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
