package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seatplan/seatplan/internal/convert"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
	"github.com/seatplan/seatplan/internal/typeid"
)

const (
	MinZoom = 0.5
	MaxZoom = 2.0

	DefaultGridSize = 10.0
)

var (
	ErrNoLayout     = errors.New("no layout loaded")
	ErrItemNotFound = errors.New("item not found")
	ErrDuplicateID  = errors.New("duplicate item id")
	ErrInvalidSize  = errors.New("size must be positive")
	ErrNotDragging  = errors.New("no drag in progress")
	ErrDragActive   = errors.New("drag already in progress")
)

// DragState tracks one pointer-down/pointer-up drag sequence.
type DragState struct {
	ItemID string          `json:"itemId"`
	Start  layout.Position `json:"start"` // item position at pointer-down
	Grab   layout.Position `json:"grab"`  // pointer offset from the item origin, canvas space
}

// State is the controller's UI state. It is handed out by value.
type State struct {
	SelectedID string          `json:"selectedId,omitempty"`
	Zoom       float64         `json:"zoom"`
	Pan        layout.Position `json:"pan"`
	GridSize   float64         `json:"gridSize"`
	Drag       *DragState      `json:"drag,omitempty"`
}

// Engine is the canvas interaction controller. It owns the layout being
// edited and the UI state around it (selection, zoom, pan, drag), and turns
// pointer input into geometry updates. Stored geometry is always in unscaled
// canvas space. An Engine has a single owner and is not safe for concurrent use.
type Engine struct {
	layout *document.Layout
	state  State

	sceneGraph *SceneGraph
	dirty      bool
}

// NewEngine creates an engine snapping drags to the given grid. A
// non-positive grid disables snapping.
func NewEngine(gridSize float64) *Engine {
	return &Engine{
		state: State{
			Zoom:     1,
			GridSize: gridSize,
		},
		sceneGraph: NewSceneGraph(),
		dirty:      true,
	}
}

// --- Commands ---

// LoadLayout loads a layout from JSON, resetting selection and drag state.
func (e *Engine) LoadLayout(jsonData string) error {
	var l document.Layout
	if err := json.Unmarshal([]byte(jsonData), &l); err != nil {
		return fmt.Errorf("decode layout: %w", err)
	}
	e.SetLayout(&l)
	return nil
}

// SetLayout replaces the edited layout with a copy of l.
func (e *Engine) SetLayout(l *document.Layout) {
	e.layout = l.Clone()
	if e.layout.Items == nil {
		e.layout.Items = []document.CanvasItem{}
	}
	e.state.SelectedID = ""
	e.state.Drag = nil
	e.dirty = true
}

// LoadSampleLayout loads the built-in sample layout.
func (e *Engine) LoadSampleLayout(chartID string) {
	e.SetLayout(document.NewSampleLayout(chartID))
}

// Select selects the item with the given id. Unknown ids leave the
// selection unchanged and report false.
func (e *Engine) Select(id string) bool {
	if e.layout == nil || e.layout.IndexOf(id) < 0 {
		return false
	}
	if e.state.SelectedID != id {
		e.state.SelectedID = id
		e.dirty = true
	}
	return true
}

// ClearSelection deselects the current item.
func (e *Engine) ClearSelection() {
	if e.state.SelectedID != "" {
		e.state.SelectedID = ""
		e.dirty = true
	}
}

// SetZoom sets the display scale, clamped to [MinZoom, MaxZoom], and
// returns the applied value. Stored geometry is unaffected.
func (e *Engine) SetZoom(zoom float64) float64 {
	e.state.Zoom = clampZoom(zoom)
	return e.state.Zoom
}

// ZoomAt changes the zoom while keeping the canvas point under the given
// screen position fixed.
func (e *Engine) ZoomAt(zoom float64, screen layout.Position) float64 {
	anchor := e.ScreenToCanvas(screen)
	e.state.Zoom = clampZoom(zoom)
	e.state.Pan = layout.Position{
		X: screen.X - anchor.X*e.state.Zoom,
		Y: screen.Y - anchor.Y*e.state.Zoom,
	}
	return e.state.Zoom
}

// SetPan sets the screen-space pan offset.
func (e *Engine) SetPan(pan layout.Position) {
	e.state.Pan = pan
}

// SetGridSize changes the snapping grid.
func (e *Engine) SetGridSize(grid float64) {
	e.state.GridSize = grid
}

// ViewMatrix returns the canvas-to-screen transform.
func (e *Engine) ViewMatrix() Matrix2D {
	return ViewMatrix(e.state.Zoom, e.state.Pan)
}

// ScreenToCanvas maps a screen point into canvas space.
func (e *Engine) ScreenToCanvas(p layout.Position) layout.Position {
	return e.ViewMatrix().Invert().Apply(p)
}

// CanvasToScreen maps a canvas point into screen space.
func (e *Engine) CanvasToScreen(p layout.Position) layout.Position {
	return e.ViewMatrix().Apply(p)
}

// BeginDrag starts dragging an item from the given screen point and selects it.
func (e *Engine) BeginDrag(id string, screen layout.Position) error {
	if e.state.Drag != nil {
		return ErrDragActive
	}
	item, err := e.item(id)
	if err != nil {
		return err
	}

	pointer := e.ScreenToCanvas(screen)
	e.state.Drag = &DragState{
		ItemID: id,
		Start:  item.Position,
		Grab:   layout.Position{X: pointer.X - item.Position.X, Y: pointer.Y - item.Position.Y},
	}
	e.Select(id)
	return nil
}

// DragTo moves the dragged item so the grab point follows the pointer,
// snapped to the grid, and returns the new item position.
func (e *Engine) DragTo(screen layout.Position) (layout.Position, error) {
	if e.state.Drag == nil {
		return layout.Position{}, ErrNotDragging
	}
	item, err := e.item(e.state.Drag.ItemID)
	if err != nil {
		e.state.Drag = nil
		return layout.Position{}, err
	}

	pointer := e.ScreenToCanvas(screen)
	target := layout.Position{X: pointer.X - e.state.Drag.Grab.X, Y: pointer.Y - e.state.Drag.Grab.Y}
	target = layout.SnapPosition(target, e.state.GridSize)

	if item.Position != target {
		item.Position = target
		e.dirty = true
	}
	return target, nil
}

// EndDrag finishes the drag and returns a copy of the moved item. The
// boolean is false when the item ended where it started.
func (e *Engine) EndDrag() (document.CanvasItem, bool, error) {
	if e.state.Drag == nil {
		return document.CanvasItem{}, false, ErrNotDragging
	}
	drag := e.state.Drag
	e.state.Drag = nil

	item, err := e.item(drag.ItemID)
	if err != nil {
		return document.CanvasItem{}, false, err
	}
	return *item, item.Position != drag.Start, nil
}

// CancelDrag aborts the drag and puts the item back where it started.
func (e *Engine) CancelDrag() {
	if e.state.Drag == nil {
		return
	}
	if item, err := e.item(e.state.Drag.ItemID); err == nil {
		item.Position = e.state.Drag.Start
		e.dirty = true
	}
	e.state.Drag = nil
}

// MoveItem places an item at pos, snapped to the grid.
func (e *Engine) MoveItem(id string, pos layout.Position) error {
	item, err := e.item(id)
	if err != nil {
		return err
	}
	item.Position = layout.SnapPosition(pos, e.state.GridSize)
	e.dirty = true
	return nil
}

// ResizeItem changes an item's footprint. Square tables keep equal sides
// (the width wins) and row sections rescale their seat spacing to fit.
func (e *Engine) ResizeItem(id string, size layout.Size) error {
	if !size.Valid() {
		return ErrInvalidSize
	}
	item, err := e.item(id)
	if err != nil {
		return err
	}

	if item.Type == document.ItemTypeTable && item.Shape == layout.ShapeSquare {
		size.Height = size.Width
	}
	if item.Type == document.ItemTypeRowSection && item.RowCount > 0 && item.SeatsPerRow > 0 {
		item.SeatSpacing = size.Width / float64(item.SeatsPerRow)
		item.RowSpacing = size.Height / float64(item.RowCount)
	}
	item.Size = size
	e.dirty = true
	return nil
}

// RotateItem sets an item's rotation in degrees, wrapped into [0, 360).
func (e *Engine) RotateItem(id string, degrees float64) error {
	item, err := e.item(id)
	if err != nil {
		return err
	}
	item.Rotation = layout.NormalizeRotation(degrees)
	e.dirty = true
	return nil
}

// SetCapacity changes the number of chairs of a table.
func (e *Engine) SetCapacity(id string, capacity int) error {
	item, err := e.item(id)
	if err != nil {
		return err
	}
	if item.Type != document.ItemTypeTable {
		return fmt.Errorf("set capacity on %s: not a table", item.Type)
	}
	item.Capacity = capacity
	e.dirty = true
	return nil
}

// AddItem appends an item to the layout and returns the stored copy. Items
// without an id get one.
func (e *Engine) AddItem(item document.CanvasItem) (document.CanvasItem, error) {
	if e.layout == nil {
		return document.CanvasItem{}, ErrNoLayout
	}
	if !item.Size.Valid() {
		return document.CanvasItem{}, ErrInvalidSize
	}
	if item.ID == "" {
		item.ID = typeid.New(prefixFor(item.Type))
	} else if e.layout.IndexOf(item.ID) >= 0 {
		return document.CanvasItem{}, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}

	item.Position = layout.SnapPosition(item.Position, e.state.GridSize)
	item.Rotation = layout.NormalizeRotation(item.Rotation)
	e.layout.Items = append(e.layout.Items, item)
	e.dirty = true
	return item, nil
}

// AddTableFromTemplate drops a new table of the given shape and capacity with
// its center at pos (canvas space).
func (e *Engine) AddTableFromTemplate(shape layout.TableShape, capacity int, pos layout.Position) (document.CanvasItem, error) {
	if !shape.Valid() {
		shape = layout.ShapeRound
	}
	size := layout.DefaultTableSize(shape)
	return e.AddItem(document.CanvasItem{
		Type:     document.ItemTypeTable,
		Position: layout.Position{X: pos.X - size.Width/2, Y: pos.Y - size.Height/2},
		Size:     size,
		Shape:    shape,
		Capacity: capacity,
	})
}

// RemoveItem deletes an item, clearing the selection and any drag on it.
func (e *Engine) RemoveItem(id string) error {
	if e.layout == nil {
		return ErrNoLayout
	}
	i := e.layout.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	e.layout.Items = append(e.layout.Items[:i], e.layout.Items[i+1:]...)
	if e.state.SelectedID == id {
		e.state.SelectedID = ""
	}
	if e.state.Drag != nil && e.state.Drag.ItemID == id {
		e.state.Drag = nil
	}
	e.dirty = true
	return nil
}

// --- Queries ---

// State returns a copy of the UI state.
func (e *Engine) State() State {
	s := e.state
	if s.Drag != nil {
		d := *s.Drag
		s.Drag = &d
	}
	return s
}

// SelectedID returns the selected item id, or empty string.
func (e *Engine) SelectedID() string {
	return e.state.SelectedID
}

// Layout returns a copy of the edited layout, or nil.
func (e *Engine) Layout() *document.Layout {
	if e.layout == nil {
		return nil
	}
	return e.layout.Clone()
}

// Item returns a copy of one item.
func (e *Engine) Item(id string) (document.CanvasItem, bool) {
	item, err := e.item(id)
	if err != nil {
		return document.CanvasItem{}, false
	}
	return *item, true
}

// Chairs returns the chairs of a table, computed from its current geometry.
func (e *Engine) Chairs(id string) []layout.Chair {
	item, err := e.item(id)
	if err != nil {
		return nil
	}
	return item.Chairs()
}

// Validate checks the layout's items before a save.
func (e *Engine) Validate() convert.ValidationResult {
	if e.layout == nil {
		return convert.ValidateCanvasItems(nil)
	}
	return convert.ValidateCanvasItems(e.layout.Items)
}

// SceneGraph returns the scene graph for the current layout, rebuilding it
// when anything changed.
func (e *Engine) SceneGraph() *SceneGraph {
	if e.dirty || e.sceneGraph == nil {
		e.sceneGraph = BuildSceneGraph(e.layout, e.state.SelectedID)
		e.dirty = false
	}
	return e.sceneGraph
}

// DrawCommands compiles the current layout into draw commands.
func (e *Engine) DrawCommands() []DrawCommand {
	return CompileDrawCommands(e.SceneGraph())
}

// Render returns the draw commands as JSON.
func (e *Engine) Render() string {
	if e.layout == nil {
		return "[]"
	}
	result, _ := DrawCommandsToJSON(e.DrawCommands())
	return result
}

// HitTest returns the topmost item at a screen point, or empty string.
func (e *Engine) HitTest(screen layout.Position) string {
	if e.layout == nil {
		return ""
	}
	p := e.ScreenToCanvas(screen)
	return HitTest(e.SceneGraph(), p.X, p.Y)
}

// SelectionBounds returns the canvas-space bounds of the selected item,
// chairs included.
func (e *Engine) SelectionBounds() Rect {
	if e.layout == nil || e.state.SelectedID == "" {
		return Rect{}
	}
	return GetItemBounds(e.SceneGraph(), e.state.SelectedID)
}

func (e *Engine) item(id string) (*document.CanvasItem, error) {
	if e.layout == nil {
		return nil, ErrNoLayout
	}
	item, ok := e.layout.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item, nil
}

func clampZoom(z float64) float64 {
	if z != z { // NaN
		return 1
	}
	return min(max(z, MinZoom), MaxZoom)
}

func prefixFor(t document.ItemType) string {
	switch t {
	case document.ItemTypeTable:
		return typeid.PrefixTable
	case document.ItemTypeRowSection:
		return typeid.PrefixRowSection
	case document.ItemTypeDanceFloor:
		return typeid.PrefixDanceFloor
	default:
		return typeid.PrefixStage
	}
}
