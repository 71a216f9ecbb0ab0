package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seatplan/seatplan/internal/convert"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrItemNotFound     = errors.New("item not found")
	ErrItemExists       = errors.New("item already exists")
	ErrInvalidOperation = errors.New("invalid operation")
)

// LayoutState holds the authoritative layout of a room
type LayoutState struct {
	mu        sync.RWMutex
	layout    *document.Layout
	serverSeq int64
	savedSeq  int64
}

// NewLayoutState creates a layout state from an initial layout
func NewLayoutState(l *document.Layout) *LayoutState {
	l = l.Clone()
	if l.Items == nil {
		l.Items = []document.CanvasItem{}
	}
	return &LayoutState{layout: l}
}

// Snapshot returns a copy of the current layout and the sequence it reflects.
func (ls *LayoutState) Snapshot() (*document.Layout, int64) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.layout.Clone(), ls.serverSeq
}

// ServerSeq returns the sequence number of the last applied operation.
func (ls *LayoutState) ServerSeq() int64 {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.serverSeq
}

// Dirty reports whether operations were applied since the last save.
func (ls *LayoutState) Dirty() bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.serverSeq > ls.savedSeq
}

// MarkSaved records that the layout up to seq has been persisted.
func (ls *LayoutState) MarkSaved(seq int64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if seq > ls.savedSeq {
		ls.savedSeq = seq
	}
}

// Replace swaps in a layout stored outside the room. The swap counts as
// one operation so clients can order it against their own edits.
func (ls *LayoutState) Replace(l *document.Layout) int64 {
	l = l.Clone()
	if l.Items == nil {
		l.Items = []document.CanvasItem{}
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.layout = l
	ls.serverSeq++
	return ls.serverSeq
}

// ApplyOperation applies an operation to the layout and returns the server sequence
func (ls *LayoutState) ApplyOperation(op Operation) (int64, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := ls.applyOperationLocked(op); err != nil {
		return 0, err
	}

	ls.serverSeq++
	ls.layout.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return ls.serverSeq, nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (ls *LayoutState) applyOperationLocked(op Operation) error {
	switch op.Type {
	case OpItemCreate:
		return ls.applyCreate(op)
	case OpItemMove:
		return ls.applyMove(op)
	case OpItemResize:
		return ls.applyResize(op)
	case OpItemRotate:
		return ls.applyRotate(op)
	case OpItemUpdate:
		return ls.applyUpdate(op)
	case OpItemDelete:
		return ls.applyDelete(op)
	case OpLayoutRename:
		return ls.applyRename(op)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func (ls *LayoutState) item(id string) (*document.CanvasItem, error) {
	item, ok := ls.layout.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item, nil
}

func (ls *LayoutState) applyCreate(op Operation) error {
	if op.Item == nil || op.Item.ID == "" {
		return fmt.Errorf("%w: item.create needs an item with an id", ErrInvalidOperation)
	}
	if ls.layout.IndexOf(op.Item.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrItemExists, op.Item.ID)
	}
	if !op.Item.Size.Valid() || !op.Item.Position.Finite() {
		return fmt.Errorf("%w: item geometry", ErrInvalidOperation)
	}

	item := *op.Item
	item.Rotation = layout.NormalizeRotation(item.Rotation)
	if item.Type == document.ItemTypeTable {
		if shape, ok := layout.ParseTableShape(string(item.Shape)); ok {
			item.Shape = shape
		}
	}
	// Same per-item rules as an explicit save
	if res := convert.ValidateCanvasItems([]document.CanvasItem{item}); !res.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidOperation, strings.Join(res.Errors, "; "))
	}

	items := ls.layout.Items
	if op.Index != nil && *op.Index >= 0 && *op.Index <= len(items) {
		// Insert at specific paint position
		items = append(items, document.CanvasItem{})
		copy(items[*op.Index+1:], items[*op.Index:])
		items[*op.Index] = item
	} else {
		items = append(items, item)
	}
	ls.layout.Items = items
	return nil
}

func (ls *LayoutState) applyMove(op Operation) error {
	item, err := ls.item(op.ItemID)
	if err != nil {
		return err
	}
	if op.Position == nil || !op.Position.Finite() {
		return fmt.Errorf("%w: item.move needs a finite position", ErrInvalidOperation)
	}
	item.Position = *op.Position
	return nil
}

func (ls *LayoutState) applyResize(op Operation) error {
	item, err := ls.item(op.ItemID)
	if err != nil {
		return err
	}
	if op.Size == nil || !op.Size.Valid() {
		return fmt.Errorf("%w: item.resize needs a positive size", ErrInvalidOperation)
	}
	size := *op.Size
	if item.Type == document.ItemTypeTable && item.Shape == layout.ShapeSquare {
		size.Height = size.Width
	}
	item.Size = size
	return nil
}

func (ls *LayoutState) applyRotate(op Operation) error {
	item, err := ls.item(op.ItemID)
	if err != nil {
		return err
	}
	if op.Rotation == nil {
		return fmt.Errorf("%w: item.rotate needs a rotation", ErrInvalidOperation)
	}
	item.Rotation = layout.NormalizeRotation(*op.Rotation)
	return nil
}

// itemChanges lists the item fields item.update may touch.
type itemChanges struct {
	Label       *string   `json:"label"`
	Color       *string   `json:"color"`
	SectionID   *string   `json:"sectionId"`
	Shape       *string   `json:"shape"`
	Capacity    *int      `json:"capacity"`
	RowCount    *int      `json:"rowCount"`
	SeatsPerRow *int      `json:"seatsPerRow"`
	RowLabels   *[]string `json:"rowLabels"`
}

func (ls *LayoutState) applyUpdate(op Operation) error {
	item, err := ls.item(op.ItemID)
	if err != nil {
		return err
	}

	var changes itemChanges
	if err := json.Unmarshal(op.Changes, &changes); err != nil {
		return fmt.Errorf("%w: invalid changes: %v", ErrInvalidOperation, err)
	}

	// Validate everything before touching the item
	var shape layout.TableShape
	if changes.Shape != nil {
		s, ok := layout.ParseTableShape(*changes.Shape)
		if !ok || item.Type != document.ItemTypeTable {
			return fmt.Errorf("%w: shape %q", ErrInvalidOperation, *changes.Shape)
		}
		shape = s
	}
	if changes.Capacity != nil {
		if item.Type != document.ItemTypeTable || *changes.Capacity < 1 || *changes.Capacity > layout.MaxTableCapacity {
			return fmt.Errorf("%w: capacity %d", ErrInvalidOperation, *changes.Capacity)
		}
	}
	if changes.RowCount != nil && (item.Type != document.ItemTypeRowSection || *changes.RowCount < 1) {
		return fmt.Errorf("%w: rowCount %d", ErrInvalidOperation, *changes.RowCount)
	}
	if changes.SeatsPerRow != nil && (item.Type != document.ItemTypeRowSection || *changes.SeatsPerRow < 1) {
		return fmt.Errorf("%w: seatsPerRow %d", ErrInvalidOperation, *changes.SeatsPerRow)
	}

	if changes.Label != nil {
		item.Label = *changes.Label
	}
	if changes.Color != nil {
		item.Color = *changes.Color
	}
	if changes.SectionID != nil {
		item.SectionID = *changes.SectionID
	}
	if changes.Shape != nil {
		item.Shape = shape
		if shape == layout.ShapeSquare {
			item.Size.Height = item.Size.Width
		}
	}
	if changes.Capacity != nil {
		item.Capacity = *changes.Capacity
	}
	if changes.RowCount != nil {
		item.RowCount = *changes.RowCount
	}
	if changes.SeatsPerRow != nil {
		item.SeatsPerRow = *changes.SeatsPerRow
	}
	if changes.RowLabels != nil {
		item.RowLabels = append([]string(nil), (*changes.RowLabels)...)
	}
	if changes.RowCount != nil || changes.SeatsPerRow != nil {
		item.Size = layout.RowBlockSize(item.RowCount, item.SeatsPerRow, item.RowSpacing, item.SeatSpacing)
	}
	return nil
}

func (ls *LayoutState) applyDelete(op Operation) error {
	i := ls.layout.IndexOf(op.ItemID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, op.ItemID)
	}
	ls.layout.Items = append(ls.layout.Items[:i], ls.layout.Items[i+1:]...)
	return nil
}

func (ls *LayoutState) applyRename(op Operation) error {
	name := strings.TrimSpace(op.Name)
	if name == "" {
		return fmt.Errorf("%w: layout name is empty", ErrInvalidOperation)
	}
	ls.layout.Name = name
	return nil
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
