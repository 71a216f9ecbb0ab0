package collab

import (
	"encoding/json"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

type Message struct {
	Type     string          `json:"type"`
	ChartID  string          `json:"chartId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor         *CursorPos `json:"cursor,omitempty"`
	SelectedItemID string     `json:"selectedItemId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
	DisplayName    string     `json:"displayName,omitempty"`
}

// CursorPos is a pointer position in canvas space.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload maps client ids to their presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// LayoutSyncPayload carries the full authoritative layout to a joining client.
type LayoutSyncPayload struct {
	Layout    *document.Layout `json:"layout"`
	ServerSeq int64            `json:"serverSeq"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Layout sync
	TypeLayoutSync = "layout.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation kinds
const (
	OpItemCreate   = "item.create"
	OpItemMove     = "item.move"
	OpItemResize   = "item.resize"
	OpItemRotate   = "item.rotate"
	OpItemUpdate   = "item.update"
	OpItemDelete   = "item.delete"
	OpLayoutRename = "layout.rename"
)

// --- Operation Types ---

// Operation represents a layout mutation
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	ItemID    string `json:"itemId,omitempty"`

	// For item.create
	Item  *document.CanvasItem `json:"item,omitempty"`
	Index *int                 `json:"index,omitempty"`

	// For item.move
	Position *layout.Position `json:"position,omitempty"`

	// For item.resize
	Size *layout.Size `json:"size,omitempty"`

	// For item.rotate
	Rotation *float64 `json:"rotation,omitempty"`

	// For item.update
	Changes json.RawMessage `json:"changes,omitempty"`

	// For layout.rename
	Name string `json:"name,omitempty"`

	// Client-side undo data, passed through untouched
	Previous json.RawMessage `json:"previous,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

func newMessage(msgType string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	return &Message{Type: msgType, Payload: data}
}
