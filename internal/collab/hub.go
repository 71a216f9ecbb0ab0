package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/typeid"
)

const saveTimeout = 10 * time.Second

// LayoutLoader loads the latest layout of a chart when its room opens.
type LayoutLoader func(ctx context.Context, chartID string) (*document.Layout, error)

// LayoutSaver persists a room's layout.
type LayoutSaver func(ctx context.Context, chartID string, l *document.Layout) error

type Room struct {
	chartID  string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	state    *LayoutState

	// opMu keeps broadcasts in server sequence order
	opMu sync.Mutex
}

func NewRoom(chartID string, l *document.Layout) *Room {
	return &Room{
		chartID:  chartID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
		state:    NewLayoutState(l),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // chartID -> room
	register   chan *Client
	unregister chan *Client

	loader       LayoutLoader
	saver        LayoutSaver
	saveInterval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. Rooms with unsaved operations are flushed through
// saver every saveInterval and when the hub stops. A nil saver disables
// persistence.
func NewHub(loader LayoutLoader, saver LayoutSaver, saveInterval time.Duration) *Hub {
	if saveInterval <= 0 {
		saveInterval = 30 * time.Second
	}
	return &Hub{
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		loader:       loader,
		saver:        saver,
		saveInterval: saveInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirtyRooms()
		case <-h.stop:
			h.saveDirtyRooms()
			return
		}
	}
}

// Stop saves every dirty room and stops Run. It blocks until Run returns.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// RoomCount returns the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Layout returns the live layout of an open room.
func (h *Hub) Layout(chartID string) (*document.Layout, int64, bool) {
	h.mu.RLock()
	room, ok := h.rooms[chartID]
	h.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	l, seq := room.state.Snapshot()
	return l, seq, true
}

// ReplaceLayout swaps the live layout of an open room for l and sends every
// client a fresh layout.sync. It reports false when no room is open for the
// chart. The room stays dirty until MarkSaved confirms l was stored.
func (h *Hub) ReplaceLayout(chartID string, l *document.Layout) (int64, bool) {
	room, ok := h.room(chartID)
	if !ok {
		return 0, false
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq := room.state.Replace(l)
	live, _ := room.state.Snapshot()
	syncMsg := newMessage(TypeLayoutSync, LayoutSyncPayload{Layout: live, ServerSeq: seq})
	syncMsg.Seq = seq
	h.broadcastToRoom(chartID, syncMsg, "")

	slog.Info("layout replaced", "chart", chartID, "seq", seq)
	return seq, true
}

// MarkSaved records that an open room's layout up to seq was stored by
// someone other than the room.
func (h *Hub) MarkSaved(chartID string, seq int64) {
	if room, ok := h.room(chartID); ok {
		room.state.MarkSaved(seq)
	}
}

func (h *Hub) openRoom(chartID string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[chartID]
	h.mu.RUnlock()
	if ok {
		return room, nil
	}

	var l *document.Layout
	if h.loader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		loaded, err := h.loader(ctx, chartID)
		if err != nil {
			return nil, err
		}
		l = loaded
	}
	if l == nil {
		l = document.NewEmptyLayout(chartID, "Untitled")
	}

	room = NewRoom(chartID, l)
	h.mu.Lock()
	h.rooms[chartID] = room
	h.mu.Unlock()
	return room, nil
}

func (h *Hub) addClient(client *Client) {
	room, err := h.openRoom(client.ChartID)
	if err != nil {
		slog.Error("load layout", "error", err, "chart", client.ChartID)
		client.Send(newMessage(TypeError, ErrorPayload{Message: "failed to load layout"}))
		client.closeSend()
		return
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, UserID: client.UserID}))

	l, seq := room.state.Snapshot()
	syncMsg := newMessage(TypeLayoutSync, LayoutSyncPayload{Layout: l, ServerSeq: seq})
	syncMsg.Seq = seq
	client.Send(syncMsg)

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.ChartID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "chart", client.ChartID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ChartID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ChartID)
	}
	h.mu.Unlock()

	if empty {
		h.saveRoom(room)
		slog.Info("room closed", "chart", room.chartID)
		return
	}

	// Broadcast leave to remaining clients
	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID, UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.ChartID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "chart", client.ChartID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.UserID = sender.UserID
	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.ChartID)
	if !ok {
		return
	}

	merged := room.presence.Update(sender.ClientID, presence)

	// Broadcast to other clients in room
	outMsg := newMessage(TypePresenceUpdate, merged)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.ChartID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Reason: "invalid payload"}))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	room, ok := h.memberRoom(sender)
	if !ok {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: "not joined"}))
		return
	}

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq, err := room.state.ApplyOperation(op)
	if err != nil {
		slog.Debug("operation rejected", "error", err, "op", op.ID, "type", op.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}))
		return
	}

	var deselected map[string]PresencePayload
	if op.Type == OpItemDelete {
		deselected = room.presence.Deselect(op.ItemID)
	}

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
	})
	ack.Seq = seq
	sender.Send(ack)

	broadcast := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	broadcast.Seq = seq
	broadcast.UserID = sender.UserID
	h.broadcastToRoom(sender.ChartID, broadcast, sender.ClientID)

	// Selections of a deleted item are dropped for everyone
	for clientID, p := range deselected {
		msg := newMessage(TypePresenceUpdate, p)
		msg.UserID = p.UserID
		msg.ClientID = clientID
		h.broadcastToRoom(sender.ChartID, msg, "")
	}
}

// memberRoom returns the sender's room once the hub has added it there.
func (h *Hub) memberRoom(c *Client) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[c.ChartID]
	if !ok {
		return nil, false
	}
	if _, member := room.clients[c.ClientID]; !member {
		return nil, false
	}
	return room, true
}

func (h *Hub) room(chartID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[chartID]
	return room, ok
}

func (h *Hub) broadcastToRoom(chartID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[chartID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) saveDirtyRooms() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if h.saver == nil || !room.state.Dirty() {
		return
	}

	l, seq := room.state.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := h.saver(ctx, room.chartID, l); err != nil {
		slog.Error("save layout", "error", err, "chart", room.chartID)
		return
	}
	room.state.MarkSaved(seq)
	slog.Info("layout saved", "chart", room.chartID, "seq", seq)
}
