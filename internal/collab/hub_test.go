package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []*document.Layout
}

func (r *recordingSaver) save(_ context.Context, _ string, l *document.Layout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, l)
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recordingSaver) last() *document.Layout {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	return r.saved[len(r.saved)-1]
}

func staticLoader(_ context.Context, _ string) (*document.Layout, error) {
	return stateLayout(), nil
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func recvType(t *testing.T, c *Client, msgType string) *Message {
	t.Helper()
	for {
		msg := recv(t, c)
		if msg.Type == msgType {
			return msg
		}
	}
}

func submit(t *testing.T, op Operation) *Message {
	t.Helper()
	payload, err := json.Marshal(OperationSubmitPayload{Operation: op})
	require.NoError(t, err)
	return &Message{Type: TypeOpSubmit, Payload: payload}
}

func join(t *testing.T, hub *Hub, userID, clientID string) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID, userID, "chart_1", clientID)
	hub.Register(c)
	recvType(t, c, TypeWelcome)
	return c
}

func TestHubSyncAndBroadcast(t *testing.T) {
	saver := &recordingSaver{}
	hub := NewHub(staticLoader, saver.save, time.Hour)
	go hub.Run()

	a := NewClient(hub, nil, "u1", "Ann", "chart_1", "c1")
	hub.Register(a)
	recvType(t, a, TypeWelcome)

	syncMsg := recvType(t, a, TypeLayoutSync)
	var syncPayload LayoutSyncPayload
	require.NoError(t, json.Unmarshal(syncMsg.Payload, &syncPayload))
	assert.Len(t, syncPayload.Layout.Items, 2)
	assert.Equal(t, int64(0), syncPayload.ServerSeq)

	b := join(t, hub, "u2", "c2")
	joined := recvType(t, a, TypePresenceJoin)
	assert.Equal(t, "u2", joined.UserID)

	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpItemMove, ItemID: "tbl_1", Position: &layout.Position{X: 200, Y: 200}}))

	ack := recvType(t, a, TypeOpAck)
	var ackPayload OperationAckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ackPayload))
	assert.Equal(t, "op1", ackPayload.OperationID)
	assert.Equal(t, int64(1), ackPayload.ServerSeq)

	bc := recvType(t, b, TypeOpBroadcast)
	var bcPayload OperationBroadcastPayload
	require.NoError(t, json.Unmarshal(bc.Payload, &bcPayload))
	assert.Equal(t, int64(1), bcPayload.ServerSeq)
	assert.Equal(t, "u1", bcPayload.UserID)
	assert.Equal(t, OpItemMove, bcPayload.Operation.Type)

	hub.handleMessage(a, submit(t, Operation{ID: "op2", Type: OpItemDelete, ItemID: "missing"}))
	nack := recvType(t, a, TypeOpNack)
	var nackPayload OperationNackPayload
	require.NoError(t, json.Unmarshal(nack.Payload, &nackPayload))
	assert.Equal(t, "op2", nackPayload.OperationID)
	assert.NotEmpty(t, nackPayload.Reason)

	live, seq, ok := hub.Layout("chart_1")
	require.True(t, ok)
	assert.Equal(t, int64(1), seq)
	assert.Equal(t, layout.Position{X: 200, Y: 200}, live.Items[0].Position)

	hub.Stop()
	require.Equal(t, 1, saver.count())
	assert.Equal(t, layout.Position{X: 200, Y: 200}, saver.last().Items[0].Position)
}

func TestHubPresence(t *testing.T) {
	hub := NewHub(staticLoader, nil, time.Hour)
	go hub.Run()
	defer hub.Stop()

	a := join(t, hub, "u1", "c1")
	b := join(t, hub, "u2", "c2")

	payload, err := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 10, Y: 20}, SelectedItemID: "tbl_1"})
	require.NoError(t, err)
	hub.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: payload})

	msg := recvType(t, b, TypePresenceUpdate)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "tbl_1", p.SelectedItemID)
	assert.Equal(t, "u1", p.DisplayName)
	assert.Equal(t, "c1", msg.ClientID)

	// deleting the item clears it from everyone's selection
	hub.handleMessage(b, submit(t, Operation{ID: "op1", Type: OpItemDelete, ItemID: "tbl_1"}))
	recvType(t, b, TypeOpAck)
	room, ok := hub.room("chart_1")
	require.True(t, ok)
	cur, ok := room.presence.Get("c1")
	require.True(t, ok)
	assert.Empty(t, cur.SelectedItemID)
	assert.Equal(t, &CursorPos{X: 10, Y: 20}, cur.Cursor)

	cleared := recvType(t, a, TypePresenceUpdate)
	assert.Equal(t, "c1", cleared.ClientID)

	hub.Unregister(b)
	left := recvType(t, a, TypePresenceLeave)
	assert.Equal(t, "u2", left.UserID)
}

func TestHubSavesWhenRoomEmpties(t *testing.T) {
	saver := &recordingSaver{}
	hub := NewHub(staticLoader, saver.save, time.Hour)
	go hub.Run()
	defer hub.Stop()

	a := join(t, hub, "u1", "c1")
	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpLayoutRename, Name: "Renamed"}))
	recvType(t, a, TypeOpAck)

	hub.Unregister(a)
	require.Eventually(t, func() bool { return saver.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, "Renamed", saver.last().Name)
}

func TestHubCleanRoomIsNotSaved(t *testing.T) {
	saver := &recordingSaver{}
	hub := NewHub(staticLoader, saver.save, time.Hour)
	go hub.Run()

	join(t, hub, "u1", "c1")
	hub.Stop()
	assert.Equal(t, 0, saver.count())
}

func TestHubLoaderFailure(t *testing.T) {
	hub := NewHub(func(context.Context, string) (*document.Layout, error) {
		return nil, errors.New("db down")
	}, nil, time.Hour)
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil, "u1", "Ann", "chart_1", "c1")
	hub.Register(c)

	msg := recv(t, c)
	assert.Equal(t, TypeError, msg.Type)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.RoomCount())
}

func TestHubNilLoaderStartsEmpty(t *testing.T) {
	hub := NewHub(nil, nil, time.Hour)
	go hub.Run()
	defer hub.Stop()

	c := NewClient(hub, nil, "u1", "Ann", "chart_new", "c1")
	hub.Register(c)
	msg := recvType(t, c, TypeLayoutSync)

	var p LayoutSyncPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "chart_new", p.Layout.ID)
	assert.Empty(t, p.Layout.Items)
}

func TestHubReplaceLayoutSurvivesAutosave(t *testing.T) {
	saver := &recordingSaver{}
	hub := NewHub(staticLoader, saver.save, time.Hour)
	go hub.Run()

	a := join(t, hub, "u1", "c1")
	recvType(t, a, TypeLayoutSync)

	_, ok := hub.ReplaceLayout("chart_missing", stateLayout())
	assert.False(t, ok)

	// a layout saved over HTTP while the room is open
	imported := stateLayout()
	imported.Items = append(imported.Items, document.CanvasItem{
		Type:     document.ItemTypeTable,
		ID:       "tbl_imported",
		Position: layout.Position{X: 500, Y: 500},
		Size:     layout.Size{Width: 100, Height: 100},
		Shape:    layout.ShapeRound,
		Capacity: 6,
	})
	seq, ok := hub.ReplaceLayout("chart_1", imported)
	require.True(t, ok)
	assert.Equal(t, int64(1), seq)

	resync := recvType(t, a, TypeLayoutSync)
	var p LayoutSyncPayload
	require.NoError(t, json.Unmarshal(resync.Payload, &p))
	assert.Equal(t, int64(1), p.ServerSeq)
	assert.Len(t, p.Layout.Items, 3)

	hub.MarkSaved("chart_1", seq)

	hub.handleMessage(a, submit(t, Operation{ID: "op1", Type: OpItemMove, ItemID: "tbl_1", Position: &layout.Position{X: 70, Y: 70}}))
	ack := recvType(t, a, TypeOpAck)
	assert.Equal(t, int64(2), ack.Seq)

	hub.Stop()
	require.Equal(t, 1, saver.count())
	saved := saver.last()
	require.Len(t, saved.Items, 3)
	_, kept := saved.Item("tbl_imported")
	assert.True(t, kept)
	assert.Equal(t, layout.Position{X: 70, Y: 70}, saved.Items[0].Position)
}

func TestHubReplacedAndSavedRoomIsClean(t *testing.T) {
	saver := &recordingSaver{}
	hub := NewHub(staticLoader, saver.save, time.Hour)
	go hub.Run()

	join(t, hub, "u1", "c1")
	seq, ok := hub.ReplaceLayout("chart_1", stateLayout())
	require.True(t, ok)
	hub.MarkSaved("chart_1", seq)

	hub.Stop()
	assert.Equal(t, 0, saver.count())
}

func TestHubNacksOpFromUnjoinedClient(t *testing.T) {
	hub := NewHub(staticLoader, nil, time.Hour)
	go hub.Run()
	defer hub.Stop()

	join(t, hub, "u1", "c1")
	stranger := NewClient(hub, nil, "u2", "Bob", "chart_1", "c2")

	hub.handleMessage(stranger, submit(t, Operation{ID: "op1", Type: OpItemDelete, ItemID: "tbl_1"}))
	nack := recvType(t, stranger, TypeOpNack)

	var p OperationNackPayload
	require.NoError(t, json.Unmarshal(nack.Payload, &p))
	assert.Equal(t, "op1", p.OperationID)
	assert.Equal(t, "not joined", p.Reason)

	live, seq, ok := hub.Layout("chart_1")
	require.True(t, ok)
	assert.Equal(t, int64(0), seq)
	assert.Len(t, live.Items, 2)
}
