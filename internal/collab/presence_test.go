package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceUpdateKeepsCursor(t *testing.T) {
	pm := NewPresenceManager()
	assert.Nil(t, pm.StateMessage())

	pm.Update("c1", PresencePayload{UserID: "u1", Cursor: &CursorPos{X: 1, Y: 2}})
	merged := pm.Update("c1", PresencePayload{UserID: "u1", SelectedItemID: "tbl_1"})

	assert.Equal(t, &CursorPos{X: 1, Y: 2}, merged.Cursor)
	assert.Equal(t, "tbl_1", merged.SelectedItemID)
}

func TestPresenceSameUserTwoClients(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", PresencePayload{UserID: "u1", SelectedItemID: "tbl_1"})
	pm.Update("c2", PresencePayload{UserID: "u1", SelectedItemID: "tbl_2"})
	assert.Equal(t, 2, pm.Len())

	pm.Remove("c1")
	_, ok := pm.Get("c1")
	assert.False(t, ok)
	p, ok := pm.Get("c2")
	require.True(t, ok)
	assert.Equal(t, "tbl_2", p.SelectedItemID)
}

func TestPresenceDeselect(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", PresencePayload{UserID: "u1", SelectedItemID: "tbl_1"})
	pm.Update("c2", PresencePayload{UserID: "u2", SelectedItemID: "tbl_1"})
	pm.Update("c3", PresencePayload{UserID: "u3", SelectedItemID: "rows_1"})

	changed := pm.Deselect("tbl_1")
	assert.Len(t, changed, 2)
	assert.Empty(t, changed["c1"].SelectedItemID)

	p, _ := pm.Get("c3")
	assert.Equal(t, "rows_1", p.SelectedItemID)
	assert.Empty(t, pm.Deselect(""))
}

func TestPresenceStateMessage(t *testing.T) {
	pm := NewPresenceManager()
	pm.Update("c1", PresencePayload{UserID: "u1", DisplayName: "Ann"})

	msg := pm.StateMessage()
	require.NotNil(t, msg)
	assert.Equal(t, TypePresenceState, msg.Type)

	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	require.Contains(t, state.Presences, "c1")
	assert.Equal(t, "Ann", state.Presences["c1"].DisplayName)
}
