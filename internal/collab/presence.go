package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks the cursor and selection of every connection in a
// room. Entries are keyed by client id so one user may hold several tabs.
type PresenceManager struct {
	mu      sync.RWMutex
	entries map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		entries: make(map[string]*PresencePayload),
	}
}

// Update merges p into the client's presence. A nil cursor keeps the last
// known cursor, so selection-only updates do not hide the pointer.
func (pm *PresenceManager) Update(clientID string, p PresencePayload) PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if prev, ok := pm.entries[clientID]; ok && p.Cursor == nil {
		p.Cursor = prev.Cursor
	}
	pm.entries[clientID] = &p
	return p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.entries, clientID)
}

// Deselect clears itemID from every selection that holds it and returns the
// updated presences keyed by client id.
func (pm *PresenceManager) Deselect(itemID string) map[string]PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	changed := make(map[string]PresencePayload)
	for clientID, p := range pm.entries {
		if itemID == "" || p.SelectedItemID != itemID {
			continue
		}
		cp := *p
		cp.SelectedItemID = ""
		pm.entries[clientID] = &cp
		changed[clientID] = cp
	}
	return changed
}

// Get returns a copy of one client's presence.
func (pm *PresenceManager) Get(clientID string) (PresencePayload, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.entries[clientID]
	if !ok {
		return PresencePayload{}, false
	}
	return *p, true
}

func (pm *PresenceManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.entries)
}

// StateMessage snapshots every presence for a joining client. It returns
// nil when the room has no presence yet.
func (pm *PresenceManager) StateMessage() *Message {
	pm.mu.RLock()
	if len(pm.entries) == 0 {
		pm.mu.RUnlock()
		return nil
	}
	all := make(map[string]*PresencePayload, len(pm.entries))
	for clientID, p := range pm.entries {
		cp := *p
		all[clientID] = &cp
	}
	pm.mu.RUnlock()

	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
