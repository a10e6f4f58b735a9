package gdcard

import (
	"sync"

	"github.com/agentstation/gdcard/pkg/catalog"
)

// Hook function types for catalog events
type (
	// EntryAddedHook is called when an entry joins the catalog
	EntryAddedHook func(entry *catalog.Entry)

	// EntryRemovedHook is called when an entry leaves the catalog
	EntryRemovedHook func(entry *catalog.Entry)
)

// hooks manages event callbacks for catalog changes
type hooks struct {
	mu             sync.RWMutex
	onEntryAdded   []EntryAddedHook
	onEntryRemoved []EntryRemovedHook
}

// newHooks creates a hooks instance fed by store
func newHooks(store *catalog.Store) *hooks {
	h := &hooks{}
	store.OnAdded(h.triggerAdded)
	store.OnRemoved(h.triggerRemoved)
	return h
}

// OnEntryAdded registers a callback for when entries are added
func (h *hooks) OnEntryAdded(fn EntryAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntryAdded = append(h.onEntryAdded, fn)
}

// OnEntryRemoved registers a callback for when entries are removed
func (h *hooks) OnEntryRemoved(fn EntryRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEntryRemoved = append(h.onEntryRemoved, fn)
}

func (h *hooks) triggerAdded(e *catalog.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onEntryAdded {
		hook(e)
	}
}

func (h *hooks) triggerRemoved(e *catalog.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onEntryRemoved {
		hook(e)
	}
}
