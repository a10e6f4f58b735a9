package catalog

import (
	"sort"
	"strings"
	"sync"
)

// Store hook function types
type (
	// AddedHook is called after an entry joins the store
	AddedHook func(e *Entry)

	// RemovedHook is called after an entry leaves the store
	RemovedHook func(e *Entry)

	// ChangedHook is called when a member entry reports a field change
	ChangedHook func(c Change)
)

// Store is the ordered catalog. Order defines slot assignment and menu order.
type Store struct {
	mu      sync.RWMutex
	entries []*Entry
	cancels map[*Entry]func()

	hookMu    sync.RWMutex
	onAdded   []AddedHook
	onRemoved []RemovedHook
	onChanged []ChangedHook
}

// NewStore returns an empty store holding entries in the given order.
func NewStore(entries ...*Entry) *Store {
	s := &Store{cancels: make(map[*Entry]func())}
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// OnAdded registers a callback for added entries
func (s *Store) OnAdded(fn AddedHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onAdded = append(s.onAdded, fn)
}

// OnRemoved registers a callback for removed entries
func (s *Store) OnRemoved(fn RemovedHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onRemoved = append(s.onRemoved, fn)
}

// OnChanged registers a callback for member changes
func (s *Store) OnChanged(fn ChangedHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onChanged = append(s.onChanged, fn)
}

// attach must be called with s.mu held.
func (s *Store) attach(e *Entry) {
	if _, ok := s.cancels[e]; ok {
		return
	}
	s.cancels[e] = e.Subscribe(s.relay)
}

// detach must be called with s.mu held. The subscription is only dropped
// once no position holds the entry.
func (s *Store) detach(e *Entry) {
	for _, other := range s.entries {
		if other == e {
			return
		}
	}
	if cancel, ok := s.cancels[e]; ok {
		cancel()
		delete(s.cancels, e)
	}
}

func (s *Store) relay(c Change) {
	s.hookMu.RLock()
	hooks := append([]ChangedHook(nil), s.onChanged...)
	s.hookMu.RUnlock()
	for _, h := range hooks {
		h(c)
	}
}

func (s *Store) fireAdded(e *Entry) {
	s.hookMu.RLock()
	hooks := append([]AddedHook(nil), s.onAdded...)
	s.hookMu.RUnlock()
	for _, h := range hooks {
		h(e)
	}
}

func (s *Store) fireRemoved(e *Entry) {
	s.hookMu.RLock()
	hooks := append([]RemovedHook(nil), s.onRemoved...)
	s.hookMu.RUnlock()
	for _, h := range hooks {
		h(e)
	}
}

// Add appends e.
func (s *Store) Add(e *Entry) {
	s.Insert(s.Len(), e)
}

// Insert places e at index i, clamped to the list bounds.
func (s *Store) Insert(i int, e *Entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	i = max(0, min(i, len(s.entries)))
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	s.attach(e)
	s.mu.Unlock()
	s.fireAdded(e)
}

// Set replaces the entry at index i and returns the previous one.
func (s *Store) Set(i int, e *Entry) (*Entry, bool) {
	if e == nil {
		return nil, false
	}
	s.mu.Lock()
	if i < 0 || i >= len(s.entries) {
		s.mu.Unlock()
		return nil, false
	}
	old := s.entries[i]
	s.entries[i] = e
	s.detach(old)
	s.attach(e)
	s.mu.Unlock()
	if old != e {
		s.fireRemoved(old)
		s.fireAdded(e)
	}
	return old, true
}

// Remove deletes the first occurrence of e and reports whether it was found.
func (s *Store) Remove(e *Entry) bool {
	i := s.IndexOf(e)
	if i < 0 {
		return false
	}
	_, ok := s.RemoveAt(i)
	return ok
}

// RemoveAt deletes and returns the entry at index i.
func (s *Store) RemoveAt(i int) (*Entry, bool) {
	s.mu.Lock()
	if i < 0 || i >= len(s.entries) {
		s.mu.Unlock()
		return nil, false
	}
	e := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.detach(e)
	s.mu.Unlock()
	s.fireRemoved(e)
	return e, true
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	removed := s.entries
	s.entries = nil
	for e, cancel := range s.cancels {
		cancel()
		delete(s.cancels, e)
	}
	s.mu.Unlock()
	for _, e := range removed {
		s.fireRemoved(e)
	}
}

// At returns the entry at index i.
func (s *Store) At(i int) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return nil, false
	}
	return s.entries[i], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a snapshot of the entries in order.
func (s *Store) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Entry(nil), s.entries...)
}

// IndexOf returns the position of e or -1.
func (s *Store) IndexOf(e *Entry) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, other := range s.entries {
		if other == e {
			return i
		}
	}
	return -1
}

// Subscribed reports whether the store currently observes e.
func (s *Store) Subscribed(e *Entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cancels[e]
	return ok
}

// MenuEntry returns the first menu entry, or nil.
func (s *Store) MenuEntry() *Entry {
	for _, e := range s.Entries() {
		if e.IsMenu() {
			return e
		}
	}
	return nil
}

// MenuCount returns how many entries carry a reserved menu name.
func (s *Store) MenuCount() int {
	n := 0
	for _, e := range s.Entries() {
		if e.IsMenu() {
			n++
		}
	}
	return n
}

// TotalLength sums the entry sizes.
func (s *Store) TotalLength() int64 {
	var total int64
	for _, e := range s.Entries() {
		total += e.Length()
	}
	return total
}

// Search returns the entries whose display or header name contains text,
// ignoring case.
func (s *Store) Search(text string) []*Entry {
	needle := strings.ToLower(strings.TrimSpace(text))
	var out []*Entry
	for _, e := range s.Entries() {
		if needle == "" || matches(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e *Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Name()), needle) {
		return true
	}
	h := e.Header()
	return h != nil && strings.Contains(strings.ToLower(h.Name), needle)
}

// Sort orders the store: menu entry first, then by name, then by disc.
func (s *Store) Sort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if am, bm := a.IsMenu(), b.IsMenu(); am != bm {
			return am
		}
		an, bn := strings.ToLower(a.Name()), strings.ToLower(b.Name())
		if an != bn {
			return an < bn
		}
		return a.Disc() < b.Disc()
	})
}
