package formstore

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adityalohuni/htmlform/internal/form"
)

const defaultLimit = 1000

// Entry is a parsed form kept for later lookups.
type Entry struct {
	ID        string      `json:"id"`
	Source    string      `json:"source,omitempty"`
	Selector  string      `json:"selector"`
	Form      form.Record `json:"form"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Store struct {
	mu     sync.RWMutex
	items  map[string]Entry
	latest string
	path   string
}

// NewStore loads entries from path when it exists. An empty path keeps the
// store in memory.
func NewStore(path string) *Store {
	s := &Store{items: make(map[string]Entry), path: path}
	s.load()
	return s
}

func (s *Store) Put(e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if prev, ok := s.items[e.ID]; ok && e.CreatedAt.IsZero() {
		e.CreatedAt = prev.CreatedAt
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.items[e.ID] = e
	s.latest = e.ID
	return e, s.saveLocked()
}

// Update applies fn to the stored entry under the write lock. A missing entry
// is ErrNotFound, and an error from fn leaves the entry untouched.
func (s *Store) Update(id string, fn func(*Entry) error) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return Entry{}, fmt.Errorf("stored form %s: %w", id, form.ErrNotFound)
	}
	if err := fn(&e); err != nil {
		return Entry{}, err
	}
	e.ID = id
	e.UpdatedAt = time.Now().UTC()
	s.items[id] = e
	s.latest = id
	return e, s.saveLocked()
}

func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == "" {
		return Entry{}, false
	}
	e, ok := s.items[s.latest]
	return e, ok
}

// List returns entries oldest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	sortByCreated(out)
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("stored form %s: %w", id, form.ErrNotFound)
	}
	delete(s.items, id)
	if s.latest == id {
		s.latest = s.newestLocked()
	}
	return s.saveLocked()
}

// Compact drops the oldest entries beyond limit and returns how many went.
func (s *Store) Compact(limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(s.items) <= limit {
		return 0, nil
	}
	items := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		items = append(items, e)
	}
	sortByCreated(items)
	removeCount := len(items) - limit
	for i := 0; i < removeCount; i++ {
		delete(s.items, items[i].ID)
	}
	if _, ok := s.items[s.latest]; !ok {
		s.latest = s.newestLocked()
	}
	if err := s.saveLocked(); err != nil {
		return 0, err
	}
	return removeCount, nil
}

func sortByCreated(items []Entry) {
	slices.SortFunc(items, func(a, b Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func (s *Store) newestLocked() string {
	var newest Entry
	for _, e := range s.items {
		if newest.ID == "" || e.UpdatedAt.After(newest.UpdatedAt) ||
			(e.UpdatedAt.Equal(newest.UpdatedAt) && e.CreatedAt.After(newest.CreatedAt)) {
			newest = e
		}
	}
	return newest.ID
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var items []Entry
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}
	for _, e := range items {
		s.items[e.ID] = e
	}
	s.latest = s.newestLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	items := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		items = append(items, e)
	}
	sortByCreated(items)
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
