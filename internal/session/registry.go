package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientInfo describes a connected MCP or websocket client and the forms it
// has parsed.
type ClientInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Transport   string    `json:"transport,omitempty"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	FormsParsed int       `json:"forms_parsed"`
	LastFormID  string    `json:"last_form_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]*ClientInfo
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*ClientInfo), now: time.Now}
}

func (r *Registry) Register(id string, info ClientInfo) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		id = uuid.New().String()
	}
	now := r.now()
	info.ID = id
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = now
	}
	info.LastSeen = now
	r.clients[id] = &info
	return id
}

// Touch refreshes a client, registering it when unknown. Empty fields in
// info leave the stored values alone.
func (r *Registry) Touch(id string, info ClientInfo) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	existing, ok := r.clients[id]
	if !ok {
		info.ID = id
		info.ConnectedAt = now
		info.LastSeen = now
		r.clients[id] = &info
		return
	}
	if info.Name != "" {
		existing.Name = info.Name
	}
	if info.Transport != "" {
		existing.Transport = info.Transport
	}
	if info.RemoteAddr != "" {
		existing.RemoteAddr = info.RemoteAddr
	}
	if info.UserAgent != "" {
		existing.UserAgent = info.UserAgent
	}
	existing.LastSeen = now
}

// RecordForms notes that the client stored formIDs, the last one being the
// most recent.
func (r *Registry) RecordForms(id string, formIDs ...string) {
	if id == "" || len(formIDs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	c.FormsParsed += len(formIDs)
	c.LastFormID = formIDs[len(formIDs)-1]
	c.LastSeen = r.now()
}

func (r *Registry) Unregister(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

func (r *Registry) Get(id string) (ClientInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return ClientInfo{}, false
	}
	return *c, true
}

// List returns clients ordered by connection time.
func (r *Registry) List() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b ClientInfo) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) Prune(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.clients {
		if c.LastSeen.Before(cutoff) {
			delete(r.clients, id)
			removed++
		}
	}
	return removed
}
