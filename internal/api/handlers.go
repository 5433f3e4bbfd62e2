package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/httpx"
	"github.com/adityalohuni/htmlform/internal/service"
	"github.com/adityalohuni/htmlform/internal/session"
)

type Status struct {
	Uptime      string `json:"uptime"`
	StoredForms int    `json:"stored_forms"`
	CachedPages int    `json:"cached_pages"`
	Clients     int    `json:"clients"`
}

// ParsePayload is the body of POST /forms/parse. All selects every form of
// the document and ignores Selector.
type ParsePayload struct {
	service.ParseRequest
	All bool `json:"all,omitempty"`
}

type ParseResponse struct {
	Forms []formstore.Entry `json:"forms"`
}

type SelectPayload struct {
	Collection string `json:"collection,omitempty"`
	Name       string `json:"name"`
	Value      string `json:"value,omitempty"`
	Selected   bool   `json:"selected"`
}

type Handlers struct {
	StartedAt time.Time
	Service   *service.Service
	Clients   *session.Registry
	MaxIdle   time.Duration
}

// Register mounts the handlers on mux behind auth.
func (h *Handlers) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("GET /status", auth(http.HandlerFunc(h.Status)))
	mux.Handle("GET /clients", auth(http.HandlerFunc(h.ClientsList)))
	mux.Handle("POST /forms/parse", auth(http.HandlerFunc(h.Parse)))
	mux.Handle("GET /forms", auth(http.HandlerFunc(h.List)))
	mux.Handle("GET /forms/latest", auth(http.HandlerFunc(h.Latest)))
	mux.Handle("GET /forms/{id}", auth(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /forms/{id}", auth(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /forms/{id}/submission", auth(http.HandlerFunc(h.Submission)))
	mux.Handle("GET /forms/{id}/request", auth(http.HandlerFunc(h.Request)))
	mux.Handle("POST /forms/{id}/select", auth(http.HandlerFunc(h.Select)))
}

func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	h.prune()
	stats := h.Service.Stats()
	httpx.WriteJSON(w, http.StatusOK, Status{
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		StoredForms: stats.StoredForms,
		CachedPages: stats.CachedPages,
		Clients:     h.clientCount(),
	})
}

func (h *Handlers) ClientsList(w http.ResponseWriter, _ *http.Request) {
	h.prune()
	if h.Clients == nil {
		httpx.WriteJSON(w, http.StatusOK, []session.ClientInfo{})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.Clients.List())
}

func (h *Handlers) Parse(w http.ResponseWriter, r *http.Request) {
	var payload ParsePayload
	if err := httpx.DecodeJSON(r.Body, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Source == "" {
		payload.Source = httpx.ClientIP(r)
	}
	if payload.All {
		entries, err := h.Service.ParseAll(r.Context(), payload.Markup, payload.Source)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, ParseResponse{Forms: entries})
		return
	}
	entry, err := h.Service.Parse(r.Context(), payload.ParseRequest)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ParseResponse{Forms: []formstore.Entry{entry}})
}

func (h *Handlers) List(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, ParseResponse{Forms: h.Service.List()})
}

func (h *Handlers) Latest(w http.ResponseWriter, _ *http.Request) {
	entry, err := h.Service.Latest()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Service.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Service.Delete(id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (h *Handlers) Submission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Service.Submission(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

type RequestPreview struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Request previews the request the form would submit. ?base= resolves a
// relative action.
func (h *Handlers) Request(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	req, err := h.Service.Prepare(r.PathValue("id"), base)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, RequestPreview{
		Method:      req.Method,
		URL:         req.URL,
		ContentType: req.ContentType,
		Body:        string(req.Body),
	})
}

func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	var payload SelectPayload
	if err := httpx.DecodeJSON(r.Body, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, err := h.Service.Select(r.Context(), service.SelectRequest{
		FormID:     r.PathValue("id"),
		Collection: strings.TrimSpace(payload.Collection),
		Name:       payload.Name,
		Value:      payload.Value,
		Selected:   payload.Selected,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handlers) prune() {
	if h.Clients != nil && h.MaxIdle > 0 {
		h.Clients.Prune(h.MaxIdle)
	}
}

func (h *Handlers) clientCount() int {
	if h.Clients == nil {
		return 0
	}
	return h.Clients.Count()
}
