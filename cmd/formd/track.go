package main

import (
	"net/http"

	"github.com/adityalohuni/htmlform/internal/httpx"
	"github.com/adityalohuni/htmlform/internal/session"
)

// trackSSE registers the client for the lifetime of the event stream.
func trackSSE(reg *session.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holdStream(reg, w, r, clientInfoFromRequest(r, "sse"))
		next.ServeHTTP(w, r)
	})
}

// trackStreamable holds GET streams like SSE and only refreshes the client on
// POSTed messages.
func trackStreamable(reg *session.Registry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := clientInfoFromRequest(r, "streamable")
		switch {
		case r.Method == http.MethodGet:
			holdStream(reg, w, r, info)
		case clientIDFromRequest(r) != "":
			reg.Touch(clientIDFromRequest(r), info)
		}
		next.ServeHTTP(w, r)
	})
}

func holdStream(reg *session.Registry, w http.ResponseWriter, r *http.Request, info session.ClientInfo) {
	id := ensureClient(reg, w, r, info)
	if id == "" {
		return
	}
	go func() {
		<-r.Context().Done()
		reg.Unregister(id)
	}()
}

func ensureClient(reg *session.Registry, w http.ResponseWriter, r *http.Request, info session.ClientInfo) string {
	if id := clientIDFromRequest(r); id != "" {
		reg.Touch(id, info)
		return id
	}
	id := reg.Register("", info)
	w.Header().Set("X-Assigned-Client-Id", id)
	return id
}

func clientInfoFromRequest(r *http.Request, transport string) session.ClientInfo {
	return session.ClientInfo{
		Name:       r.Header.Get("X-Client-Name"),
		Transport:  transport,
		RemoteAddr: httpx.ClientIP(r),
		UserAgent:  r.UserAgent(),
	}
}

// clientIDFromRequest prefers an explicit client id over the MCP session id.
func clientIDFromRequest(r *http.Request) string {
	for _, h := range []string{"X-Client-Id", "X-MCP-Client-Id", "Mcp-Session-Id"} {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}
