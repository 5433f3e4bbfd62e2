package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/config"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/httpx"
	"github.com/adityalohuni/htmlform/internal/mcpserver"
	"github.com/adityalohuni/htmlform/internal/service"
	"github.com/adityalohuni/htmlform/internal/session"
	"github.com/adityalohuni/htmlform/internal/wsapi"
)

const (
	clientMaxIdle = 10 * time.Minute
	instructions  = "Use form.parse to extract a form from HTML markup, form.select to change selections and form.submission to read what it would submit."
)

func main() {
	settings, err := config.LoadOrCreate("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("loaded config: %s", settings.Path)

	store := formstore.NewStore(settings.StorePath)
	svc, err := service.New(store, service.Options{
		CacheSize:  settings.CacheSize,
		StoreLimit: settings.StoreLimit,
	})
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}
	log.Printf("form store: %s (%d forms)", settings.StorePath, store.Count())

	registry := session.NewRegistry()
	ws := wsapi.NewServer(svc, registry, wsapi.Options{
		CheckOrigin: func(r *http.Request) bool { return true },
		Trace:       settings.WSTrace,
	})

	server := mcpserver.New(svc, mcpserver.Options{
		Implementation: &mcp.Implementation{Name: "htmlform", Version: "v1.0.0"},
		Instructions:   instructions,
		OnParsed: func(ss *mcp.ServerSession, ids ...string) {
			if ss == nil || ss.ID() == "" {
				return
			}
			registry.Touch(ss.ID(), session.ClientInfo{Transport: "mcp"})
			registry.RecordForms(ss.ID(), ids...)
		},
	})
	mcpServer := server.MCPServer()

	sseHandler := mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server { return mcpServer }, nil)
	streamHandler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return mcpServer }, nil)

	handlers := &api.Handlers{
		StartedAt: time.Now(),
		Service:   svc,
		Clients:   registry,
		MaxIdle:   clientMaxIdle,
	}

	mux := http.NewServeMux()
	apiAuth := httpx.RequireToken(settings.APIToken)
	mcpAuth := httpx.RequireToken(settings.MCPToken)
	handlers.Register(mux, apiAuth)
	mux.Handle("/ws", apiAuth(http.HandlerFunc(ws.HandleWS)))
	mux.Handle("/mcp/sse", mcpAuth(trackSSE(registry, sseHandler)))
	mux.Handle("/mcp/stream", mcpAuth(trackStreamable(registry, streamHandler)))

	httpServer := &http.Server{
		Addr:    settings.DaemonAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("form daemon listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	log.Printf("form daemon stopped (%d websocket clients dropped)", ws.Count())
}
