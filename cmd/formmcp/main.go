package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adityalohuni/htmlform/internal/config"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/mcpserver"
	"github.com/adityalohuni/htmlform/internal/service"
)

func main() {
	// stdout carries the MCP stream
	log.SetOutput(os.Stderr)

	settings, err := config.LoadOrCreate("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	svc, err := service.New(formstore.NewStore(settings.StorePath), service.Options{
		CacheSize:  settings.CacheSize,
		StoreLimit: settings.StoreLimit,
	})
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}

	server := mcpserver.New(svc, mcpserver.Options{
		Implementation: &mcp.Implementation{Name: "htmlform", Version: "v1.0.0"},
		Instructions:   "Use form.parse to extract a form from HTML markup and form.submission to read the pairs it would submit.",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
