// Package server provides the public entry point for composing the CCG
// backend: configuration, telemetry, the usage/history store, the provider
// router, and the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/api"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/api/handlers"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/metrics"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/router"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/store"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/telemetry"
)

// Server holds the initialized CCG backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the usage/history store.
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the backend with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore := store.NewMemoryStore(cfg.DataDir, cfg.HistoryTTL)
	m := metrics.New()
	rt := router.New(cfg, m)
	h := handlers.New(dataStore, rt, m, cfg)

	return &Server{
		Handler:      api.NewRouter(cfg, h, m),
		Store:        dataStore,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
