package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tumorboard/internal/api"
	"tumorboard/internal/config"
	"tumorboard/internal/database"
	"tumorboard/internal/fanout"
	"tumorboard/internal/hub"
	"tumorboard/internal/room"
	"tumorboard/internal/websocket"
	pkgdatabase "tumorboard/pkg/database"
)

// Application coordinates all system components.
// Clean dependency injection with strict initialization order:
// Database → Fan-out → Store → Hub → Reaper → API/WebSocket → HTTP
type Application struct {
	config     *config.Config
	caseStore  *database.Manager
	registry   *fanout.Registry
	roomStore  *room.Store
	collabHub  *hub.Hub
	reaper     *room.Reaper
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication creates an application instance with all components
// initialized but nothing running yet.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Case registry (the only durable component).
	dbConfig := &pkgdatabase.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}
	caseStore, err := database.NewManager(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize case registry: %w", err)
	}

	// STEP 2: Fan-out registry, then the store publishing through it.
	registry := fanout.NewRegistry()
	roomStore := room.NewStore(registry, cfg.Collab.CursorStaleness)

	// STEP 3: Ingress facade and idle room reaper.
	collabHub := hub.NewHub(roomStore, registry)
	reaper := room.NewReaper(roomStore, registry, cfg.Collab.ReapInterval, cfg.Collab.RoomTTL)

	// STEP 4: Transport surfaces.
	apiServer := api.NewServer(collabHub, caseStore, registry)
	wsHandler := websocket.NewHandler(collabHub, caseStore, cfg.WebSocket)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		caseStore:  caseStore,
		registry:   registry,
		roomStore:  roomStore,
		collabHub:  collabHub,
		reaper:     reaper,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start begins application execution: reaper first, then the HTTP server.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting tumorboard application on %s", app.httpServer.Addr)

	if err := app.reaper.Start(); err != nil {
		return fmt.Errorf("failed to start room reaper: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// FUNCTIONAL DISCOVERY: Verify server is ready before returning
	select {
	case err := <-serverErrCh:
		_ = app.reaper.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Tumorboard application started successfully")
		return nil
	case <-ctx.Done():
		_ = app.reaper.Stop()
		return ctx.Err()
	}
}

// Stop gracefully shuts down in reverse dependency order:
// HTTP → Reaper → Case registry.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down tumorboard application")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.reaper.Stop(); err != nil {
		log.Printf("Room reaper shutdown error: %v", err)
	}
	if err := app.caseStore.Close(); err != nil {
		log.Printf("Case registry shutdown error: %v", err)
	}

	log.Printf("Tumorboard application shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
