package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/screenscout/screenscout/internal/discovery"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/registry"
)

// Config holds the bridge server configuration
type Config struct {
	Host         string
	Port         int
	LogLevel     string
	RegistryPath string // Path to the device registry file (empty = default location)
}

// Server bridges discovery sessions to UI collaborators. It streams scan
// events over WebSocket and exposes the saved-device registry over a
// small JSON API.
type Server struct {
	config   *Config
	registry *registry.Registry
	listener net.Listener
	httpSrv  *http.Server

	// baseCtx parents every scan session so shutdown cancels them all.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// newDiscoverer builds the discoverer for one scan request.
	// Swappable so tests can feed scripted streams through the bridge.
	newDiscoverer func(discovery.Options) discovery.Discoverer

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	// Initialize logging
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var reg *registry.Registry
	if config.RegistryPath != "" {
		reg = registry.OpenAt(config.RegistryPath)
	} else {
		var err error
		reg, err = registry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open device registry: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     config,
		registry:   reg,
		baseCtx:    ctx,
		baseCancel: cancel,
		newDiscoverer: func(opts discovery.Options) discovery.Discoverer {
			return discovery.NewOrchestrator(opts)
		},
		activeConns: make(map[string]*websocket.Conn),
	}, nil
}

// handler builds the route table. Split out so tests can mount it on an
// httptest server without a listener or signal handling.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/devices/", s.handleDevice)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	logging.Info("Starting ScreenScout bridge server",
		zap.String("addr", addr),
		zap.String("registry", s.registry.Path()),
		zap.String("log_level", s.config.LogLevel),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	s.httpSrv = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start serving in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpSrv.Serve(listener)
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the address the server is listening on, or empty before
// Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge server...")

	// Cancel every running scan session first so their streams close.
	s.baseCancel()

	// Stop accepting requests and drain the plain HTTP handlers.
	// Hijacked WebSocket connections are not covered by this; they are
	// closed explicitly below.
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			logging.Error("Error shutting down HTTP server", zap.Error(err))
		}
	}

	// Close all active WebSocket connections
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	// Wait for all scan handlers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	// Sync logger
	logging.Sync()

	return nil
}

// GetActiveConnections returns the number of active WebSocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// trackConn registers an accepted WebSocket connection for shutdown.
func (s *Server) trackConn(remoteAddr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
}

// releaseConn closes a WebSocket connection and drops it from tracking.
func (s *Server) releaseConn(remoteAddr string) {
	s.mu.Lock()
	conn, ok := s.activeConns[remoteAddr]
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()

	if ok {
		_ = conn.Close()
	}
	logging.LogConnection(remoteAddr, "connection_closed")
}
