package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/config"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// RefreshInterval is how often the repeater list is pushed to clients
const RefreshInterval = 5 * time.Second

// Server represents the web dashboard HTTP server
type Server struct {
	config config.WebConfig
	logger *logger.Logger
	server *http.Server
	hub    *WebSocketHub
	api    *API
	addr   string
	mu     sync.RWMutex
}

// NewServer creates a new web server instance. A nil hub gets a fresh one.
func NewServer(cfg config.WebConfig, hub *WebSocketHub, api *API, log *logger.Logger) *Server {
	if hub == nil {
		hub = NewWebSocketHub(log)
	}
	if api == nil {
		api = NewAPI(nil, nil, log)
	}
	return &Server{
		config: cfg,
		logger: log,
		hub:    hub,
		api:    api,
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	go s.hub.Run(ctx)
	go s.refresh(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listen first to learn the actual address when port is 0
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Starting web server",
		logger.String("address", s.addr))

	version, _, _ := GetVersionInfo()
	s.hub.BroadcastStatusUpdate("running", version)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.Handle("/api/status", s.protect(http.HandlerFunc(s.api.HandleStatus)))
	mux.Handle("/api/repeaters", s.protect(http.HandlerFunc(s.api.HandleRepeaters)))
	mux.Handle("/api/repeaters/{index}/link", s.protect(http.HandlerFunc(s.api.HandleLink)))
	mux.Handle("/api/repeaters/{index}/unlink", s.protect(http.HandlerFunc(s.api.HandleUnlink)))
	mux.Handle("/api/transmissions", s.protect(http.HandlerFunc(s.api.HandleTransmissions)))

	mux.Handle("/ws", s.protect(s.hub.Handler()))

	s.mountStatic(mux)
	return mux
}

// mountStatic serves the dashboard from the embedded assets when built with
// the embed tag, otherwise from frontend/dist if it exists.
func (s *Server) mountStatic(mux *http.ServeMux) {
	if fsys, err := embeddedStaticFS(); err != nil {
		s.logger.Warn("Failed to open embedded frontend", logger.Error(err))
	} else if fsys != nil {
		s.logger.Info("Serving embedded frontend assets")
		mux.Handle("/", s.protect(http.FileServer(fsys)))
		return
	}

	staticDir := "frontend/dist"
	fi, err := os.Stat(staticDir)
	if err != nil || !fi.IsDir() {
		s.logger.Info("No static frontend assets found; SPA not served", logger.String("dir", staticDir))
		return
	}

	s.logger.Info("Serving static frontend assets", logger.String("dir", staticDir))
	mux.Handle("/", s.protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := filepath.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		if len(reqPath) > 0 && reqPath[0] == '/' {
			reqPath = reqPath[1:]
		}
		fullPath := filepath.Join(staticDir, reqPath)
		if fi, err := os.Stat(fullPath); err == nil && !fi.IsDir() {
			http.ServeFile(w, r, fullPath)
			return
		}
		// SPA routes fall back to index.html
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})))
}

// protect wraps next in basic auth when the dashboard requires it
func (s *Server) protect(next http.Handler) http.Handler {
	if !s.config.AuthRequired {
		return next
	}
	user := []byte(s.config.Username)
	pass := []byte(s.config.Password)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), user) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pass) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="dstar-gateway"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// refresh pushes the repeater list while clients are connected
func (s *Server) refresh(ctx context.Context) {
	if s.api.control == nil {
		return
	}

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.GetClientCount() == 0 {
				continue
			}
			snaps, err := s.api.snapshots(ctx)
			if err != nil {
				s.logger.Debug("Skipping repeater refresh", logger.Error(err))
				continue
			}
			views := make([]RepeaterView, 0, len(snaps))
			for _, snap := range snaps {
				views = append(views, NewRepeaterView(snap))
			}
			s.hub.BroadcastRepeatersUpdate(views)
		}
	}
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "dstar-gateway",
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
