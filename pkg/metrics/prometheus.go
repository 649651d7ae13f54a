package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

func writeHeader(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

// escapeLabel escapes a label value for the text exposition format
func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	c := h.collector
	c.mu.RLock()
	defer c.mu.RUnlock()

	var output strings.Builder
	repeaters := sortedKeys(c.repeaters)

	writeHeader(&output, "dstar_headers_received_total", "counter", "RF headers received per repeater")
	for _, rpt := range repeaters {
		fmt.Fprintf(&output, "dstar_headers_received_total{repeater=\"%s\"} %d\n", escapeLabel(rpt), c.repeaters[rpt].headers)
	}

	writeHeader(&output, "dstar_frames_received_total", "counter", "RF voice frames received per repeater")
	for _, rpt := range repeaters {
		fmt.Fprintf(&output, "dstar_frames_received_total{repeater=\"%s\"} %d\n", escapeLabel(rpt), c.repeaters[rpt].frames)
	}

	writeHeader(&output, "dstar_silence_frames_total", "counter", "RF voice frames carrying silence per repeater")
	for _, rpt := range repeaters {
		fmt.Fprintf(&output, "dstar_silence_frames_total{repeater=\"%s\"} %d\n", escapeLabel(rpt), c.repeaters[rpt].silence)
	}

	writeHeader(&output, "dstar_frame_errors_total", "counter", "Bit errors reported by the repeater")
	for _, rpt := range repeaters {
		fmt.Fprintf(&output, "dstar_frame_errors_total{repeater=\"%s\"} %d\n", escapeLabel(rpt), c.repeaters[rpt].errors)
	}

	writeHeader(&output, "dstar_link_state", "gauge", "Current link of each repeater")
	for _, rpt := range sortedKeys(c.links) {
		ls := c.links[rpt]
		fmt.Fprintf(&output, "dstar_link_state{repeater=\"%s\",status=\"%s\",target=\"%s\"} 1\n",
			escapeLabel(rpt), ls.Status.String(), escapeLabel(ls.Target))
	}

	writeHeader(&output, "dstar_link_changes_total", "counter", "Link state changes")
	fmt.Fprintf(&output, "dstar_link_changes_total %d\n", c.linkChanges)

	writeHeader(&output, "dstar_directory_queries_total", "counter", "Lookups sent to the directory")
	for _, kind := range sortedKeys(c.queries) {
		fmt.Fprintf(&output, "dstar_directory_queries_total{kind=\"%s\"} %d\n", escapeLabel(kind), c.queries[kind])
	}

	writeHeader(&output, "dstar_directory_timeouts_total", "counter", "Directory lookups that were not answered in time")
	for _, kind := range sortedKeys(c.timeouts) {
		fmt.Fprintf(&output, "dstar_directory_timeouts_total{kind=\"%s\"} %d\n", escapeLabel(kind), c.timeouts[kind])
	}

	writeHeader(&output, "dstar_routes_total", "counter", "Routes selected for RF transmissions")
	for _, route := range sortedKeys(c.routes) {
		fmt.Fprintf(&output, "dstar_routes_total{route=\"%s\"} %d\n", escapeLabel(route), c.routes[route])
	}

	_, _ = w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server and blocks until ctx is
// cancelled
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	path := s.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, NewPrometheusHandler(s.collector))

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
}
