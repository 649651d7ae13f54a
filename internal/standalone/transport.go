package standalone

import (
	"strings"
	"sync"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Formatter renders status events as user-facing text
type Formatter interface {
	Format(st gateway.Status) string
}

// Transport logs what the gateway would send to a repeater
type Transport struct {
	text Formatter
	log  *logger.Logger

	mu     sync.Mutex
	last   string
	frames int
}

var _ gateway.Transport = (*Transport)(nil)

// NewTransport creates a transport for the repeater callsign rpt
func NewTransport(rpt string, text Formatter, log *logger.Logger) *Transport {
	return &Transport{
		text: text,
		log:  log.WithComponent("repeater").With(logger.String("repeater", strings.TrimSpace(rpt))),
	}
}

func (t *Transport) WriteHeader(h *dstar.Header) {
	t.log.Info("Network header",
		logger.String("my", h.MyCall1),
		logger.String("your", h.YourCall),
		logger.Uint16("id", h.ID))
}

func (t *Transport) WriteFrame(f *dstar.Frame) {
	t.mu.Lock()
	t.frames++
	t.mu.Unlock()
	if f.End {
		t.log.Debug("Network transmission ended", logger.Uint16("id", f.ID))
	}
}

func (t *Transport) WriteText(st gateway.Status) {
	msg := t.text.Format(st)
	if msg == "" {
		return
	}

	t.mu.Lock()
	t.last = msg
	t.mu.Unlock()

	t.log.Info("Status text",
		logger.String("text", msg),
		logger.Bool("temporary", st.Temporary))
}

func (t *Transport) WriteStatus(text string) {
	t.log.Debug("Status", logger.String("text", text))
}

// LastText returns the most recent status text
func (t *Transport) LastText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Frames returns the number of frames written
func (t *Transport) Frames() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}
