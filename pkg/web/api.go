package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/database"
	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// requestTimeout bounds how long a handler waits for the engine
const requestTimeout = 5 * time.Second

// Controller is the remote control surface of the gateway
type Controller interface {
	Snapshots(ctx context.Context) ([]gateway.Snapshot, error)
	Link(ctx context.Context, index int, reconnect dstar.Reconnect, target string) error
	Unlink(ctx context.Context, index int, p dstar.Protocol, target string) error
}

// TransmissionStore reads the transmission journal
type TransmissionStore interface {
	GetRecentPaginated(page, perPage int) ([]database.Transmission, int64, error)
	GetByRepeater(repeater string, limit int) ([]database.Transmission, error)
	GetByUser(callsign string, limit int) ([]database.Transmission, error)
}

// RepeaterView is the JSON form of a session snapshot
type RepeaterView struct {
	Index      int    `json:"index"`
	Callsign   string `json:"callsign"`
	Mode       string `json:"mode"`
	Hardware   string `json:"hardware"`
	LinkStatus string `json:"link_status"`
	LinkTarget string `json:"link_target"`
	Startup    string `json:"startup"`
	Reconnect  string `json:"reconnect"`
	Route      string `json:"route"`
	Active     bool   `json:"active"`
	Busy       bool   `json:"busy"`
	Restricted bool   `json:"restricted"`
	User       string `json:"user,omitempty"`
}

// NewRepeaterView converts a snapshot for the API
func NewRepeaterView(s gateway.Snapshot) RepeaterView {
	return RepeaterView{
		Index:      s.Index,
		Callsign:   strings.TrimSpace(s.Callsign),
		Mode:       s.Mode.String(),
		Hardware:   s.Hardware.String(),
		LinkStatus: s.LinkStatus.String(),
		LinkTarget: strings.TrimSpace(s.LinkTarget),
		Startup:    strings.TrimSpace(s.Startup),
		Reconnect:  s.Reconnect.String(),
		Route:      s.Route.String(),
		Active:     s.Active,
		Busy:       s.Busy,
		Restricted: s.Restricted,
		User:       strings.TrimSpace(s.User),
	}
}

// LinkRequest is the body of a link request
type LinkRequest struct {
	Target    string `json:"target"`
	Reconnect string `json:"reconnect"`
}

// UnlinkRequest is the body of an unlink request
type UnlinkRequest struct {
	Protocol string `json:"protocol"`
	Target   string `json:"target"`
}

// API handles REST API endpoints
type API struct {
	logger        *logger.Logger
	control       Controller
	transmissions TransmissionStore
}

// NewAPI creates a new API instance. Either collaborator may be nil, in
// which case its endpoints report 503.
func NewAPI(control Controller, transmissions TransmissionStore, log *logger.Logger) *API {
	return &API{
		logger:        log,
		control:       control,
		transmissions: transmissions,
	}
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	version, commit, build := GetVersionInfo()
	response := map[string]interface{}{
		"status":  "running",
		"service": "dstar-gateway",
		"version": version,
		"commit":  commit,
		"build":   build,
	}

	if a.control != nil {
		snaps, err := a.snapshots(r.Context())
		if err != nil {
			a.engineError(w, err)
			return
		}
		linked := 0
		for _, s := range snaps {
			if s.LinkStatus.IsLinked() {
				linked++
			}
		}
		response["repeaters"] = len(snaps)
		response["linked"] = linked
	}

	a.writeJSON(w, http.StatusOK, response)
}

// HandleRepeaters handles GET /api/repeaters
func (a *API) HandleRepeaters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.control == nil {
		http.Error(w, "gateway not available", http.StatusServiceUnavailable)
		return
	}

	snaps, err := a.snapshots(r.Context())
	if err != nil {
		a.engineError(w, err)
		return
	}

	views := make([]RepeaterView, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, NewRepeaterView(s))
	}
	a.writeJSON(w, http.StatusOK, views)
}

// HandleLink handles POST /api/repeaters/{index}/link
func (a *API) HandleLink(w http.ResponseWriter, r *http.Request) {
	index, ok := a.preparePost(w, r)
	if !ok {
		return
	}

	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	reconnect, err := dstar.ParseReconnect(req.Reconnect)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(req.Target)) > dstar.LongCallsignLength {
		http.Error(w, "target too long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := a.control.Link(ctx, index, reconnect, req.Target); err != nil {
		a.engineError(w, err)
		return
	}

	a.logger.Info("Remote link request",
		logger.Int("slot", index),
		logger.String("target", req.Target),
		logger.String("reconnect", reconnect.String()))
	a.writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "accepted"})
}

// HandleUnlink handles POST /api/repeaters/{index}/unlink
func (a *API) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	index, ok := a.preparePost(w, r)
	if !ok {
		return
	}

	var req UnlinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := dstar.ParseProtocol(req.Protocol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := a.control.Unlink(ctx, index, p, req.Target); err != nil {
		a.engineError(w, err)
		return
	}

	a.logger.Info("Remote unlink request",
		logger.Int("slot", index),
		logger.String("protocol", p.String()),
		logger.String("target", req.Target))
	a.writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "accepted"})
}

// HandleTransmissions handles GET /api/transmissions. A repeater or user
// query parameter filters by callsign.
func (a *API) HandleTransmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.transmissions == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	perPage := queryInt(q.Get("per_page"), 25, 1, 200)

	var (
		items    []database.Transmission
		err      error
		filtered = true
	)
	switch {
	case q.Get("repeater") != "":
		items, err = a.transmissions.GetByRepeater(q.Get("repeater"), perPage)
	case q.Get("user") != "":
		items, err = a.transmissions.GetByUser(q.Get("user"), perPage)
	default:
		filtered = false
	}
	if filtered {
		if err != nil {
			a.logger.Error("Failed to read transmissions", logger.Error(err))
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]interface{}{
			"transmissions": items,
			"total":         len(items),
		})
		return
	}

	page := queryInt(q.Get("page"), 1, 1, 1<<20)
	items, total, err := a.transmissions.GetRecentPaginated(page, perPage)
	if err != nil {
		a.logger.Error("Failed to read transmissions", logger.Error(err))
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transmissions": items,
		"total":         total,
		"page":          page,
		"per_page":      perPage,
	})
}

func (a *API) preparePost(w http.ResponseWriter, r *http.Request) (int, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return 0, false
	}
	if a.control == nil {
		http.Error(w, "gateway not available", http.StatusServiceUnavailable)
		return 0, false
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid repeater index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func (a *API) snapshots(ctx context.Context) ([]gateway.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return a.control.Snapshots(ctx)
}

func (a *API) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrUnknownRepeater):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, gateway.ErrEngineStopped), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "gateway not available", http.StatusServiceUnavailable)
	default:
		a.logger.Error("Gateway request failed", logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}

func queryInt(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
