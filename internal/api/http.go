// Package api exposes the read-only ops surface: health, metrics and JSON
// views of the correlator state. The engine remains the only writer.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drivewatch/correlator/internal/store"
)

// HTTPAPI provides HTTP endpoints for the correlator service.
type HTTPAPI struct {
	state     *store.State
	incidents *store.IncidentStore
	natsConn  *nats.Conn
}

// NewHTTPAPI creates a new HTTP API instance.
func NewHTTPAPI(state *store.State, incidents *store.IncidentStore, natsConn *nats.Conn) *HTTPAPI {
	return &HTTPAPI{
		state:     state,
		incidents: incidents,
		natsConn:  natsConn,
	}
}

// SetupRoutes configures HTTP routes.
func (api *HTTPAPI) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/drives", api.handleDrives)
	mux.HandleFunc("/incidents", api.handleIncidents)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", api.handleHealth)
	mux.HandleFunc("/readyz", api.handleReady)
}

// handleDrives handles GET /drives with an optional view query parameter
// ("manager", the default, or "inventory").
func (api *HTTPAPI) handleDrives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "manager"
	}

	var drives interface{}
	var count int
	switch view {
	case "manager":
		snapshot := api.state.ManagerSnapshot()
		drives, count = snapshot, len(snapshot)
	case "inventory":
		snapshot := api.state.InventorySnapshot()
		drives, count = snapshot, len(snapshot)
	default:
		http.Error(w, "Unknown view", http.StatusBadRequest)
		return
	}

	api.writeJSON(w, map[string]interface{}{
		"view":      view,
		"drives":    drives,
		"count":     count,
		"timestamp": time.Now().UTC(),
	})
}

// handleIncidents handles GET /incidents.
func (api *HTTPAPI) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	incidents := api.incidents.All()
	api.writeJSON(w, map[string]interface{}{
		"incidents": incidents,
		"count":     len(incidents),
		"stats":     api.incidents.Stats(),
		"timestamp": time.Now().UTC(),
	})
}

// handleHealth handles GET /healthz.
func (api *HTTPAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleReady handles GET /readyz; the service is ready once the NATS
// connection is up.
func (api *HTTPAPI) handleReady(w http.ResponseWriter, r *http.Request) {
	if api.natsConn == nil || !api.natsConn.IsConnected() {
		http.Error(w, "NATS not connected", http.StatusServiceUnavailable)
		return
	}

	managerCount, inventoryCount := api.state.Counts()
	api.writeJSON(w, map[string]interface{}{
		"status":           "ready",
		"manager_drives":   managerCount,
		"inventory_drives": inventoryCount,
		"timestamp":        time.Now().UTC(),
	})
}

func (api *HTTPAPI) writeJSON(w http.ResponseWriter, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
