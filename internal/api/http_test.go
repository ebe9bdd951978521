package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivewatch/correlator/internal/drive"
	"github.com/drivewatch/correlator/internal/model"
	"github.com/drivewatch/correlator/internal/store"
)

func newTestAPI(t *testing.T) (*HTTPAPI, *store.State, *store.IncidentStore) {
	t.Helper()
	state := store.NewState()
	incidents := store.NewIncidentStore(10, 100)
	return NewHTTPAPI(state, incidents, nil), state, incidents
}

func get(t *testing.T, api *HTTPAPI, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	api.SetupRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleDrives(t *testing.T) {
	api, state, _ := newTestAPI(t)

	rec, ok := drive.NewManagerRecord("host-1", "ENC1/disk/3/status", "inuse_ok", "SN1")
	require.True(t, ok)
	state.UpsertManager(rec)

	resp := get(t, api, "/drives")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		View  string `json:"view"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "manager", body.View)
	assert.Equal(t, 1, body.Count)

	resp = get(t, api, "/drives?view=inventory")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)

	resp = get(t, api, "/drives?view=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleIncidents(t *testing.T) {
	api, _, incidents := newTestAPI(t)
	incidents.Add(&model.Incident{ID: "inc-1", Code: "020001001", DiskSerialNumber: "SN1", Status: "ok", Reason: "none"})

	resp := get(t, api, "/incidents")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Count     int              `json:"count"`
		Incidents []model.Incident `json:"incidents"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "inc-1", body.Incidents[0].ID)
}

func TestHandleHealth(t *testing.T) {
	api, _, _ := newTestAPI(t)
	resp := get(t, api, "/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandleReadyWithoutNATS(t *testing.T) {
	api, _, _ := newTestAPI(t)
	resp := get(t, api, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
