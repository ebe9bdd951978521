package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivewatch/correlator/internal/model"
	"github.com/drivewatch/correlator/internal/report"
	"github.com/drivewatch/correlator/internal/store"
)

type fakeEgress struct {
	sent []model.Outbound
}

func (f *fakeEgress) Send(payload model.Outbound) error {
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeEgress) acks() []model.AckResponse {
	var out []model.AckResponse
	for _, p := range f.sent {
		if ack, ok := p.(model.AckResponse); ok {
			out = append(out, ack)
		}
	}
	return out
}

func (f *fakeEgress) managerPayloads() []model.DriveManagerStatus {
	var out []model.DriveManagerStatus
	for _, p := range f.sent {
		if dm, ok := p.(model.DriveManagerStatus); ok {
			out = append(out, dm)
		}
	}
	return out
}

type fakeSink struct {
	raised []*model.Incident
}

func (f *fakeSink) Raise(inc *model.Incident) error {
	f.raised = append(f.raised, inc)
	return nil
}

type testEngine struct {
	dispatcher *Dispatcher
	state      *store.State
	egress     *fakeEgress
	sink       *fakeSink
	reportPath string
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	state := store.NewState()
	egress := &fakeEgress{}
	sink := &fakeSink{}
	reportPath := filepath.Join(t.TempDir(), "dmreport", "drive_manager.json")

	dispatcher := NewDispatcher("host-1", state, store.NewIncidentStore(100, 1000),
		report.NewWriter(reportPath, logger), egress, sink, nil, logger)

	return &testEngine{
		dispatcher: dispatcher,
		state:      state,
		egress:     egress,
		sink:       sink,
		reportPath: reportPath,
	}
}

func (e *testEngine) dispatch(t *testing.T, msg map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	e.dispatcher.Dispatch(data)
}

func (e *testEngine) readReport(t *testing.T) model.Report {
	t.Helper()
	data, err := os.ReadFile(e.reportPath)
	require.NoError(t, err)
	var doc model.Report
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestManagerEventFirstSighting(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk/3/status",
		"status":               "failed_smart",
		"serial_number":        "SN42",
	})

	// Forwarded outbound payload
	payloads := e.egress.managerPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "ENC1", payloads[0].Enclosure)
	assert.Equal(t, "3", payloads[0].Slot)
	assert.Equal(t, "failed_smart", payloads[0].Status)
	assert.Equal(t, "SN42", payloads[0].SerialNumber)

	// No prior status to diff against: no incident
	assert.Empty(t, e.sink.raised)

	rec, ok := e.state.Manager("SN42")
	require.True(t, ok)
	assert.Equal(t, "failed_smart", rec.Status)

	doc := e.readReport(t)
	require.Len(t, doc.Drives, 1)
	assert.Equal(t, model.ReportDrive{Reason: "smart", SerialNumber: "SN42", Status: "failed"}, doc.Drives[0])
}

func TestManagerEventStatusTransition(t *testing.T) {
	e := newTestEngine(t)

	event := map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk/3/status",
		"status":               "failed_smart",
		"serial_number":        "SN42",
	}
	e.dispatch(t, event)

	event["status"] = "ok_none"
	e.dispatch(t, event)

	require.Len(t, e.sink.raised, 1)
	inc := e.sink.raised[0]
	assert.Equal(t, CodeDriveAdded, inc.Code)
	assert.Equal(t, "SN42", inc.DiskSerialNumber)
	assert.Equal(t, "ENC1", inc.EnclosureSerialNumber)
	assert.Equal(t, "3", inc.Slot)
	assert.Equal(t, "ok", inc.Status)
	assert.Equal(t, "none", inc.Reason)
	assert.NotEmpty(t, inc.ID)

	doc := e.readReport(t)
	require.Len(t, doc.Drives, 1)
	assert.Equal(t, "ok", doc.Drives[0].Status)
	assert.Equal(t, "none", doc.Drives[0].Reason)
}

func TestManagerEventReplayRaisesNoSecondIncident(t *testing.T) {
	e := newTestEngine(t)

	event := map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk/3/status",
		"status":               "failed_smart",
		"serial_number":        "SN42",
	}
	e.dispatch(t, event)

	event["status"] = "empty_none"
	e.dispatch(t, event)
	require.Len(t, e.sink.raised, 1)
	assert.Equal(t, CodeDriveRemoved, e.sink.raised[0].Code)

	// Replaying the same event is a no-op transition
	e.dispatch(t, event)
	assert.Len(t, e.sink.raised, 1)

	managerCount, _ := e.state.Counts()
	assert.Equal(t, 1, managerCount)
}

func TestManagerEventSmartFailureIncident(t *testing.T) {
	e := newTestEngine(t)

	event := map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk/3/status",
		"status":               "inuse_ok",
		"serial_number":        "SN42",
	}
	e.dispatch(t, event)

	event["status"] = "failed_SMART_failure"
	e.dispatch(t, event)

	require.Len(t, e.sink.raised, 1)
	assert.Equal(t, CodeSmartFailed, e.sink.raised[0].Code)
	assert.Equal(t, "SMART_failure", e.sink.raised[0].Reason)
}

func TestManagerEventUnknownStatusIncident(t *testing.T) {
	e := newTestEngine(t)

	event := map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk/3/status",
		"status":               "inuse_ok",
		"serial_number":        "SN42",
	}
	e.dispatch(t, event)

	event["status"] = "failed_cabling"
	e.dispatch(t, event)

	require.Len(t, e.sink.raised, 1)
	assert.Equal(t, CodeUnknownStatus, e.sink.raised[0].Code)
	assert.Contains(t, e.sink.raised[0].Message, "failed/cabling")
}

func TestManagerEventInvalidPathDropped(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"event_path":           "ENC1/disk",
		"status":               "inuse_ok",
		"serial_number":        "SN42",
	})

	assert.Empty(t, e.egress.sent)
	_, ok := e.state.Manager("SN42")
	assert.False(t, ok)

	// No state change, no report
	_, err := os.Stat(e.reportPath)
	assert.True(t, os.IsNotExist(err))
}

func TestObjectPathUsesInventoryIdentity(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_hpi",
		"event_path":           "ENC9/disk/7",
		"status":               "inuse_ok",
		"serialNumber":         "SN7",
	})

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"object_path":          "/org/freedesktop/systemd1/unit/sdg",
		"status":               "failed_smart",
		"serial_number":        "SN7",
	})

	payloads := e.egress.managerPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "ENC9", payloads[0].Enclosure)
	assert.Equal(t, "7", payloads[0].Slot)
	assert.Equal(t, "failed_smart", payloads[0].Status)
}

func TestObjectPathWithoutInventoryUsesSentinel(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_drivemanager",
		"object_path":          "/org/freedesktop/systemd1/unit/sdg",
		"status":               "inuse_ok",
		"serial_number":        "SN99",
	})

	payloads := e.egress.managerPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "HPIdataNotAvailable", payloads[0].Enclosure)
	assert.Equal(t, "-1", payloads[0].Slot)
}

func TestInventoryEvent(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_hpi",
		"event_path":           "ENC1/disk/5",
		"status":               "inuse_ok",
		"serialNumber":         "SN5",
		"manufacturer":         "SEAGATE",
		"wwn":                  "0x5000c5008e123456",
	})

	require.Len(t, e.egress.sent, 1)
	payload, ok := e.egress.sent[0].(model.InventoryStatus)
	require.True(t, ok)
	assert.Equal(t, "host-1", payload.Host)
	assert.Equal(t, "ENC1/disk/5", payload.Path)
	assert.Equal(t, "SEAGATE", payload.Manufacturer)
	assert.Equal(t, "SN5", payload.SerialNumber)
	assert.Equal(t, "ENC1", payload.Enclosure)
	// Absent attributes default to N/A
	assert.Equal(t, "N/A", payload.Drawer)
	assert.Equal(t, "N/A", payload.Location)

	// Both views updated, report written, no incident
	_, ok = e.state.Inventory("SN5")
	assert.True(t, ok)
	mgr, ok := e.state.Manager("SN5")
	require.True(t, ok)
	assert.Equal(t, "ENC1/disk/5/status", mgr.Path)
	assert.Empty(t, e.sink.raised)

	doc := e.readReport(t)
	require.Len(t, doc.Drives, 1)
	assert.Equal(t, "SN5", doc.Drives[0].SerialNumber)
}

func TestInventoryEventInvalidPathDropped(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_hpi",
		"event_path":           "ENC1",
		"status":               "inuse_ok",
		"serialNumber":         "SN5",
	})

	assert.Empty(t, e.egress.sent)
	_, ok := e.state.Inventory("SN5")
	assert.False(t, ok)
	_, ok = e.state.Manager("SN5")
	assert.False(t, ok)
}

func TestUnknownResponseTypeDropped(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"sensor_response_type": "disk_status_other",
		"serial_number":        "SN1",
	})

	assert.Empty(t, e.egress.sent)
}

func TestUnclassifiableMessageAnsweredWithFailureAck(t *testing.T) {
	e := newTestEngine(t)

	e.dispatch(t, map[string]interface{}{
		"something_else": true,
		"node_request":   "NODE: X",
		"uuid":           "u9",
	})

	acks := e.egress.acks()
	require.Len(t, acks, 1)
	assert.Contains(t, acks[0].ResponseText, "unknown message")
	assert.Equal(t, "u9", acks[0].UUID)
}

func TestUndecodableMessageIgnored(t *testing.T) {
	e := newTestEngine(t)

	e.dispatcher.Dispatch([]byte("not json"))

	assert.Empty(t, e.egress.sent)
}
