// Package handler implements the correlation/dispatch engine: inbound message
// classification, per-source event handling, transition detection and the
// synchronous request responder.
package handler

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/drivewatch/correlator/internal/drive"
	"github.com/drivewatch/correlator/internal/metrics"
	"github.com/drivewatch/correlator/internal/model"
	"github.com/drivewatch/correlator/internal/report"
	"github.com/drivewatch/correlator/internal/store"
)

// Recognized sensor_response_type values.
const (
	responseDriveManager = "disk_status_drivemanager"
	responseInventory    = "disk_status_hpi"
)

// Recognized sensor_request_type values.
const (
	requestSmartTest       = "disk_smart_test"
	requestManagerStatus   = "drvmngr_status"
	requestInventoryStatus = "hpi_status"
)

// Egress is the outbound sink for addressed JSON payloads. Delivery is
// best-effort; there is no acknowledgment path back into the engine.
type Egress interface {
	Send(payload model.Outbound) error
}

// IncidentSink receives operator-facing incident records, fire-and-forget.
type IncidentSink interface {
	Raise(inc *model.Incident) error
}

// Dispatcher classifies and processes one inbound message at a time, strictly
// in arrival order. It owns all mutation of the correlator state.
type Dispatcher struct {
	hostID    string
	state     *store.State
	incidents *store.IncidentStore
	report    *report.Writer
	egress    Egress
	sink      IncidentSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDispatcher wires the engine together.
func NewDispatcher(hostID string, state *store.State, incidents *store.IncidentStore, reportWriter *report.Writer, egress Egress, sink IncidentSink, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		hostID:    hostID,
		state:     state,
		incidents: incidents,
		report:    reportWriter,
		egress:    egress,
		sink:      sink,
		metrics:   m,
		logger:    logger,
	}
}

// message is one decoded inbound payload; fields are extracted by key since
// the two sensor sources disagree on naming.
type message map[string]interface{}

// str returns the string value under key, or "" when absent or non-string.
func (m message) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m message) has(key string) bool {
	_, ok := m[key]
	return ok
}

// Dispatch decodes and processes one raw inbound message. A panic while
// handling it is caught here so one malformed message never terminates the
// engine.
func (d *Dispatcher) Dispatch(data []byte) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic while processing message", "panic", r)
		}
		d.metrics.ObserveProcessingDuration(time.Since(start).Seconds())
	}()

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Error("Failed to decode inbound message", "error", err)
		d.metrics.IncEventsInvalid()
		return
	}

	d.process(msg)
}

// process routes a decoded message by key presence: sensor_response_type
// marks an unsolicited event, sensor_request_type a synchronous request.
func (d *Dispatcher) process(msg message) {
	switch {
	case msg.has("sensor_response_type"):
		d.handleEvent(msg)
	case msg.has("sensor_request_type"):
		d.handleRequest(msg)
	default:
		d.logger.Warn("Received unclassifiable message", "message", msg)
		d.sendAck(msg.str("node_request"), "Received unknown message, unable to process", msg.str("uuid"))
	}
}

func (d *Dispatcher) handleEvent(msg message) {
	responseType := msg.str("sensor_response_type")

	switch responseType {
	case responseDriveManager:
		d.handleManagerEvent(msg)
	case responseInventory:
		d.handleInventoryEvent(msg)
	default:
		d.logger.Warn("Dropping event with unknown sensor_response_type", "sensor_response_type", responseType)
		d.metrics.IncEventsDropped()
	}
}

// handleManagerEvent processes a drive-manager status event. Ordering is
// significant: the outbound payload is forwarded first, then the transition
// check runs against the pre-update record, then the report is rewritten.
func (d *Dispatcher) handleManagerEvent(msg message) {
	serial := msg.str("serial_number")
	status := msg.str("status")

	var path string
	switch {
	case msg.has("event_path"):
		path = msg.str("event_path")
	case msg.has("object_path"):
		// Identity discovery events carry no path; synthesize one from the
		// drive's last-known inventory record.
		if inv, ok := d.state.Inventory(serial); ok {
			path = drive.SynthesizedPath(inv.Identity.Enclosure, inv.Identity.Slot)
		} else {
			d.logger.Info("No inventory data for serial number", "serial_number", serial)
			path = drive.SentinelPath
		}
	default:
		d.logger.Warn("Drive-manager event carries neither event_path nor object_path", "serial_number", serial)
		d.metrics.IncEventsDropped()
		return
	}

	rec, ok := drive.NewManagerRecord(d.hostID, path, status, serial)
	if !ok {
		d.logger.Error("Dropping drive-manager event with invalid path", "path", path, "serial_number", serial)
		d.metrics.IncEventsDropped()
		return
	}

	if err := d.egress.Send(managerStatusPayload(rec, "")); err != nil {
		d.logger.Error("Failed to forward drive-manager status", "serial_number", serial, "error", err)
	}

	prev, existed := d.state.UpsertManager(rec)
	if existed && prev.Status != rec.Status {
		d.raiseTransition(rec)
	}

	d.writeReport()
	d.metrics.IncEventsProcessed()
}

// handleInventoryEvent processes an inventory (HPI) event. The inventory
// record and its derived drive-manager record are both built and validated
// before either is committed, so the dual-view invariant holds even if one
// half fails. Inventory events never run transition detection; incident
// escalation is driven only by drive-manager status changes.
func (d *Dispatcher) handleInventoryEvent(msg message) {
	serial := msg.str("serialNumber")
	path := msg.str("event_path")

	inv, ok := drive.NewInventoryRecord(d.hostID, path, msg.str("status"), serial, drive.Attributes{
		Drawer:         msg.str("drawer"),
		Location:       msg.str("location"),
		Manufacturer:   msg.str("manufacturer"),
		ProductName:    msg.str("productName"),
		ProductVersion: msg.str("productVersion"),
		WWN:            msg.str("wwn"),
	})
	if !ok {
		d.logger.Error("Dropping inventory event with invalid path", "path", path, "serial_number", serial)
		d.metrics.IncEventsDropped()
		return
	}

	mgr, ok := inv.AsManager()
	if !ok {
		// An inventory record must always be expressible as a drive-manager
		// record.
		d.logger.Error("Dropping inventory event: synthesized drive-manager path is invalid",
			"path", path, "serial_number", serial)
		d.metrics.IncEventsDropped()
		return
	}

	d.state.UpsertInventory(inv, mgr)
	d.writeReport()

	if err := d.egress.Send(inventoryStatusPayload(inv, "")); err != nil {
		d.logger.Error("Failed to forward inventory status", "serial_number", serial, "error", err)
	}

	d.metrics.IncEventsProcessed()
}

// writeReport regenerates the durable report from the full drive-manager
// view. Failures are logged and must not stall or kill the engine.
func (d *Dispatcher) writeReport() {
	if err := d.report.Write(d.state.ManagerSnapshot()); err != nil {
		d.logger.Error("Failed to write durable report", "path", d.report.Path(), "error", err)
		d.metrics.IncReportWriteErrors()
		return
	}
	d.metrics.IncReportWrites()
}

func (d *Dispatcher) sendAck(requestEcho, responseText, requestUUID string) {
	ack := model.AckResponse{
		RequestEcho:  requestEcho,
		ResponseText: responseText,
		UUID:         requestUUID,
	}
	if err := d.egress.Send(ack); err != nil {
		d.logger.Error("Failed to send ack response", "request", requestEcho, "error", err)
	}
}

func managerStatusPayload(rec drive.Record, requestUUID string) model.DriveManagerStatus {
	return model.DriveManagerStatus{
		Enclosure:    rec.Identity.Enclosure,
		Slot:         rec.Identity.Slot,
		Status:       rec.Status,
		SerialNumber: rec.SerialNumber,
		UUID:         requestUUID,
	}
}

func inventoryStatusPayload(rec drive.Record, requestUUID string) model.InventoryStatus {
	return model.InventoryStatus{
		Host:           rec.HostID,
		Path:           rec.Path,
		Drawer:         rec.Attrs.Drawer,
		Location:       rec.Attrs.Location,
		Manufacturer:   rec.Attrs.Manufacturer,
		ProductName:    rec.Attrs.ProductName,
		ProductVersion: rec.Attrs.ProductVersion,
		SerialNumber:   rec.SerialNumber,
		WWN:            rec.Attrs.WWN,
		Enclosure:      rec.Identity.Enclosure,
		UUID:           requestUUID,
	}
}
