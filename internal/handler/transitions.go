package handler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/drivewatch/correlator/internal/drive"
	"github.com/drivewatch/correlator/internal/model"
)

// IEC incident codes carried in IEM log messages.
const (
	CodeDriveAdded    = "020001001"
	CodeDriveRemoved  = "020001002"
	CodeSmartFailed   = "020002002"
	CodeUnknownStatus = "000000000"
)

// raiseTransition classifies a drive-manager status change and raises the
// matching incident. Called only when the stored status for a known serial
// number actually changed value.
func (d *Dispatcher) raiseTransition(rec drive.Record) {
	status, err := model.SplitStatus(rec.Status)
	if err != nil {
		d.logger.Error("Cannot classify status transition", "serial_number", rec.SerialNumber, "error", err)
		return
	}

	inc := newIncident(rec, status)

	d.logger.Info("Raising incident",
		"code", inc.Code,
		"serial_number", inc.DiskSerialNumber,
		"status", inc.Status,
		"reason", inc.Reason)

	// Fire-and-forget: delivery failure is logged, never retried.
	if err := d.sink.Raise(inc); err != nil {
		d.logger.Error("Failed to raise incident", "code", inc.Code, "error", err)
	}

	d.incidents.Add(inc)
	d.metrics.IncIncidentsRaised(inc.Code)
}

// newIncident maps a parsed status onto an incident record. The empty/unused
// and ok/inuse pairs keep compatibility with the external drive-manager's
// older status vocabulary.
func newIncident(rec drive.Record, status model.Status) *model.Incident {
	var code, text string

	switch state := strings.ToLower(status.State); {
	case state == "empty" || state == "unused":
		code, text = CodeDriveRemoved, "Drive removed"
	case state == "ok" || state == "inuse":
		code, text = CodeDriveAdded, "Drive added"
	case state == "failed" && strings.Contains(strings.ToLower(status.Reason), "smart"):
		code, text = CodeSmartFailed, "SMART validation test has failed"
	default:
		code = CodeUnknownStatus
		text = fmt.Sprintf("Attempting to log unknown disk status/reason: %s/%s", status.State, status.Reason)
	}

	return &model.Incident{
		ID:                    uuid.NewString(),
		Code:                  code,
		Message:               fmt.Sprintf("IEC: %s: %s", code, text),
		EnclosureSerialNumber: rec.Identity.Enclosure,
		DiskSerialNumber:      rec.SerialNumber,
		Slot:                  rec.Identity.Slot,
		Status:                status.State,
		Reason:                status.Reason,
	}
}
