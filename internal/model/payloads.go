package model

import (
	"encoding/json"
	"fmt"
)

// Outbound is any payload handed to the egress sink. Kind is carried as a
// message header so downstream consumers can route without decoding the body.
type Outbound interface {
	Kind() string
}

// DriveManagerStatus is the egress payload for a drive-manager status update
// or a drvmngr_status query response.
type DriveManagerStatus struct {
	Enclosure    string `json:"enclosure"`
	Slot         string `json:"slot"`
	Status       string `json:"status"`
	SerialNumber string `json:"serial_number"`
	UUID         string `json:"uuid,omitempty"`
}

func (DriveManagerStatus) Kind() string { return "disk_status_drivemanager" }

// InventoryStatus is the egress payload for an inventory (HPI) status update
// or an hpi_status query response.
type InventoryStatus struct {
	Host           string `json:"host"`
	Path           string `json:"path"`
	Drawer         string `json:"drawer"`
	Location       string `json:"location"`
	Manufacturer   string `json:"manufacturer"`
	ProductName    string `json:"productName"`
	ProductVersion string `json:"productVersion"`
	SerialNumber   string `json:"serialNumber"`
	WWN            string `json:"wwn"`
	Enclosure      string `json:"enclosure"`
	UUID           string `json:"uuid,omitempty"`
}

func (InventoryStatus) Kind() string { return "disk_status_hpi" }

// AckResponse answers a synchronous request. RequestEcho repeats enough of the
// request for the caller to correlate when no uuid was supplied.
type AckResponse struct {
	RequestEcho  string `json:"request_echo"`
	ResponseText string `json:"response_text"`
	UUID         string `json:"uuid,omitempty"`
}

func (AckResponse) Kind() string { return "ack_response" }

// Incident is an operator-facing IEM record raised on a meaningful
// drive-manager status transition.
type Incident struct {
	ID                    string `json:"id"`
	Code                  string `json:"code"`
	Message               string `json:"message"`
	EnclosureSerialNumber string `json:"enclosure_serial_number"`
	DiskSerialNumber      string `json:"disk_serial_number"`
	Slot                  string `json:"slot"`
	Status                string `json:"status"`
	Reason                string `json:"reason"`
}

// LogMessage renders the incident in the IEM wire form consumed by the
// logging collaborator. The detail keys marshal in sorted order.
func (inc *Incident) LogMessage() string {
	detail, _ := json.Marshal(map[string]string{
		"enclosure_serial_number": inc.EnclosureSerialNumber,
		"disk_serial_number":      inc.DiskSerialNumber,
		"slot":                    inc.Slot,
		"status":                  inc.Status,
		"reason":                  inc.Reason,
	})
	return fmt.Sprintf("%s:%s", inc.Message, detail)
}

// IncidentLog is the wire form sent to the logging collaborator.
type IncidentLog struct {
	LogLevel string `json:"log_level"`
	LogType  string `json:"log_type"`
	LogMsg   string `json:"log_msg"`
}
