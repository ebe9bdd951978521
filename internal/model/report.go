package model

// Report is the durable on-disk snapshot of the drive-manager view, rewritten
// in full after every state-changing event. Field order matches the sorted-key
// layout expected by downstream tooling.
type Report struct {
	Drives         []ReportDrive `json:"drives"`
	LastUpdateTime string        `json:"last_update_time"`
}

// ReportDrive is one drive's entry in the report, with its status already
// split into state and reason.
type ReportDrive struct {
	Reason       string `json:"reason"`
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status"`
}
