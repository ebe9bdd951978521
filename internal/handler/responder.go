package handler

import (
	"fmt"
	"strings"
)

// Wildcard serial number matching every known drive.
const serialWildcard = "*"

// handleRequest answers a synchronous status query from the correlator state.
// Lookup misses are answered with explicit "not found" acks, never errors.
func (d *Dispatcher) handleRequest(msg message) {
	requestType := msg.str("sensor_request_type")
	serial := msg.str("serial_number")
	nodeRequest := msg.str("node_request")
	requestUUID := msg.str("uuid")

	switch requestType {
	case requestSmartTest:
		d.answerSmartTest(serial, nodeRequest, requestUUID)
	case requestManagerStatus:
		d.answerManagerStatus(serial, nodeRequest, requestUUID)
	case requestInventoryStatus:
		d.answerInventoryStatus(serial, nodeRequest, requestUUID)
	default:
		d.logger.Warn("Dropping request with unknown sensor_request_type", "sensor_request_type", requestType)
		return
	}

	d.metrics.IncRequestsAnswered(requestType)
}

// answerSmartTest classifies each requested drive as Passed or Failed from
// its last known drive-manager status.
func (d *Dispatcher) answerSmartTest(serial, nodeRequest, requestUUID string) {
	if serial == serialWildcard {
		for _, rec := range d.state.ManagerSnapshot() {
			echo := fmt.Sprintf("SMART_TEST: serial number: %s, IP: %s", rec.SerialNumber, nodeRequest)
			d.sendAck(echo, smartTestResult(rec.Status), requestUUID)
		}
		return
	}

	if rec, ok := d.state.Manager(serial); ok {
		d.sendAck(nodeRequest, smartTestResult(rec.Status), requestUUID)
		return
	}

	d.logger.Info("SMART test data not yet available", "serial_number", serial)
	d.sendAck(nodeRequest, "Error: SMART results not yet available for drive, please try again later.", requestUUID)
}

// smartTestResult reduces a drive-manager status to a pass/fail verdict.
func smartTestResult(status string) string {
	switch strings.ToLower(status) {
	case "inuse_ok", "ok_none":
		return "Passed"
	default:
		return "Failed"
	}
}

func (d *Dispatcher) answerManagerStatus(serial, nodeRequest, requestUUID string) {
	if serial == serialWildcard {
		for _, rec := range d.state.ManagerSnapshot() {
			if err := d.egress.Send(managerStatusPayload(rec, requestUUID)); err != nil {
				d.logger.Error("Failed to send drive-manager status", "serial_number", rec.SerialNumber, "error", err)
			}
		}
		d.sendAck(nodeRequest, "All Drive manager data sent successfully", requestUUID)
		return
	}

	rec, ok := d.state.Manager(serial)
	if !ok {
		d.sendAck(nodeRequest, "Drive not found in drive manager data", requestUUID)
		return
	}

	if err := d.egress.Send(managerStatusPayload(rec, requestUUID)); err != nil {
		d.logger.Error("Failed to send drive-manager status", "serial_number", serial, "error", err)
	}
	d.sendAck(nodeRequest, "Drive manager data sent successfully", requestUUID)
}

func (d *Dispatcher) answerInventoryStatus(serial, nodeRequest, requestUUID string) {
	if serial == serialWildcard {
		for _, rec := range d.state.InventorySnapshot() {
			if err := d.egress.Send(inventoryStatusPayload(rec, requestUUID)); err != nil {
				d.logger.Error("Failed to send inventory status", "serial_number", rec.SerialNumber, "error", err)
			}
		}
		d.sendAck(nodeRequest, "All HPI data sent successfully", requestUUID)
		return
	}

	rec, ok := d.state.Inventory(serial)
	if !ok {
		d.sendAck(nodeRequest, "Drive not found in HPI data", requestUUID)
		return
	}

	if err := d.egress.Send(inventoryStatusPayload(rec, requestUUID)); err != nil {
		d.logger.Error("Failed to send inventory status", "serial_number", serial, "error", err)
	}
	d.sendAck(nodeRequest, "HPI data sent successfully", requestUUID)
}
