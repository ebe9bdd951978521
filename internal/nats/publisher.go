package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/drivewatch/correlator/internal/model"
)

// Publisher sends addressed payloads to the egress subject. Delivery is
// best-effort; the broker side offers no acknowledgment path back.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher creates an egress publisher targeting subject.
func NewPublisher(nc *nats.Conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

// Send publishes one outbound payload with its kind carried as a header.
func (p *Publisher) Send(payload model.Outbound) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", payload.Kind(), err)
	}

	headers := nats.Header{}
	headers.Set("x-message-kind", payload.Kind())

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  headers,
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s payload: %w", payload.Kind(), err)
	}

	p.logger.Debug("Published payload", "kind", payload.Kind(), "subject", p.subject)
	return nil
}

// IncidentPublisher sends IEM incident records to the logging subject,
// fire-and-forget.
type IncidentPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewIncidentPublisher creates an incident publisher targeting subject.
func NewIncidentPublisher(nc *nats.Conn, subject string, logger *slog.Logger) *IncidentPublisher {
	return &IncidentPublisher{nc: nc, subject: subject, logger: logger}
}

// Raise publishes one incident in its IEM wire form.
func (p *IncidentPublisher) Raise(inc *model.Incident) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	data, err := json.Marshal(model.IncidentLog{
		LogLevel: "LOG_WARNING",
		LogType:  "IEM",
		LogMsg:   inc.LogMessage(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal incident %s: %w", inc.ID, err)
	}

	headers := nats.Header{}
	headers.Set("x-incident-id", inc.ID)
	headers.Set("x-incident-code", inc.Code)

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header:  headers,
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish incident %s: %w", inc.ID, err)
	}

	p.logger.Info("Published incident",
		"incident_id", inc.ID,
		"code", inc.Code,
		"disk_serial_number", inc.DiskSerialNumber,
		"subject", p.subject)
	return nil
}
