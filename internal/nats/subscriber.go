// Package nats carries the correlator's queue transport: the inbound sensor
// subscriber and the egress and incident publishers.
package nats

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/drivewatch/correlator/internal/handler"
)

// Subscriber drains the inbound sensor subject and hands each message to the
// dispatcher strictly in arrival order. Messages are buffered on a channel
// subscription and consumed by a single goroutine, so no two messages are
// ever processed concurrently.
type Subscriber struct {
	nc         *nats.Conn
	subject    string
	queue      string
	dispatcher *handler.Dispatcher
	logger     *slog.Logger

	sub  *nats.Subscription
	msgs chan *nats.Msg
}

// NewSubscriber creates a subscriber for the given subject and queue group.
func NewSubscriber(nc *nats.Conn, subject, queue string, dispatcher *handler.Dispatcher, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		nc:         nc,
		subject:    subject,
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
		msgs:       make(chan *nats.Msg, 256),
	}
}

// Run subscribes and processes messages until the context is cancelled, then
// drains the subscription.
func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := s.nc.ChanQueueSubscribe(s.subject, s.queue, s.msgs)
	if err != nil {
		s.logger.Error("Failed to subscribe to sensor subject", "subject", s.subject, "error", err)
		return err
	}
	s.sub = sub
	s.logger.Info("Subscribed to sensor subject", "subject", s.subject, "queue", s.queue)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case msg, ok := <-s.msgs:
			if !ok {
				return nil
			}
			s.dispatcher.Dispatch(msg.Data)
		}
	}
}

// shutdown drains the subscription and processes whatever was already
// buffered locally.
func (s *Subscriber) shutdown() error {
	s.logger.Info("Draining sensor subscription")
	if err := s.sub.Drain(); err != nil {
		s.logger.Error("Failed to drain sensor subscription", "error", err)
		return err
	}

	for {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				return nil
			}
			s.dispatcher.Dispatch(msg.Data)
		default:
			s.logger.Info("Sensor subscription drained")
			return nil
		}
	}
}
