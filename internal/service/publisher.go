// Package service holds the outbound collaborators: the notification
// outbox publisher, the push and payment gateway clients and the
// reservation-list cache.  All of them are best-effort from the caller's
// perspective; errors are returned so the caller can log and move on.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/queue"
)

// Publisher is the notification outbox: handlers hand it one event after
// the primary write commits, and the broker takes delivery from there.
// Publish never panics; any error is logged and returned so the caller
// can ignore it without failing the request.
type Publisher struct {
	url string
	log *zap.SugaredLogger
}

func NewPublisher(url string, log *zap.SugaredLogger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishStatusEvent enqueues a ReservationStatusEvent on the durable
// reservation.status queue.  Messages are marked persistent.
func (p *Publisher) PublishStatusEvent(ctx context.Context, event queue.ReservationStatusEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warnw("outbox: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warnw("outbox: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.StatusQueueName, true, false, false, false, nil); err != nil {
		p.log.Warnw("outbox: queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Warnw("outbox: marshal event failed", "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue.StatusQueueName, false, false, pub); err != nil {
		p.log.Warnw("outbox: publish failed", "err", err)
		return err
	}
	return nil
}
