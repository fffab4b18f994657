package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/realtime"
)

// PushSender dispatches one push message to a user's registered
// devices.  It is satisfied by *service.PushClient; the indirection
// keeps this package from importing service, which imports this one.
type PushSender interface {
	Send(ctx context.Context, userID uint64, title, message string) error
}

// Consumer drains the reservation.status queue and fans each event out
// to the realtime hub and the push gateway.  Everything here is
// best-effort: a failed delivery is logged and the message is not
// requeued, matching the at-most-once notification contract.
type Consumer struct {
	url  string
	hub  *realtime.Hub
	push PushSender
	log  *zap.SugaredLogger
}

func NewConsumer(url string, hub *realtime.Hub, push PushSender, log *zap.SugaredLogger) *Consumer {
	return &Consumer{url: url, hub: hub, push: push, log: log}
}

// Start connects to RabbitMQ, declares the durable queue and consumes
// until the context is cancelled.  It runs a reconnect loop with capped
// exponential backoff so a broker restart never takes the API down.
func (c *Consumer) Start(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warnw("notification consumer: dial failed", "err", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.log.Warnw("notification consumer: loop ended", "err", err)
		}
		_ = conn.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warnw("notification consumer: set QoS failed", "err", err)
	}

	if _, err := ch.QueueDeclare(StatusQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(StatusQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.log.Warnw("notification consumer: handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage fans one lifecycle event out to the three audiences.
// Fan-out never blocks on absent listeners; the hub drops events for
// empty rooms.
func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev ReservationStatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	now := time.Now().UTC()
	for _, room := range []string{
		realtime.UserRoom(ev.UserID),
		realtime.ShopRoom(ev.ShopID),
		realtime.AdminRoom,
	} {
		c.hub.Publish(realtime.Event{
			ID:      uuid.NewString(),
			Type:    realtime.EventReservationStatus,
			Room:    room,
			Payload: ev,
			SentAt:  now,
		})
	}

	if c.push != nil {
		msg := fmt.Sprintf("Your reservation for %s is now %s", ev.MenuName, ev.NewStatus)
		if err := c.push.Send(ctx, ev.UserID, "Reservation update", msg); err != nil {
			c.log.Warnw("push dispatch failed", "user_id", ev.UserID, "err", err)
		}
	}
	return nil
}
