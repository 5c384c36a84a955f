package worker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/campus-resource-hub/internal/events"
	"github.com/you/campus-resource-hub/internal/notifier"
	"github.com/you/campus-resource-hub/pkg/mq"
)

// Consumer turns booking and messaging events into notifications.
// Deliveries that fail to decode are dead-lettered; notifier failures are
// nacked back onto the queue for retry.
type Consumer struct {
	cons     *mq.Consumer
	notifier notifier.Notifier
	log      *zap.Logger
}

func NewConsumer(cons *mq.Consumer, n notifier.Notifier, log *zap.Logger) *Consumer {
	return &Consumer{cons: cons, notifier: n, log: log}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.cons.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.settle(d)
		}
	}
}

// settle acks a handled delivery. Undecodable payloads are dead-lettered
// once; requeueing them would redeliver the same bytes forever. Notifier
// failures are transient, so those go back on the queue.
func (c *Consumer) settle(d amqp.Delivery) {
	err := c.handleDelivery(d)
	if err == nil {
		_ = d.Ack(false)
		return
	}
	if errors.Is(err, events.ErrBadPayload) {
		c.log.Warn("dead-letter undecodable delivery",
			zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	c.log.Warn("handle delivery",
		zap.String("routing_key", d.RoutingKey), zap.Error(err))
	_ = d.Nack(false, true)
}

func (c *Consumer) handleDelivery(d amqp.Delivery) error {
	switch d.RoutingKey {
	case events.RKBookingCreated:
		ev, err := events.MustUnmarshal[events.BookingCreated](d.Body)
		if err != nil {
			return err
		}
		subject := "Booking requested"
		if ev.Status == "approved" {
			subject = "Booking auto-approved"
		}
		return c.notifier.Notify(subject,
			fmt.Sprintf("Booking %s (resource=%s) %s", ev.BookingID, ev.ResourceID,
				notifier.HumanTimeRange(ev.Start, ev.End)))

	case events.RKBookingApproved, events.RKBookingRejected,
		events.RKBookingCancelled, events.RKBookingCompleted:
		ev, err := events.MustUnmarshal[events.BookingTransitioned](d.Body)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Booking %s: %s -> %s", ev.BookingID, ev.FromStatus, ev.ToStatus)
		if ev.Notes != "" {
			msg = fmt.Sprintf("%s (%s)", msg, ev.Notes)
		}
		return c.notifier.Notify("Booking "+ev.ToStatus, msg)

	case events.RKMessagePosted:
		ev, err := events.MustUnmarshal[events.MessagePosted](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("New message",
			fmt.Sprintf("Thread %s: message from %s", ev.ThreadID, ev.SenderID))

	default:
		c.log.Debug("skip unknown routing key", zap.String("routing_key", d.RoutingKey))
	}
	return nil
}
