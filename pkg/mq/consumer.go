package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig describes a durable topic-exchange subscription. When
// UseDLX is set, rejected deliveries are routed to DLXName/DLXQueue
// instead of being lost.
type ConsumerConfig struct {
	URL       string
	Exchanges []string
	Queue     string
	Bindings  []string
	Prefetch  int
	UseDLX    bool
	DLXName   string
	DLXQueue  string
	Tag       string
}

type Consumer struct {
	cfg  ConsumerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	args := amqp.Table{}
	if cfg.UseDLX {
		args["x-dead-letter-exchange"] = cfg.DLXName
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fail(fmt.Errorf("declare queue %s: %w", cfg.Queue, err))
	}

	for _, ex := range cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare exchange %s: %w", ex, err))
		}
		for _, rk := range cfg.Bindings {
			if err := ch.QueueBind(q.Name, rk, ex, false, nil); err != nil {
				return fail(fmt.Errorf("bind %s to %s: %w", rk, ex, err))
			}
		}
	}

	if cfg.UseDLX {
		if err := ch.ExchangeDeclare(cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlx: %w", err))
		}
		if _, err := ch.QueueDeclare(cfg.DLXQueue, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlq: %w", err))
		}
		if err := ch.QueueBind(cfg.DLXQueue, "#", cfg.DLXName, false, nil); err != nil {
			return fail(fmt.Errorf("bind dlq: %w", err))
		}
	}

	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("set qos: %w", err))
	}

	return &Consumer{cfg: cfg, conn: conn, ch: ch}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
