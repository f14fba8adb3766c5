package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	URL         string        `envconfig:"URL"`
	Exchange    string        `split_words:"true" default:"handoff"`
	AppID       string        `envconfig:"APP_ID" default:"lead-intake"`
	ConnTimeout time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type Meta struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Producer      string    `json:"producer,omitempty"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Publisher owns one connection and one channel. Publishes are serialised on
// the channel.
type Publisher struct {
	conn  *amqp.Connection
	appID string

	mu sync.Mutex
	ch *amqp.Channel
}

// Dial connects to the broker and declares cfg.Exchange as a durable topic
// exchange.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("rabbitmq url is required")
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("context deadline exceeded before connection attempt")
	}

	conn, err := amqp.DialConfig(strings.TrimSpace(cfg.URL), amqp.Config{
		Dial: amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if exchange := strings.TrimSpace(cfg.Exchange); exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
		}
	}

	return &Publisher{
		conn:  conn,
		ch:    ch,
		appID: cfg.AppID,
	}, nil
}

// PublishJSON publishes env as a persistent JSON message.
func (p *Publisher) PublishJSON(ctx context.Context, exchange, routingKey string, env Envelope) error {
	if p == nil {
		return errors.New("nil publisher")
	}

	msg, err := p.publishing(env)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (p *Publisher) publishing(env Envelope) (amqp.Publishing, error) {
	if err := prepare(&env, p.appID); err != nil {
		return amqp.Publishing{}, err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal envelope: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: env.Meta.CorrelationID,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         p.appID,
	}, nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

func prepare(env *Envelope, producer string) error {
	if env.Meta.ID == "" {
		return fmt.Errorf("envelope.Meta.ID is required")
	}
	if env.Meta.CorrelationID == "" {
		env.Meta.CorrelationID = env.Meta.ID
	}
	if env.Meta.Producer == "" {
		env.Meta.Producer = producer
	}
	if env.Meta.Time.IsZero() {
		env.Meta.Time = time.Now().UTC()
	}
	return nil
}
