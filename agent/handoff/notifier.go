package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	rabbitmqx "github.com/tanpawarit/fluxy-lead-intake/pkg/rabbitmq"
)

type Publisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, env rabbitmqx.Envelope) error
}

var (
	_ contractx.Notifier = (*AMQPNotifier)(nil)
	_ contractx.Notifier = NopNotifier{}
	_ Publisher          = (*rabbitmqx.Publisher)(nil)
)

// Notification is the event body human agents consume.
type Notification struct {
	Destination   contractx.Destination  `json:"destination"`
	Kind          contractx.LeadKind     `json:"kind"`
	Template      string                 `json:"template"`
	PhoneNumberID string                 `json:"phone_number_id"`
	Lead          contractx.LeadRegister `json:"lead"`
}

// AMQPNotifier publishes one event per handoff on a topic exchange.
type AMQPNotifier struct {
	pub      Publisher
	exchange string
	newID    func() string
}

func NewAMQPNotifier(pub Publisher, exchange string) (*AMQPNotifier, error) {
	if pub == nil {
		return nil, errors.New("amqp publisher is required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, errors.New("amqp exchange is required")
	}
	return &AMQPNotifier{pub: pub, exchange: exchange, newID: uuid.NewString}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, h contractx.Handoff) error {
	key := RoutingKey(h)
	env := rabbitmqx.Envelope{
		Meta: rabbitmqx.Meta{
			ID:   n.newID(),
			Type: key,
		},
		Data: Notification{
			Destination:   h.Destination,
			Kind:          h.Kind,
			Template:      h.Template,
			PhoneNumberID: h.PhoneNumberID,
			Lead:          h.Lead,
		},
	}
	if err := n.pub.PublishJSON(ctx, n.exchange, key, env); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// RoutingKey is handoff.<destination>.<kind>.v1.
func RoutingKey(h contractx.Handoff) string {
	return fmt.Sprintf("handoff.%s.%s.v1", h.Destination, h.Kind)
}

// NopNotifier is used when no human channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, h contractx.Handoff) error {
	log.Debug().
		Str("destination", string(h.Destination)).
		Str("phone", h.Lead.Phone).
		Msg("no human notifier configured")
	return nil
}
