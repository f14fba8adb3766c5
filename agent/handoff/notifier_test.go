package handoff

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	rabbitmqx "github.com/tanpawarit/fluxy-lead-intake/pkg/rabbitmq"
)

type fakePublisher struct {
	exchange   string
	routingKey string
	env        rabbitmqx.Envelope
	err        error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, exchange, routingKey string, env rabbitmqx.Envelope) error {
	f.exchange = exchange
	f.routingKey = routingKey
	f.env = env
	return f.err
}

func TestAMQPNotifierPublishesEnvelope(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n, err := NewAMQPNotifier(pub, "handoff")
	if err != nil {
		t.Fatalf("NewAMQPNotifier() error = %v", err)
	}
	n.newID = func() string { return "evt-1" }

	h := salesHandoff()
	if err := n.Notify(context.Background(), h); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if pub.exchange != "handoff" {
		t.Fatalf("exchange = %q", pub.exchange)
	}
	if pub.routingKey != "handoff.sales.new_lead.v1" {
		t.Fatalf("routing key = %q", pub.routingKey)
	}
	if pub.env.Meta.ID != "evt-1" || pub.env.Meta.Type != pub.routingKey {
		t.Fatalf("unexpected meta: %+v", pub.env.Meta)
	}
	data, ok := pub.env.Data.(Notification)
	if !ok {
		t.Fatalf("data type = %T", pub.env.Data)
	}
	if data.Lead.Phone != "+55119999" || data.Template != "novo_lead" {
		t.Fatalf("unexpected notification: %+v", data)
	}
}

func TestAMQPNotifierWrapsPublishError(t *testing.T) {
	t.Parallel()

	cause := errors.New("channel closed")
	n, err := NewAMQPNotifier(&fakePublisher{err: cause}, "handoff")
	if err != nil {
		t.Fatalf("NewAMQPNotifier() error = %v", err)
	}

	h := salesHandoff()
	h.Destination = contractx.DestinationSupport
	h.Kind = contractx.LeadKindSupportIssue
	if err := n.Notify(context.Background(), h); !errors.Is(err, cause) {
		t.Fatalf("Notify() error = %v, want %v", err, cause)
	}
}

func TestNewAMQPNotifierValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewAMQPNotifier(nil, "handoff"); err == nil {
		t.Fatal("expected error for nil publisher")
	}
	if _, err := NewAMQPNotifier(&fakePublisher{}, " "); err == nil {
		t.Fatal("expected error for empty exchange")
	}
}
