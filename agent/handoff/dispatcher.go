// Package handoff delivers captured leads and support issues to the humans
// who continue the conversation.
package handoff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	backendx "github.com/tanpawarit/fluxy-lead-intake/pkg/backend"
)

const (
	targetBackend  = "backend"
	targetNotifier = "notifier"
)

var _ contractx.Dispatcher = (*Dispatcher)(nil)

// Backend is the vendor backend that records the sale opportunity.
type Backend interface {
	Send(ctx context.Context, task backendx.Task) error
}

type Option func(*Dispatcher)

func WithNotifier(n contractx.Notifier) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithClaimer enables the duplicate-event guard.
func WithClaimer(c contractx.Claimer) Option {
	return func(d *Dispatcher) {
		d.claims = c
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

type Dispatcher struct {
	backend  Backend
	notifier contractx.Notifier
	claims   contractx.Claimer
	metrics  *Metrics
}

func New(backend Backend, opts ...Option) (*Dispatcher, error) {
	if backend == nil {
		return nil, errors.New("handoff backend is required")
	}
	d := &Dispatcher{
		backend:  backend,
		notifier: NopNotifier{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Dispatch delivers h to the backend and to the human notifier. Failures are
// logged and reported as KindDispatchFailure; Dispatch never panics or blocks
// the caller beyond the deliveries themselves.
func (d *Dispatcher) Dispatch(ctx context.Context, h contractx.Handoff) contractx.Result {
	logger := log.With().
		Str("destination", string(h.Destination)).
		Str("lead_kind", string(h.Kind)).
		Str("phone", h.Lead.Phone).
		Logger()

	key, claimed := "", false
	if d.claims != nil {
		var err error
		key, err = EventKey(h)
		if err != nil {
			logger.Warn().Err(err).Msg("handoff event key unavailable, delivering without guard")
		} else {
			ok, err := d.claims.Claim(ctx, key)
			switch {
			case err != nil:
				logger.Warn().Err(err).Msg("handoff claim failed, delivering anyway")
			case !ok:
				logger.Info().Str("event_key", key).Msg("handoff already delivered, skipping")
				return contractx.Success()
			default:
				claimed = true
			}
		}
	}

	if err := d.deliver(ctx, h); err != nil {
		if claimed {
			if rerr := d.claims.Release(ctx, key); rerr != nil {
				logger.Warn().Err(rerr).Str("event_key", key).Msg("handoff claim release failed")
			}
		}
		return contractx.Failure(contractx.KindDispatchFailure, err)
	}

	logger.Info().Str("template", h.Template).Msg("handoff delivered")
	return contractx.Success()
}

// deliver runs both deliveries to completion; one failing does not cancel
// the other.
func (d *Dispatcher) deliver(ctx context.Context, h contractx.Handoff) error {
	var g errgroup.Group

	g.Go(func() error {
		err := d.backend.Send(ctx, backendx.Task{
			NameTemplate:  h.Template,
			Dados:         h.Lead,
			PhoneNumberID: h.PhoneNumberID,
		})
		return d.observe(h, targetBackend, err)
	})

	g.Go(func() error {
		return d.observe(h, targetNotifier, d.notifier.Notify(ctx, h))
	})

	return g.Wait()
}

func (d *Dispatcher) observe(h contractx.Handoff, target string, err error) error {
	d.metrics.observeDelivery(h.Destination, target, err)
	if err == nil {
		return nil
	}
	log.Warn().
		Err(err).
		Str("destination", string(h.Destination)).
		Str("target", target).
		Str("phone", h.Lead.Phone).
		Str("kind", string(contractx.KindDispatchFailure)).
		Msg("handoff delivery failed")
	return fmt.Errorf("%w: %s: %v", contractx.ErrDispatch, target, err)
}

// EventKey identifies a handoff event by its destination, kind and payload.
func EventKey(h contractx.Handoff) (string, error) {
	payload, err := json.Marshal(h.Lead)
	if err != nil {
		return "", fmt.Errorf("marshal handoff payload: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(h.Destination))
	sum.Write([]byte{'|'})
	sum.Write([]byte(h.Kind))
	sum.Write([]byte{'|'})
	sum.Write(payload)
	return "handoff:" + hex.EncodeToString(sum.Sum(nil)), nil
}
