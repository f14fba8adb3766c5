// Package intake runs the lead intake pipeline behind the three intake tools.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	nodex "github.com/tanpawarit/fluxy-lead-intake/agent/nodes/intake"
)

const (
	ToolRegisterLead     = "register_lead"
	ToolRegisterNameLead = "register_name_lead"
	ToolErrorLead        = "error_lead"
)

// ToolName maps a lead kind to the tool that registers it.
func ToolName(kind contractx.LeadKind) string {
	switch kind {
	case contractx.LeadKindNewLead:
		return ToolRegisterLead
	case contractx.LeadKindNameUpdate:
		return ToolRegisterNameLead
	case contractx.LeadKindSupportIssue:
		return ToolErrorLead
	default:
		return string(kind)
	}
}

type Config struct {
	SalesAgentName          string `envconfig:"NOME_AGENTE_VENDAS" default:"Agente Gamefic"`
	SalesAgentPhone         string `envconfig:"NUMBER_VENDAS" default:"5534997801829"`
	SupportAgentName        string `envconfig:"NOME_AGENTE_SUPORTE" default:"Suporte Cardoso"`
	SupportAgentPhone       string `envconfig:"NUMBER_SUPORTE" default:"5534997801829"`
	DisplayPhoneNumber      string `envconfig:"DISPLAY_PHONE_NUMBER" default:"553491713923"`
	PhoneNumberID           string `envconfig:"PHONE_NUMBER_ID" default:"872884792582393"`
	RejectAnonymousSessions bool   `envconfig:"REJECT_ANONYMOUS_SESSIONS" default:"false"`
}

func (c Config) routing() nodex.Routing {
	return nodex.Routing{
		Sales: nodex.Agent{
			Name:  strings.TrimSpace(c.SalesAgentName),
			Phone: strings.TrimSpace(c.SalesAgentPhone),
		},
		Support: nodex.Agent{
			Name:  strings.TrimSpace(c.SupportAgentName),
			Phone: strings.TrimSpace(c.SupportAgentPhone),
		},
		Channel: contractx.ChannelMetadata{
			DisplayPhoneNumber: strings.TrimSpace(c.DisplayPhoneNumber),
			PhoneNumberID:      strings.TrimSpace(c.PhoneNumberID),
		},
	}
}

type Option func(*Service)

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

type Service struct {
	leads      nodex.LeadUpserter
	dispatcher contractx.Dispatcher
	validate   *validator.Validate
	metrics    *Metrics

	routing         nodex.Routing
	rejectAnonymous bool

	runners map[contractx.LeadKind]compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

func New(
	leads nodex.LeadUpserter,
	dispatcher contractx.Dispatcher,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if leads == nil {
		return nil, errors.New("lead upserter is required")
	}
	if dispatcher == nil {
		return nil, errors.New("handoff dispatcher is required")
	}

	s := &Service{
		leads:           leads,
		dispatcher:      dispatcher,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		routing:         cfg.routing(),
		rejectAnonymous: cfg.RejectAnonymousSessions,
		runners:         make(map[contractx.LeadKind]compose.Runnable[nodex.GraphInput, nodex.GraphOutput], 3),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	ctx := context.Background()
	for _, kind := range []contractx.LeadKind{
		contractx.LeadKindNewLead,
		contractx.LeadKindNameUpdate,
		contractx.LeadKindSupportIssue,
	} {
		runner, err := s.compileIntakeGraph(ctx, kind)
		if err != nil {
			return nil, err
		}
		s.runners[kind] = runner
	}
	return s, nil
}

// Handle runs one intake invocation. Pipeline failures come back as the
// error outcome, never as a Go error.
func (s *Service) Handle(ctx context.Context, kind contractx.LeadKind, arguments string) contractx.ToolOutcome {
	tool := ToolName(kind)

	runner, ok := s.runners[kind]
	if !ok {
		err := fmt.Errorf("%w: unknown lead kind %q", contractx.ErrValidation, kind)
		return s.abort(ctx, kind, err)
	}

	out, err := runner.Invoke(ctx, nodex.GraphInput{Kind: kind, Arguments: arguments})
	if err != nil {
		return s.abort(ctx, kind, err)
	}

	s.metrics.observe(tool, out.Outcome.Status)
	return out.Outcome
}

func (s *Service) abort(ctx context.Context, kind contractx.LeadKind, err error) contractx.ToolOutcome {
	tool := ToolName(kind)
	log.Ctx(ctx).Error().
		Err(err).
		Str("tool", tool).
		Msg("intake pipeline aborted")

	s.metrics.observe(tool, contractx.ToolStatusError)
	return contractx.ToolOutcome{
		Status:  contractx.ToolStatusError,
		Message: nodex.ErrorMessage(kind),
	}
}
