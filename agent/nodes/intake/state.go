// Package intakenode holds the steps of the lead intake pipeline. Each step
// takes the graph state produced by the previous one.
package intakenode

import (
	"context"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	leadx "github.com/tanpawarit/fluxy-lead-intake/agent/lead"
)

const (
	TemplateNewLead      = "novo_lead"
	TemplateNameUpdate   = "atualizacao_nome"
	TemplateSupportIssue = "suporte_cliente"
)

// LeadUpserter is satisfied by *lead.Orchestrator.
type LeadUpserter interface {
	UpsertContact(ctx context.Context, phone, name string, meta contractx.ChannelMetadata, contextText string) leadx.Outcome
	UpsertContactNameOnly(ctx context.Context, phone, name string, meta contractx.ChannelMetadata) leadx.Outcome
}

var _ LeadUpserter = (*leadx.Orchestrator)(nil)

// Agent is the human who receives a handoff.
type Agent struct {
	Name  string
	Phone string
}

type Routing struct {
	Sales   Agent
	Support Agent
	Channel contractx.ChannelMetadata
}

type GraphInput struct {
	Kind      contractx.LeadKind
	Arguments string
}

type GraphOutput struct {
	Kind    contractx.LeadKind
	Phone   string
	Outcome contractx.ToolOutcome
	Result  contractx.Result
}

type GraphState struct {
	Kind contractx.LeadKind
	Name string

	NewLead      *contractx.NewLead
	NameUpdate   *contractx.NameUpdate
	SupportIssue *contractx.SupportIssue

	Phone     string
	Anonymous bool

	Upsert   leadx.Outcome
	Dispatch contractx.Result

	// Rejected is set when the request must not reach storage.
	Rejected error
}

func (s *GraphState) rejected() bool {
	return s.Rejected != nil
}

func (s *GraphState) reject(err error) *GraphState {
	s.Rejected = err
	return s
}
