package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

var (
	//go:embed template/orchestrator.txt
	orchestratorRaw string

	//go:embed template/sales.txt
	salesRaw string

	//go:embed template/support.txt
	supportRaw string
)

// PromptSet holds the system prompts of each agent type.
type PromptSet struct {
	Orchestrator string
	Sales        string
	Support      string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Orchestrator: strings.TrimSpace(orchestratorRaw),
		Sales:        strings.TrimSpace(salesRaw),
		Support:      strings.TrimSpace(supportRaw),
	}
}

// For returns the system prompt of agentType, defaulting to the orchestrator.
func (p PromptSet) For(agentType contractx.AgentType) string {
	switch agentType {
	case contractx.AgentTypeSales:
		return p.Sales
	case contractx.AgentTypeSupport:
		return p.Support
	default:
		return p.Orchestrator
	}
}
