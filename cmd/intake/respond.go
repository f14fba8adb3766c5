package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	conversationx "github.com/tanpawarit/fluxy-lead-intake/agent/agents/conversation"
	intakex "github.com/tanpawarit/fluxy-lead-intake/agent/agents/intake"
	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	llmx "github.com/tanpawarit/fluxy-lead-intake/agent/llm"
	promptx "github.com/tanpawarit/fluxy-lead-intake/agent/prompt"
	toolx "github.com/tanpawarit/fluxy-lead-intake/agent/tool"
)

func chatResponder(
	ctx context.Context,
	cfg llmx.Config,
	agentType contractx.AgentType,
	h toolx.Handler,
) (func(context.Context, string) (string, error), error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.OpenRouterFor(agentType)
	if err := orCfg.CheckModel(ctx); err != nil {
		return nil, err
	}
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return nil, err
	}

	conv, err := conversationx.New(ctx, chatModel, agentType, promptx.LoadPromptSet().For(agentType), h)
	if err != nil {
		return nil, err
	}
	return conv.Reply, nil
}

// directResponder runs lines of the form "<tool> <json arguments>" without a
// chat model.
func directResponder(h toolx.Handler) func(context.Context, string) (string, error) {
	kinds := map[string]contractx.LeadKind{
		intakex.ToolRegisterLead:     contractx.LeadKindNewLead,
		intakex.ToolRegisterNameLead: contractx.LeadKindNameUpdate,
		intakex.ToolErrorLead:        contractx.LeadKindSupportIssue,
	}

	return func(ctx context.Context, line string) (string, error) {
		name, args, _ := strings.Cut(line, " ")
		kind, ok := kinds[name]
		if !ok {
			return "", fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, name)
		}
		raw, err := json.Marshal(h.Handle(ctx, kind, args))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
