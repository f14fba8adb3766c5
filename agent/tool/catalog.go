package tool

import (
	"context"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// Executor runs a tool call by name and returns the content for the tool
// message.
type Executor func(ctx context.Context, tool string, argumentsInJSON string) (string, error)

// BuildForAgent returns the tool infos to bind on the chat model of
// agentType and an executor for the calls it makes.
func BuildForAgent(ctx context.Context, agentType contractx.AgentType, h Handler) ([]*schema.ToolInfo, Executor, error) {
	tools, err := ToolsForAgent(agentType, h)
	if err != nil {
		return nil, nil, err
	}

	infos := make([]*schema.ToolInfo, 0, len(tools))
	byName := make(map[string]einotool.InvokableTool, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
		byName[info.Name] = t
	}
	return infos, NewExecutor(agentType, byName), nil
}

func ToolsForAgent(agentType contractx.AgentType, h Handler) ([]einotool.InvokableTool, error) {
	var kinds []contractx.LeadKind
	switch agentType {
	case contractx.AgentTypeSales:
		kinds = []contractx.LeadKind{contractx.LeadKindNewLead, contractx.LeadKindNameUpdate}
	case contractx.AgentTypeSupport:
		kinds = []contractx.LeadKind{contractx.LeadKindSupportIssue}
	case contractx.AgentTypeOrchestrator:
		kinds = []contractx.LeadKind{contractx.LeadKindNewLead, contractx.LeadKindNameUpdate, contractx.LeadKindSupportIssue}
	default:
		return nil, nil
	}

	tools := make([]einotool.InvokableTool, 0, len(kinds))
	for _, kind := range kinds {
		t, err := NewIntakeTool(kind, h)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func NewExecutor(agentType contractx.AgentType, tools map[string]einotool.InvokableTool) Executor {
	return func(ctx context.Context, name string, argumentsInJSON string) (string, error) {
		t, ok := tools[name]
		if !ok {
			return "", fmt.Errorf("%w: tool=%s is unavailable for agent=%s", contractx.ErrValidation, name, agentType)
		}
		return t.InvokableRun(ctx, argumentsInJSON)
	}
}
