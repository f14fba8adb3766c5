package intake

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	nodex "github.com/tanpawarit/fluxy-lead-intake/agent/nodes/intake"
)

func (s *Service) compileIntakeGraph(
	ctx context.Context,
	kind contractx.LeadKind,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, s.validate)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("derive_phone",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DerivePhone(ctx, in, s.rejectAnonymous)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node derive_phone: %w", err)
	}

	if err := graph.AddLambdaNode("upsert_contact",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.UpsertContact(ctx, in, s.leads, s.routing.Channel)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node upsert_contact: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_handoff",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchHandoff(ctx, in, s.dispatcher, s.routing)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_handoff: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "derive_phone"},
		{"derive_phone", "upsert_contact"},
		{"upsert_contact", "dispatch_handoff"},
		{"dispatch_handoff", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("intake."+string(kind)))
	if err != nil {
		return nil, fmt.Errorf("compile intake graph kind=%s: %w", kind, err)
	}
	return runner, nil
}
