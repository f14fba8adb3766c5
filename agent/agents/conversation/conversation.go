// Package conversation binds the intake tools to a chat model and keeps the
// message history of one session.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	toolx "github.com/tanpawarit/fluxy-lead-intake/agent/tool"
)

const defaultMaxToolRounds = 4

// ToolFailedMessage is what the model sees when a tool call cannot run. The
// cause is only logged.
const ToolFailedMessage = "Não foi possível concluir a solicitação agora. Tente novamente."

var toolFailedContent = mustToolContent(contractx.ToolOutcome{
	Status:  contractx.ToolStatusError,
	Message: ToolFailedMessage,
})

var ErrTooManyToolRounds = errors.New("model kept calling tools")

type Option func(*Conversation)

func WithMaxToolRounds(n int) Option {
	return func(c *Conversation) {
		if n > 0 {
			c.maxToolRounds = n
		}
	}
}

type Conversation struct {
	agentType     contractx.AgentType
	model         einomodel.BaseChatModel
	execute       toolx.Executor
	history       []*schema.Message
	maxToolRounds int
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	agentType contractx.AgentType,
	systemPrompt string,
	handler toolx.Handler,
	opts ...Option,
) (*Conversation, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	infos, execute, err := toolx.BuildForAgent(ctx, agentType, handler)
	if err != nil {
		return nil, err
	}
	bound, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools for agent=%s: %w", agentType, err)
	}

	c := &Conversation{
		agentType:     agentType,
		model:         bound,
		execute:       execute,
		maxToolRounds: defaultMaxToolRounds,
	}
	if p := strings.TrimSpace(systemPrompt); p != "" {
		c.history = append(c.history, schema.SystemMessage(p))
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Reply appends text to the history and runs the model until it answers
// without tool calls. Tool calls run with ctx, so the session travels with it.
func (c *Conversation) Reply(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}
	c.history = append(c.history, schema.UserMessage(text))

	for round := 0; round <= c.maxToolRounds; round++ {
		msg, err := c.model.Generate(ctx, c.history)
		if err != nil {
			return "", fmt.Errorf("generate agent=%s: %w", c.agentType, err)
		}
		if msg == nil {
			return "", fmt.Errorf("generate agent=%s: empty response", c.agentType)
		}
		c.history = append(c.history, msg)

		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}
		for _, call := range msg.ToolCalls {
			c.history = append(c.history, schema.ToolMessage(c.runTool(ctx, call), call.ID))
		}
	}
	return "", fmt.Errorf("%w: agent=%s rounds=%d", ErrTooManyToolRounds, c.agentType, c.maxToolRounds)
}

func (c *Conversation) runTool(ctx context.Context, call schema.ToolCall) string {
	name := strings.TrimSpace(call.Function.Name)
	out, err := c.execute(ctx, name, call.Function.Arguments)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("tool", name).Str("call_id", call.ID).Msg("tool call failed")
		return toolFailedContent
	}
	return out
}

func mustToolContent(out contractx.ToolOutcome) string {
	raw, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// History returns a copy of the messages exchanged so far.
func (c *Conversation) History() []*schema.Message {
	return append([]*schema.Message(nil), c.history...)
}
