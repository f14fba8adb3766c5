package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	intakex "github.com/tanpawarit/fluxy-lead-intake/agent/agents/intake"
	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// Handler runs an intake invocation. *intake.Service satisfies it.
type Handler interface {
	Handle(ctx context.Context, kind contractx.LeadKind, arguments string) contractx.ToolOutcome
}

var (
	_ Handler                = (*intakex.Service)(nil)
	_ einotool.InvokableTool = (*IntakeTool)(nil)
)

// IntakeTool exposes one lead kind to the agent runtime. The session is read
// from the invocation context.
type IntakeTool struct {
	info    *schema.ToolInfo
	kind    contractx.LeadKind
	handler Handler
}

func NewIntakeTool(kind contractx.LeadKind, h Handler) (*IntakeTool, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: intake handler is required", contractx.ErrValidation)
	}
	info, ok := intakeInfos()[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown lead kind %q", contractx.ErrValidation, kind)
	}
	return &IntakeTool{info: info, kind: kind, handler: h}, nil
}

func (t *IntakeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *IntakeTool) Kind() contractx.LeadKind {
	return t.kind
}

// InvokableRun returns the JSON encoded tool outcome. Pipeline failures are
// part of the outcome, not errors.
func (t *IntakeTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...einotool.Option) (string, error) {
	out := t.handler.Handle(ctx, t.kind, argumentsInJSON)
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal tool outcome: %w", err)
	}
	return string(raw), nil
}

func intakeInfos() map[contractx.LeadKind]*schema.ToolInfo {
	return map[contractx.LeadKind]*schema.ToolInfo{
		contractx.LeadKindNewLead: {
			Name: intakex.ToolRegisterLead,
			Desc: "Registra um lead B2B qualificado produtos da Cardoso Motos",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"nome":     {Type: schema.String, Desc: "Nome do cliente, ao menos 2 caracteres", Required: true},
				"contexto": {Type: schema.String, Desc: "Uso da moto e setor do cliente, ao menos 10 caracteres", Required: true},
				"tomLead": {
					Type:     schema.String,
					Desc:     "Tom do lead",
					Enum:     []string{"curioso", "engajado", "analitico", "decisor", "cetico"},
					Required: true,
				},
				"urgenciaLead": {
					Type:     schema.String,
					Desc:     "Urgência da compra",
					Enum:     []string{"Baixa", "Média", "Alta"},
					Required: true,
				},
				"instrucao": {Type: schema.String, Desc: "Dica para o vendedor, ao menos 10 caracteres", Required: true},
			}),
		},
		contractx.LeadKindNameUpdate: {
			Name: intakex.ToolRegisterNameLead,
			Desc: "Registra o nome capturado do lead para o time comercial",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"nome": {Type: schema.String, Desc: "Nome do cliente, ao menos 2 caracteres", Required: true},
			}),
		},
		contractx.LeadKindSupportIssue: {
			Name: intakex.ToolErrorLead,
			Desc: "Registra problemas técnicos do cliente",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"nome":     {Type: schema.String, Desc: "Nome do cliente", Required: true},
				"problema": {Type: schema.String, Desc: "Descrição do problema, ao menos 5 caracteres", Required: true},
				"etapa": {
					Type:     schema.String,
					Desc:     "Etapa onde o problema ocorreu",
					Enum:     []string{"login", "plataforma", "pagamento", "acesso", "outro"},
					Required: true,
				},
			}),
		},
	}
}
