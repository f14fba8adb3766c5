package intakenode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	leadx "github.com/tanpawarit/fluxy-lead-intake/agent/lead"
)

// FinalizeReply collapses the pipeline into one of the tool's two user
// messages. The log line keeps the storage and dispatch kinds apart.
func FinalizeReply(ctx context.Context, st *GraphState) (GraphOutput, error) {
	if st == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	out := GraphOutput{Kind: st.Kind, Phone: st.Phone}
	if st.rejected() {
		out.Result = contractx.Failure(contractx.KindValidation, st.Rejected)
	} else {
		out.Result = st.Upsert.Result.Merge(st.Dispatch)
	}

	failed := st.rejected() || st.Upsert.Status != leadx.StatusSuccess
	if failed {
		out.Outcome = contractx.ToolOutcome{Status: contractx.ToolStatusError, Message: ErrorMessage(st.Kind)}
	} else {
		out.Outcome = contractx.ToolOutcome{Status: contractx.ToolStatusSuccess, Message: SuccessMessage(st.Kind, st.Name)}
	}

	logger := log.Ctx(ctx)
	var evt *zerolog.Event
	switch {
	case failed:
		evt = logger.Error()
	case !out.Result.OK():
		evt = logger.Warn()
	default:
		evt = logger.Info()
	}
	evt.
		Str("lead_kind", string(st.Kind)).
		Str("phone", st.Phone).
		Str("status", out.Outcome.Status).
		Str("storage_kind", storageKind(st)).
		Str("dispatch_kind", string(st.Dispatch.Kind)).
		AnErr("storage_error", st.Upsert.Result.Err).
		AnErr("dispatch_error", st.Dispatch.Err).
		AnErr("validation_error", st.Rejected).
		Msg("intake finished")

	return out, nil
}

func storageKind(st *GraphState) string {
	if st.rejected() {
		return string(contractx.KindValidation)
	}
	return string(st.Upsert.Result.Kind)
}

func SuccessMessage(kind contractx.LeadKind, name string) string {
	switch kind {
	case contractx.LeadKindNameUpdate:
		return fmt.Sprintf("Contato atualizado com sucesso. O nome do lead é %s.", name)
	case contractx.LeadKindSupportIssue:
		return fmt.Sprintf("Obrigado, %s. Nosso suporte já recebeu sua solicitação.", name)
	default:
		return "Obrigado pelo contato. Seu atendimento será continuado por um especialista."
	}
}

func ErrorMessage(kind contractx.LeadKind) string {
	switch kind {
	case contractx.LeadKindNameUpdate:
		return "Falha ao registrar nome do lead. Tente novamente."
	case contractx.LeadKindSupportIssue:
		return "Erro ao registrar suporte."
	default:
		return "Falha ao registrar lead. Tente novamente."
	}
}
