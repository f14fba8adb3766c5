package intakenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// DispatchHandoff hands the lead to its human destination. It runs whether or
// not the contact upsert succeeded.
func DispatchHandoff(ctx context.Context, st *GraphState, d contractx.Dispatcher, routing Routing) (*GraphState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if st.rejected() {
		return st, nil
	}

	h, err := BuildHandoff(st, routing)
	if err != nil {
		return nil, err
	}
	st.Dispatch = d.Dispatch(ctx, h)
	return st, nil
}

func BuildHandoff(st *GraphState, routing Routing) (contractx.Handoff, error) {
	h := contractx.Handoff{
		Kind:          st.Kind,
		PhoneNumberID: routing.Channel.PhoneNumberID,
	}

	switch st.Kind {
	case contractx.LeadKindNewLead:
		l := st.NewLead
		h.Destination = contractx.DestinationSales
		h.Template = TemplateNewLead
		h.Lead = contractx.LeadRegister{
			Name:        l.Name,
			Product:     l.Context,
			Context:     l.Context,
			Tone:        l.Tone,
			Urgency:     l.Urgency,
			Instruction: l.Instruction,
		}
	case contractx.LeadKindNameUpdate:
		h.Destination = contractx.DestinationSales
		h.Template = TemplateNameUpdate
		h.Lead = contractx.LeadRegister{Name: st.NameUpdate.Name}
	case contractx.LeadKindSupportIssue:
		s := st.SupportIssue
		h.Destination = contractx.DestinationSupport
		h.Template = TemplateSupportIssue
		h.Lead = contractx.LeadRegister{
			Name:    s.Name,
			Problem: s.Problem,
			Stage:   s.Stage,
		}
	default:
		return contractx.Handoff{}, fmt.Errorf("%w: unknown lead kind %q", contractx.ErrValidation, st.Kind)
	}

	agent := routing.Sales
	if h.Destination == contractx.DestinationSupport {
		agent = routing.Support
	}
	h.Lead.Phone = st.Phone
	h.Lead.AgentName = agent.Name
	h.Lead.AgentPhone = agent.Phone
	return h, nil
}
