package intakenode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

func UpsertContact(ctx context.Context, st *GraphState, leads LeadUpserter, meta contractx.ChannelMetadata) (*GraphState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if st.rejected() {
		return st, nil
	}

	switch st.Kind {
	case contractx.LeadKindNewLead:
		st.Upsert = leads.UpsertContact(ctx, st.Phone, st.Name, meta, st.NewLead.Context)
	case contractx.LeadKindNameUpdate:
		st.Upsert = leads.UpsertContactNameOnly(ctx, st.Phone, st.Name, meta)
	case contractx.LeadKindSupportIssue:
		st.Upsert = leads.UpsertContact(ctx, st.Phone, st.Name, meta, st.SupportIssue.Problem)
	default:
		return nil, fmt.Errorf("%w: unknown lead kind %q", contractx.ErrValidation, st.Kind)
	}
	return st, nil
}
