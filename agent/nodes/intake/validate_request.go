package intakenode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// ValidateRequest decodes the tool arguments for in.Kind and checks them. A
// malformed request does not fail the graph; it is recorded on the state so
// the reply step can answer with the tool's error message.
func ValidateRequest(in GraphInput, v *validator.Validate) (*GraphState, error) {
	st := &GraphState{Kind: in.Kind}

	raw := strings.TrimSpace(in.Arguments)
	if raw == "" {
		raw = "{}"
	}

	var target any
	switch in.Kind {
	case contractx.LeadKindNewLead:
		st.NewLead = &contractx.NewLead{}
		target = st.NewLead
	case contractx.LeadKindNameUpdate:
		st.NameUpdate = &contractx.NameUpdate{}
		target = st.NameUpdate
	case contractx.LeadKindSupportIssue:
		st.SupportIssue = &contractx.SupportIssue{}
		target = st.SupportIssue
	default:
		return nil, fmt.Errorf("%w: unknown lead kind %q", contractx.ErrValidation, in.Kind)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return st.reject(fmt.Errorf("%w: decode arguments: %v", contractx.ErrValidation, err)), nil
	}
	trimFields(st)
	if err := v.Struct(target); err != nil {
		return st.reject(fmt.Errorf("%w: %v", contractx.ErrValidation, err)), nil
	}
	return st, nil
}

func trimFields(st *GraphState) {
	switch {
	case st.NewLead != nil:
		l := st.NewLead
		l.Name = strings.TrimSpace(l.Name)
		l.Context = strings.TrimSpace(l.Context)
		l.Tone = strings.TrimSpace(l.Tone)
		l.Urgency = strings.TrimSpace(l.Urgency)
		l.Instruction = strings.TrimSpace(l.Instruction)
		st.Name = l.Name
	case st.NameUpdate != nil:
		st.NameUpdate.Name = strings.TrimSpace(st.NameUpdate.Name)
		st.Name = st.NameUpdate.Name
	case st.SupportIssue != nil:
		s := st.SupportIssue
		s.Name = strings.TrimSpace(s.Name)
		s.Problem = strings.TrimSpace(s.Problem)
		s.Stage = strings.TrimSpace(s.Stage)
		st.Name = s.Name
	}
}
