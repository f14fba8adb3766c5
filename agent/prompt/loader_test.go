package prompt

import (
	"strings"
	"testing"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

func TestPromptsNameTheirTools(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	tests := []struct {
		agent contractx.AgentType
		tools []string
	}{
		{agent: contractx.AgentTypeOrchestrator, tools: []string{"register_lead", "register_name_lead", "error_lead"}},
		{agent: contractx.AgentTypeSales, tools: []string{"register_lead", "register_name_lead"}},
		{agent: contractx.AgentTypeSupport, tools: []string{"error_lead"}},
	}

	for _, tt := range tests {
		p := set.For(tt.agent)
		if p == "" || p != strings.TrimSpace(p) {
			t.Fatalf("agent=%s prompt is empty or untrimmed", tt.agent)
		}
		for _, name := range tt.tools {
			if !strings.Contains(p, name) {
				t.Fatalf("agent=%s prompt does not mention %s", tt.agent, name)
			}
		}
	}
}
