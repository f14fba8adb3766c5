package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

type fakeHandler struct {
	kinds []contractx.LeadKind
	args  []string
}

func (f *fakeHandler) Handle(ctx context.Context, kind contractx.LeadKind, arguments string) contractx.ToolOutcome {
	f.kinds = append(f.kinds, kind)
	f.args = append(f.args, arguments)
	return contractx.ToolOutcome{Status: contractx.ToolStatusSuccess, Message: "ok"}
}

func TestDirectResponder(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	respond := directResponder(h)

	out, err := respond(context.Background(), `error_lead {"nome":"Joao","problema":"sem acesso","etapa":"login"}`)
	if err != nil {
		t.Fatalf("respond() error = %v", err)
	}
	if out != `{"status":"success","message":"ok"}` {
		t.Fatalf("respond() = %s", out)
	}
	if h.kinds[0] != contractx.LeadKindSupportIssue || !strings.HasPrefix(h.args[0], `{"nome"`) {
		t.Fatalf("unexpected call: %v %v", h.kinds, h.args)
	}

	if _, err := respond(context.Background(), "math.evaluate 1+1"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("respond() error = %v, want ErrValidation", err)
	}
}

func TestLoopAnswersEachLine(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("register_name_lead {\"nome\":\"Joao\"}\n\nunknown\n")
	var out bytes.Buffer

	if err := loop(context.Background(), in, &out, directResponder(&fakeHandler{})); err != nil {
		t.Fatalf("loop() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, `{"status":"success","message":"ok"}`) {
		t.Fatalf("missing tool outcome in %q", got)
	}
	if !strings.Contains(got, "Desculpe, tive um problema agora. Pode repetir?") {
		t.Fatalf("missing fallback reply in %q", got)
	}
}
