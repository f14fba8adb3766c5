package intakenode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// DerivePhone takes the phone key from the session carried by ctx. Without a
// session id the serialized session becomes the key, unless rejectAnonymous
// is set.
func DerivePhone(ctx context.Context, st *GraphState, rejectAnonymous bool) (*GraphState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if st.rejected() {
		return st, nil
	}

	session := contractx.SessionFrom(ctx)
	if session != nil {
		if id := strings.TrimSpace(session.SessionID()); id != "" {
			st.Phone = id
			return st, nil
		}
	}

	if rejectAnonymous {
		return st.reject(fmt.Errorf("%w: %w", contractx.ErrValidation, contractx.ErrAnonymousSession)), nil
	}

	key, err := anonymousKey(session)
	if err != nil {
		return st.reject(fmt.Errorf("%w: %v", contractx.ErrValidation, err)), nil
	}
	st.Phone = key
	st.Anonymous = true

	log.Ctx(ctx).Warn().
		Str("lead_kind", string(st.Kind)).
		Str("phone", key).
		Msg("session has no id, using serialized session as contact key")
	return st, nil
}

func anonymousKey(session contractx.Session) (string, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("serialize session: %w", err)
	}
	return string(raw), nil
}
