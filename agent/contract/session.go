package contract

import "context"

// Session is the only capability the intake pipeline needs from the agent
// runtime's session handle.
type Session interface {
	SessionID() string
}

// StaticSession is a Session whose id is fixed, e.g. a WhatsApp phone number.
type StaticSession string

func (s StaticSession) SessionID() string {
	return string(s)
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session carried by ctx, or nil.
func SessionFrom(ctx context.Context) Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
