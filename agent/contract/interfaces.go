package contract

import "context"

type ChannelResolver interface {
	Resolve(ctx context.Context, meta ChannelMetadata) ChannelIdentity
}

type Dispatcher interface {
	Dispatch(ctx context.Context, h Handoff) Result
}

// Notifier reaches the human agent directly (queue, chat, etc).
type Notifier interface {
	Notify(ctx context.Context, h Handoff) error
}

// Claimer records that a handoff event was already delivered.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
