package cache

import "context"

// MessageCache remembers inbound provider message ids so duplicate webhook
// deliveries of the same message can be dropped. Best effort: a cache error
// is treated as "not seen".
type MessageCache interface {
	SeenMessage(ctx context.Context, messageID string) (bool, error)
}
