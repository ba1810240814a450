package bus

import (
	"context"

	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

// Bus moves live messages from the process that produced them to every process
// that may hold the learner's stream.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
