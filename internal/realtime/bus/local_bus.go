package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

// localBus hands messages straight to the forwarder in the same process. Used when
// the API and the workers share a process and no Redis is configured.
type localBus struct {
	mu    sync.RWMutex
	onMsg func(m realtime.Message)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.RLock()
	fn := b.onMsg
	b.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.onMsg = nil
		b.mu.Unlock()
	}()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.onMsg = nil
	b.mu.Unlock()
	return nil
}
