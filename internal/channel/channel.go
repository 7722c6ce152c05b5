// Package channel is the client-facing side of the broadcast path: it
// subscribes one conversation, turns opaque snapshots into typed sorted
// message lists and tracks connection health. It never writes to the path.
package channel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/domain"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Channel is a handle-based subscription to one conversation. Each caller
// owns its own Channel and is responsible for the unsubscribe function it
// receives; there is no shared listener registry.
type Channel struct {
	store broadcast.Store
	key   string
	log   *zap.SugaredLogger

	mu       sync.Mutex
	state    State
	messages []domain.BroadcastMessage
}

func New(store broadcast.Store, conversationKey string, log *zap.SugaredLogger) *Channel {
	return &Channel{
		store: store,
		key:   conversationKey,
		log:   log,
		state: StateConnecting,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Messages returns the current merged view.
func (c *Channel) Messages() []domain.BroadcastMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.BroadcastMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Subscribe opens the listener. onUpdate receives the merged, sorted message
// list on every snapshot; onError receives connectivity failures only,
// decode problems are absorbed here. The returned function releases the
// listener; after it returns no further callbacks fire.
func (c *Channel) Subscribe(ctx context.Context, onUpdate func([]domain.BroadcastMessage), onError func(error)) (func(), error) {
	c.setState(StateConnecting)

	sub, err := c.store.Subscribe(ctx, c.key)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, err
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	unsubscribe := func() {
		closeOnce.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		for raw := range sub.Updates() {
			incoming := DecodeSnapshot(raw, c.log)

			c.mu.Lock()
			c.messages = Merge(c.messages, incoming)
			c.state = StateConnected
			view := make([]domain.BroadcastMessage, len(c.messages))
			copy(view, c.messages)
			c.mu.Unlock()

			select {
			case <-done:
				return
			default:
			}
			onUpdate(view)
		}

		select {
		case <-done:
			// caller unsubscribed, silence is expected
			return
		default:
		}
		c.setState(StateDisconnected)
		if err := sub.Err(); err != nil && onError != nil {
			onError(err)
		}
	}()

	return unsubscribe, nil
}

// Offline records an explicit network-offline signal from the caller.
func (c *Channel) Offline() {
	c.setState(StateDisconnected)
}

// Reconnect probes connectivity once and reports the result. A successful
// probe does not re-open the listener; callers Subscribe again for that.
func (c *Channel) Reconnect(ctx context.Context) bool {
	if err := c.store.Ping(ctx); err != nil {
		c.setState(StateDisconnected)
		return false
	}
	return true
}
