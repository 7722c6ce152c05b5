// Package sync keeps the broadcast path of every active conversation
// eventually consistent with the durable store: full-snapshot replace,
// debounce-coalesced per conversation, bounded backoff on failure.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/apperr"
	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/metrics"
)

// ConversationReader is the slice of the repository the engine needs.
type ConversationReader interface {
	GetConversation(ctx context.Context, userID1, userID2 string) ([]*domain.Message, error)
}

type Options struct {
	// Debounce is how long a queued request waits for coalescing siblings.
	Debounce time.Duration
	// BaseBackoff doubles per failed attempt.
	BaseBackoff time.Duration
	// MaxAttempts bounds retries; afterwards the entry is dropped and the
	// last good snapshot stays visible.
	MaxAttempts int
	// ResyncInterval re-requests every tracked conversation as a
	// consistency backstop. Zero disables it.
	ResyncInterval time.Duration
	// OnDrop observes conversations dropped after exhausting retries.
	OnDrop func(conversationKey string, err error)
}

type entryState int

const (
	stateQueued entryState = iota
	stateSyncing
)

type entry struct {
	state    entryState
	attempts int
	dirty    bool
	timer    *time.Timer
}

type Engine struct {
	repo  ConversationReader
	store broadcast.Store
	log   *zap.SugaredLogger
	opts  Options

	mu      sync.Mutex
	closed  bool
	entries map[string]*entry
	tracked map[string]struct{}
	wg      sync.WaitGroup
}

func NewEngine(repo ConversationReader, store broadcast.Store, log *zap.SugaredLogger, opts Options) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = 3 * time.Second
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Engine{
		repo:    repo,
		store:   store,
		log:     log,
		opts:    opts,
		entries: make(map[string]*entry),
		tracked: make(map[string]struct{}),
	}
}

// Request asks for a sync of one conversation. Requests for a key that is
// already queued coalesce into the pending run; requests arriving while a
// sync for the key is in flight queue behind it instead of racing it.
func (e *Engine) Request(conversationKey string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.tracked[conversationKey] = struct{}{}

	if ent, ok := e.entries[conversationKey]; ok {
		if ent.state == stateSyncing {
			ent.dirty = true
		}
		return
	}
	e.enqueueLocked(conversationKey, e.opts.Debounce, 0)
}

// enqueueLocked arms the per-key timer; e.mu must be held.
func (e *Engine) enqueueLocked(key string, delay time.Duration, attempts int) {
	ent := &entry{state: stateQueued, attempts: attempts}
	ent.timer = time.AfterFunc(delay, func() { e.run(key) })
	e.entries[key] = ent
}

func (e *Engine) run(key string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	ent, ok := e.entries[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	ent.state = stateSyncing
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	start := time.Now()
	err := e.SyncConversation(context.Background(), key)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if err == nil {
		if ent.dirty {
			e.enqueueLocked(key, e.opts.Debounce, 0)
		} else {
			delete(e.entries, key)
		}
		return
	}

	if !apperr.Retryable(err) || ent.attempts+1 >= e.opts.MaxAttempts {
		delete(e.entries, key)
		metrics.SyncFailures.Inc()
		e.log.Errorw("sync dropped", "conversation", key, "attempts", ent.attempts+1, "err", err)
		if e.opts.OnDrop != nil {
			go e.opts.OnDrop(key, err)
		}
		return
	}

	backoff := e.opts.BaseBackoff << ent.attempts
	e.log.Warnw("sync retry", "conversation", key, "attempt", ent.attempts+1, "backoff", backoff, "err", err)
	e.enqueueLocked(key, backoff, ent.attempts+1)
}

// SyncConversation re-derives one conversation from the durable store and
// replaces the broadcast snapshot, skipping the write when nothing changed.
func (e *Engine) SyncConversation(ctx context.Context, conversationKey string) error {
	metrics.SyncRuns.Inc()

	u1, u2, err := domain.SplitConversationKey(conversationKey)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrBadRequest, err)
	}

	msgs, err := e.repo.GetConversation(ctx, u1, u2)
	if err != nil {
		return err
	}
	target := BuildSnapshot(msgs)

	current, err := e.store.ReadSnapshot(ctx, conversationKey)
	switch {
	case apperr.IsDecode(err):
		// corrupt cache value: rebuild unconditionally
		current = nil
	case err != nil:
		return err
	}

	if current != nil && SnapshotsEqual(current, target) {
		metrics.SyncSkipped.Inc()
		return nil
	}

	if err := e.store.WriteSnapshot(ctx, conversationKey, target); err != nil {
		return err
	}
	metrics.BroadcastWrites.Inc()
	return nil
}

// Run drives the periodic resync backstop until ctx is done. It returns
// immediately when the backstop is disabled.
func (e *Engine) Run(ctx context.Context) {
	if e.opts.ResyncInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(e.opts.ResyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			keys := make([]string, 0, len(e.tracked))
			for k := range e.tracked {
				keys = append(keys, k)
			}
			e.mu.Unlock()
			for _, k := range keys {
				e.Request(k)
			}
		}
	}
}

// Close stops accepting requests and waits for in-flight syncs.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	for key, ent := range e.entries {
		if ent.timer != nil {
			ent.timer.Stop()
		}
		delete(e.entries, key)
	}
	e.mu.Unlock()
	e.wg.Wait()
}
