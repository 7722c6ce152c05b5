// Package broadcast is the low-latency fan-out side of the system: a
// disposable snapshot per conversation plus a pub/sub channel that delivers
// every rewrite to subscribers. It is never the system of record.
package broadcast

import (
	"context"

	"github.com/fathima-sithara/sync-service/internal/domain"
)

// Store is the broadcast-path abstraction. Only the sync engine writes;
// live channels read and subscribe.
type Store interface {
	// ReadSnapshot returns the current snapshot for a conversation.
	// A never-written path yields an empty snapshot, not an error.
	ReadSnapshot(ctx context.Context, conversationKey string) (domain.Snapshot, error)
	// WriteSnapshot atomically replaces the path contents and fans the new
	// value out to subscribers.
	WriteSnapshot(ctx context.Context, conversationKey string, snap domain.Snapshot) error
	// Subscribe opens a listener on one conversation's path. The current
	// value (possibly empty) is delivered first, then every rewrite.
	Subscribe(ctx context.Context, conversationKey string) (Subscription, error)
	// Ping is a one-shot connectivity probe.
	Ping(ctx context.Context) error
}

// Subscription is a caller-owned handle; Close releases the listener and no
// further payloads are delivered after it returns.
type Subscription interface {
	// Updates yields raw snapshot payloads. The channel closes on Close or
	// on an unrecoverable listener error.
	Updates() <-chan []byte
	// Err reports why Updates closed, nil on clean Close.
	Err() error
	Close() error
}
