package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/logger"
)

type fakeSub struct {
	updates chan []byte
	err     error
	once    sync.Once
}

func (s *fakeSub) Updates() <-chan []byte { return s.updates }
func (s *fakeSub) Err() error             { return s.err }
func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.updates) })
	return nil
}

type fakeSubStore struct {
	sub     *fakeSub
	subErr  error
	pingErr error
}

func (s *fakeSubStore) ReadSnapshot(ctx context.Context, key string) (domain.Snapshot, error) {
	return domain.Snapshot{}, nil
}

func (s *fakeSubStore) WriteSnapshot(ctx context.Context, key string, snap domain.Snapshot) error {
	return nil
}

func (s *fakeSubStore) Subscribe(ctx context.Context, key string) (broadcast.Subscription, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	return s.sub, nil
}

func (s *fakeSubStore) Ping(ctx context.Context) error { return s.pingErr }

func TestChannel_DeliversDecodedSnapshots(t *testing.T) {
	sub := &fakeSub{updates: make(chan []byte, 4)}
	store := &fakeSubStore{sub: sub}
	ch := New(store, "alice:bob", logger.Nop())

	updates := make(chan []domain.BroadcastMessage, 4)
	unsub, err := ch.Subscribe(context.Background(),
		func(msgs []domain.BroadcastMessage) { updates <- msgs },
		nil,
	)
	require.NoError(t, err)
	defer unsub()

	sub.updates <- []byte(`{"m1":{"id":"m1","content":"hi","created_at":"2024-05-01T10:00:00Z"}}`)

	select {
	case msgs := <-updates:
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Content)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
	assert.Equal(t, StateConnected, ch.State())
}

func TestChannel_MergesAcrossSnapshots(t *testing.T) {
	sub := &fakeSub{updates: make(chan []byte, 4)}
	ch := New(&fakeSubStore{sub: sub}, "alice:bob", logger.Nop())

	updates := make(chan []domain.BroadcastMessage, 4)
	unsub, err := ch.Subscribe(context.Background(),
		func(msgs []domain.BroadcastMessage) { updates <- msgs },
		nil,
	)
	require.NoError(t, err)
	defer unsub()

	sub.updates <- []byte(`{"m1":{"id":"m1","content":"hi","created_at":"2024-05-01T10:00:00Z"}}`)
	<-updates
	sub.updates <- []byte(`{"m1":{"id":"m1","content":"hi","is_read":true,"created_at":"2024-05-01T10:00:00Z"},
		"m2":{"id":"m2","content":"yo","created_at":"2024-05-01T10:00:01Z"}}`)

	select {
	case msgs := <-updates:
		require.Len(t, msgs, 2)
		assert.True(t, msgs[0].IsRead)
		assert.Equal(t, "m2", msgs[1].ID)
	case <-time.After(time.Second):
		t.Fatal("no merged update delivered")
	}
}

func TestChannel_SubscribeFailureDisconnects(t *testing.T) {
	ch := New(&fakeSubStore{subErr: errors.New("down")}, "alice:bob", logger.Nop())
	_, err := ch.Subscribe(context.Background(), func([]domain.BroadcastMessage) {}, nil)
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestChannel_ListenerErrorForwarded(t *testing.T) {
	sub := &fakeSub{updates: make(chan []byte), err: errors.New("listener lost")}
	ch := New(&fakeSubStore{sub: sub}, "alice:bob", logger.Nop())

	errs := make(chan error, 1)
	_, err := ch.Subscribe(context.Background(),
		func([]domain.BroadcastMessage) {},
		func(e error) { errs <- e },
	)
	require.NoError(t, err)

	close(sub.updates)

	select {
	case e := <-errs:
		assert.Contains(t, e.Error(), "listener lost")
	case <-time.After(time.Second):
		t.Fatal("listener error not forwarded")
	}
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestChannel_UnsubscribeStopsDelivery(t *testing.T) {
	sub := &fakeSub{updates: make(chan []byte, 4)}
	ch := New(&fakeSubStore{sub: sub}, "alice:bob", logger.Nop())

	var mu sync.Mutex
	delivered := 0
	unsub, err := ch.Subscribe(context.Background(),
		func([]domain.BroadcastMessage) {
			mu.Lock()
			delivered++
			mu.Unlock()
		},
		func(error) { t.Error("unsubscribe must be silent") },
	)
	require.NoError(t, err)

	unsub()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, delivered)
	mu.Unlock()
}

func TestChannel_Reconnect(t *testing.T) {
	store := &fakeSubStore{pingErr: errors.New("offline")}
	ch := New(store, "alice:bob", logger.Nop())
	assert.False(t, ch.Reconnect(context.Background()))
	assert.Equal(t, StateDisconnected, ch.State())

	store.pingErr = nil
	assert.True(t, ch.Reconnect(context.Background()))
}

func TestChannel_OfflineSignal(t *testing.T) {
	ch := New(&fakeSubStore{}, "alice:bob", logger.Nop())
	ch.Offline()
	assert.Equal(t, StateDisconnected, ch.State())
}
