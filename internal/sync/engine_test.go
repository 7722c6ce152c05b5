package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/sync-service/internal/apperr"
	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/logger"
)

type fakeRepo struct {
	mu    sync.Mutex
	msgs  []*domain.Message
	calls int
	gate  chan struct{} // when set, GetConversation blocks until it closes
}

func (f *fakeRepo) GetConversation(ctx context.Context, u1, u2 string) ([]*domain.Message, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	msgs := f.msgs
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return msgs, nil
}

func (f *fakeRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu         sync.Mutex
	snaps      map[string]domain.Snapshot
	writes     int
	failWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: map[string]domain.Snapshot{}}
}

func (s *fakeStore) ReadSnapshot(ctx context.Context, key string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snaps[key]; ok {
		return snap, nil
	}
	return domain.Snapshot{}, nil
}

func (s *fakeStore) WriteSnapshot(ctx context.Context, key string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return apperr.Transient("broadcast write", errors.New("boom"))
	}
	s.writes++
	s.snaps[key] = snap
	return nil
}

func (s *fakeStore) Subscribe(ctx context.Context, key string) (broadcast.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func testMessages() []*domain.Message {
	return []*domain.Message{{
		ID:         "m1",
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi",
		CreatedAt:  base,
		UpdatedAt:  base,
	}}
}

func TestSyncConversation_WritesSnapshot(t *testing.T) {
	repo := &fakeRepo{msgs: testMessages()}
	store := newFakeStore()
	e := NewEngine(repo, store, logger.Nop(), Options{})
	defer e.Close()

	key := domain.ConversationKey("alice", "bob")
	require.NoError(t, e.SyncConversation(context.Background(), key))

	snap, err := store.ReadSnapshot(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Nil(t, snap["m1"].Media)
}

func TestSyncConversation_SecondRunSkipsWrite(t *testing.T) {
	repo := &fakeRepo{msgs: testMessages()}
	store := newFakeStore()
	e := NewEngine(repo, store, logger.Nop(), Options{})
	defer e.Close()

	key := domain.ConversationKey("alice", "bob")
	require.NoError(t, e.SyncConversation(context.Background(), key))
	require.NoError(t, e.SyncConversation(context.Background(), key))
	assert.Equal(t, 1, store.writeCount())
}

func TestSyncConversation_RejectsBadKey(t *testing.T) {
	e := NewEngine(&fakeRepo{}, newFakeStore(), logger.Nop(), Options{})
	defer e.Close()
	err := e.SyncConversation(context.Background(), "nokey")
	assert.ErrorIs(t, err, domain.ErrBadConversationKey)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.False(t, apperr.Retryable(err))
}

func TestRequest_BadKeyDropsWithoutRetry(t *testing.T) {
	repo := &fakeRepo{}
	dropped := make(chan error, 1)
	e := NewEngine(repo, newFakeStore(), logger.Nop(), Options{
		Debounce:    time.Millisecond,
		BaseBackoff: time.Millisecond,
		MaxAttempts: 5,
		OnDrop: func(key string, err error) {
			dropped <- err
		},
	})
	defer e.Close()

	e.Request("nokey")

	select {
	case err := <-dropped:
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	case <-time.After(2 * time.Second):
		t.Fatal("expected immediate drop for malformed key")
	}
	// the key never parses, so the repository is never consulted and no
	// backoff attempts are burned
	assert.Equal(t, 0, repo.callCount())
}

func TestRequest_CoalescesWithinDebounce(t *testing.T) {
	repo := &fakeRepo{msgs: testMessages()}
	store := newFakeStore()
	e := NewEngine(repo, store, logger.Nop(), Options{Debounce: 20 * time.Millisecond})
	defer e.Close()

	key := domain.ConversationKey("alice", "bob")
	for i := 0; i < 5; i++ {
		e.Request(key)
	}

	require.Eventually(t, func() bool { return repo.callCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, repo.callCount())
	assert.Equal(t, 1, store.writeCount())
}

func TestRequest_DifferentKeysRunIndependently(t *testing.T) {
	repo := &fakeRepo{}
	store := newFakeStore()
	e := NewEngine(repo, store, logger.Nop(), Options{Debounce: 5 * time.Millisecond})
	defer e.Close()

	e.Request(domain.ConversationKey("alice", "bob"))
	e.Request(domain.ConversationKey("carol", "dave"))

	require.Eventually(t, func() bool { return repo.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRequest_QueuesBehindInflightSync(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{msgs: testMessages(), gate: gate}
	store := newFakeStore()
	e := NewEngine(repo, store, logger.Nop(), Options{Debounce: 5 * time.Millisecond})
	defer e.Close()

	key := domain.ConversationKey("alice", "bob")
	e.Request(key)
	require.Eventually(t, func() bool { return repo.callCount() == 1 }, time.Second, time.Millisecond)

	// arrives mid-sync: must queue behind, not race
	e.Request(key)
	repo.mu.Lock()
	repo.gate = nil
	repo.mu.Unlock()
	close(gate)

	require.Eventually(t, func() bool { return repo.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRequest_DropsAfterRetryCeiling(t *testing.T) {
	repo := &fakeRepo{msgs: testMessages()}
	store := newFakeStore()
	store.failWrites = 10

	dropped := make(chan error, 1)
	e := NewEngine(repo, store, logger.Nop(), Options{
		Debounce:    time.Millisecond,
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
		OnDrop: func(key string, err error) {
			dropped <- err
		},
	})
	defer e.Close()

	e.Request(domain.ConversationKey("alice", "bob"))

	select {
	case err := <-dropped:
		assert.True(t, apperr.IsTransient(err))
	case <-time.After(2 * time.Second):
		t.Fatal("expected drop after retry ceiling")
	}
	assert.Equal(t, 3, repo.callCount())
	assert.Equal(t, 0, store.writeCount())
}
