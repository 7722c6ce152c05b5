package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/apperr"
	"github.com/fathima-sithara/sync-service/internal/domain"
)

var errListenerClosed = errors.New("listener closed")

// RedisStore keeps each conversation snapshot at <prefix>:<conversationKey>
// and publishes the full payload on a channel of the same name.
type RedisStore struct {
	cli    *redis.Client
	prefix string
	log    *zap.SugaredLogger
}

func NewRedisStore(cli *redis.Client, prefix string, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{cli: cli, prefix: prefix, log: log}
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return cli, nil
}

func (s *RedisStore) path(conversationKey string) string {
	return s.prefix + ":" + conversationKey
}

func (s *RedisStore) ReadSnapshot(ctx context.Context, conversationKey string) (domain.Snapshot, error) {
	raw, err := s.cli.Get(ctx, s.path(conversationKey)).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return nil, apperr.Transient("broadcast read", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, apperr.Decode("broadcast read", err)
	}
	if snap == nil {
		snap = domain.Snapshot{}
	}
	return snap, nil
}

func (s *RedisStore) WriteSnapshot(ctx context.Context, conversationKey string, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return apperr.Decode("broadcast write", err)
	}
	path := s.path(conversationKey)
	pipe := s.cli.TxPipeline()
	pipe.Set(ctx, path, payload, 0)
	pipe.Publish(ctx, path, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Transient("broadcast write", err)
	}
	s.log.Debugw("snapshot published", "conversation", conversationKey, "bytes", len(payload))
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.cli.Ping(ctx).Err(); err != nil {
		return apperr.Transient("broadcast ping", err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, conversationKey string) (Subscription, error) {
	path := s.path(conversationKey)
	ps := s.cli.Subscribe(ctx, path)
	// confirm the subscription before reading the current value so no
	// rewrite can slip between the two
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, apperr.Transient("broadcast subscribe", err)
	}

	sub := &redisSubscription{
		ps:      ps,
		updates: make(chan []byte, 8),
		done:    make(chan struct{}),
	}

	initial, err := s.cli.Get(ctx, path).Bytes()
	if err == redis.Nil {
		initial = []byte("{}")
	} else if err != nil {
		_ = ps.Close()
		return nil, apperr.Transient("broadcast subscribe", err)
	}

	go sub.pump(initial)
	return sub, nil
}

type redisSubscription struct {
	ps      *redis.PubSub
	updates chan []byte
	done    chan struct{}
	closeMu sync.Once
	errMu   sync.Mutex
	err     error
}

func (s *redisSubscription) pump(initial []byte) {
	defer close(s.updates)

	select {
	case s.updates <- initial:
	case <-s.done:
		return
	}

	ch := s.ps.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				s.setErr(apperr.Transient("broadcast subscribe", errListenerClosed))
				return
			}
			select {
			case s.updates <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	select {
	case <-s.done:
		// closed by the caller, not a failure
	default:
		s.err = err
	}
}

func (s *redisSubscription) Updates() <-chan []byte { return s.updates }

func (s *redisSubscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *redisSubscription) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return s.ps.Close()
}
