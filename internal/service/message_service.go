package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/repository"
)

// Syncer is the sync engine surface the service depends on.
type Syncer interface {
	Request(conversationKey string)
}

// EventPublisher fans domain events out to other services.
type EventPublisher interface {
	PublishMessageCreated(conversationKey string, message any)
}

// SyncBus propagates sync triggers to peer instances.
type SyncBus interface {
	PublishSyncRequest(ctx context.Context, conversationKey string) error
}

// MessageService drives every user-facing mutation: write to the durable
// store first, then request a broadcast resync. The broadcast store is never
// consulted for business decisions.
type MessageService struct {
	repo   repository.Repository
	syncer Syncer
	events EventPublisher // optional
	bus    SyncBus        // optional
	log    *zap.SugaredLogger
}

func NewMessageService(repo repository.Repository, syncer Syncer, events EventPublisher, bus SyncBus, log *zap.SugaredLogger) *MessageService {
	return &MessageService{repo: repo, syncer: syncer, events: events, bus: bus, log: log}
}

func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content, replyToID string, media *domain.MediaInput) (string, error) {
	id, err := s.repo.CreateMessage(ctx, senderID, receiverID, content, replyToID, media)
	if err != nil {
		// an id alongside an error means the message row is durable and
		// only a secondary write failed; the send still counts and the
		// conversation still needs a resync
		if id == "" {
			return "", err
		}
		s.log.Warnw("send partially failed", "message", id, "err", err)
	}
	key := domain.ConversationKey(senderID, receiverID)
	s.triggerSync(ctx, key)
	if s.events != nil {
		s.events.PublishMessageCreated(key, map[string]string{
			"id":          id,
			"sender_id":   senderID,
			"receiver_id": receiverID,
		})
	}
	return id, nil
}

func (s *MessageService) List(ctx context.Context, userID, peerID string) ([]*domain.Message, error) {
	return s.repo.GetConversation(ctx, userID, peerID)
}

// MarkRead marks everything the peer sent to the user as read.
func (s *MessageService) MarkRead(ctx context.Context, userID, peerID string) error {
	if err := s.repo.MarkRead(ctx, peerID, userID); err != nil {
		return err
	}
	s.triggerSync(ctx, domain.ConversationKey(userID, peerID))
	return nil
}

func (s *MessageService) React(ctx context.Context, userID, peerID, messageID, emoji string) error {
	if err := s.repo.UpsertReaction(ctx, messageID, userID, emoji); err != nil {
		return err
	}
	s.triggerSync(ctx, domain.ConversationKey(userID, peerID))
	return nil
}

func (s *MessageService) Unsend(ctx context.Context, userID, peerID, messageID string) error {
	if err := s.repo.SoftDeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.triggerSync(ctx, domain.ConversationKey(userID, peerID))
	return nil
}

func (s *MessageService) DeleteConversation(ctx context.Context, userID, peerID string) error {
	if err := s.repo.SoftDeleteConversation(ctx, userID, peerID); err != nil {
		return err
	}
	s.triggerSync(ctx, domain.ConversationKey(userID, peerID))
	return nil
}

func (s *MessageService) Translate(ctx context.Context, userID, peerID, messageID, content, lang string) error {
	if err := s.repo.SetTranslation(ctx, messageID, content, lang); err != nil {
		return err
	}
	s.triggerSync(ctx, domain.ConversationKey(userID, peerID))
	return nil
}

func (s *MessageService) triggerSync(ctx context.Context, key string) {
	s.syncer.Request(key)
	if s.bus != nil {
		if err := s.bus.PublishSyncRequest(ctx, key); err != nil {
			s.log.Warnw("sync bus publish failed", "conversation", key, "err", err)
		}
	}
}
