package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fathima-sithara/sync-service/internal/apperr"
	"github.com/fathima-sithara/sync-service/internal/domain"
)

// Repository is the durable-store adapter for messages, media and reactions.
// It performs no retries; failures surface to the caller typed.
type Repository interface {
	CreateMessage(ctx context.Context, senderID, receiverID, content, replyToID string, media *domain.MediaInput) (string, error)
	GetConversation(ctx context.Context, userID1, userID2 string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) error
	SoftDeleteMessage(ctx context.Context, messageID string) error
	SoftDeleteConversation(ctx context.Context, userID1, userID2 string) error
	UpsertReaction(ctx context.Context, messageID, userID, emoji string) error
	SetTranslation(ctx context.Context, messageID, content, lang string) error
}

type MongoRepository struct {
	msgColl      *mongo.Collection
	mediaColl    *mongo.Collection
	reactionColl *mongo.Collection
	log          *zap.SugaredLogger
}

func NewMongoRepository(db *mongo.Database, log *zap.SugaredLogger) *MongoRepository {
	r := &MongoRepository{
		msgColl:      db.Collection("messages"),
		mediaColl:    db.Collection("message_media"),
		reactionColl: db.Collection("message_reactions"),
		log:          log,
	}
	ctx := context.Background()
	_, _ = r.msgColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	_, _ = r.mediaColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = r.reactionColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return r
}

// CreateMessage writes the message row and, when requested, its media row.
// The reply reference is weak: the referenced message is not required to
// exist. The media row is best-effort; the message stands on its own.
func (r *MongoRepository) CreateMessage(ctx context.Context, senderID, receiverID, content, replyToID string, media *domain.MediaInput) (string, error) {
	if senderID == receiverID {
		return "", fmt.Errorf("create message: %w: %w", apperr.ErrBadRequest, domain.ErrSelfMessage)
	}
	if media != nil && !media.Kind.Valid() {
		return "", fmt.Errorf("create message: %w: unknown media kind %q", apperr.ErrBadRequest, media.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	m := &domain.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
		ReplyToID:  replyToID,
	}
	if _, err := r.msgColl.InsertOne(ctx, m); err != nil {
		return "", classify("create message", err)
	}

	if media != nil {
		md := &domain.MessageMedia{
			MessageID:  m.ID,
			UploaderID: senderID,
			FileURL:    media.FileURL,
			Kind:       media.Kind,
			CreatedAt:  now,
		}
		// the message is already durable; failing the whole send here would
		// leave the caller retrying into a duplicate row
		if _, err := r.mediaColl.InsertOne(ctx, md); err != nil {
			r.log.Warnw("media row dropped", "message", m.ID, "err", classify("create message media", err))
		}
	}
	return m.ID, nil
}

func (r *MongoRepository) GetConversation(ctx context.Context, userID1, userID2 string) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var sent, received []*domain.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = r.findMessages(gctx, userID1, userID2)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = r.findMessages(gctx, userID2, userID1)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	msgs := append(sent, received...)
	if len(msgs) == 0 {
		return []*domain.Message{}, nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	var media []domain.MessageMedia
	var reactions []domain.MessageReaction
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		media, err = r.findMedia(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		reactions, err = r.findReactions(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mediaByMsg := make(map[string]*domain.MessageMedia, len(media))
	for i := range media {
		mediaByMsg[media[i].MessageID] = &media[i]
	}
	reactionsByMsg := make(map[string][]domain.MessageReaction)
	for _, rc := range reactions {
		reactionsByMsg[rc.MessageID] = append(reactionsByMsg[rc.MessageID], rc)
	}
	for _, m := range msgs {
		m.Media = mediaByMsg[m.ID]
		m.Reactions = reactionsByMsg[m.ID]
	}

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (r *MongoRepository) findMessages(ctx context.Context, senderID, receiverID string) ([]*domain.Message, error) {
	filter, err := Filter([]Condition{
		{Field: "sender_id", Op: OpEq, Value: senderID},
		{Field: "receiver_id", Op: OpEq, Value: receiverID},
	})
	if err != nil {
		return nil, err
	}
	cur, err := r.msgColl.Find(ctx, filter, FindOptions(&Sort{Field: "created_at"}, 0))
	if err != nil {
		return nil, classify("find messages", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var m domain.Message
		if err := cur.Decode(&m); err != nil {
			return nil, apperr.Decode("find messages", err)
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, classify("find messages", err)
	}
	return out, nil
}

func (r *MongoRepository) findMedia(ctx context.Context, messageIDs []string) ([]domain.MessageMedia, error) {
	filter, err := Filter([]Condition{{Field: "message_id", Op: OpIn, Value: messageIDs}})
	if err != nil {
		return nil, err
	}
	cur, err := r.mediaColl.Find(ctx, filter)
	if err != nil {
		return nil, classify("find media", err)
	}
	defer cur.Close(ctx)

	var out []domain.MessageMedia
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify("find media", err)
	}
	return out, nil
}

func (r *MongoRepository) findReactions(ctx context.Context, messageIDs []string) ([]domain.MessageReaction, error) {
	filter, err := Filter([]Condition{{Field: "message_id", Op: OpIn, Value: messageIDs}})
	if err != nil {
		return nil, err
	}
	cur, err := r.reactionColl.Find(ctx, filter)
	if err != nil {
		return nil, classify("find reactions", err)
	}
	defer cur.Close(ctx)

	var out []domain.MessageReaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify("find reactions", err)
	}
	return out, nil
}

// MarkRead flips is_read on everything unread from sender to receiver.
// Re-invoking with nothing unread matches zero documents and stays a no-op.
func (r *MongoRepository) MarkRead(ctx context.Context, senderID, receiverID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	filter, err := Filter([]Condition{
		{Field: "sender_id", Op: OpEq, Value: senderID},
		{Field: "receiver_id", Op: OpEq, Value: receiverID},
		{Field: "is_read", Op: OpEq, Value: false},
	})
	if err != nil {
		return err
	}
	_, err = r.msgColl.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"is_read": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return classify("mark read", err)
	}
	return nil
}

func (r *MongoRepository) SoftDeleteMessage(ctx context.Context, messageID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	// deleted_at nil in the filter keeps the tombstone terminal
	_, err := r.msgColl.UpdateOne(ctx,
		bson.M{"_id": messageID, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"content":    domain.Tombstone,
			"deleted_at": now,
			"updated_at": now,
		}},
	)
	if err != nil {
		return classify("soft delete message", err)
	}
	return nil
}

func (r *MongoRepository) SoftDeleteConversation(ctx context.Context, userID1, userID2 string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"deleted_at": nil,
		"$or": []bson.M{
			{"sender_id": userID1, "receiver_id": userID2},
			{"sender_id": userID2, "receiver_id": userID1},
		},
	}
	_, err := r.msgColl.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{
			"content":    domain.Tombstone,
			"deleted_at": now,
			"updated_at": now,
		},
	})
	if err != nil {
		return classify("soft delete conversation", err)
	}
	return nil
}

// UpsertReaction replaces any prior reaction from the same user on the same
// message; the unique (message_id, user_id) index backs the replace semantics.
func (r *MongoRepository) UpsertReaction(ctx context.Context, messageID, userID, emoji string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.reactionColl.UpdateOne(ctx,
		bson.M{"message_id": messageID, "user_id": userID},
		bson.M{"$set": bson.M{"emoji": emoji, "created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return classify("upsert reaction", err)
	}
	return nil
}

func (r *MongoRepository) SetTranslation(ctx context.Context, messageID, content, lang string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.msgColl.UpdateOne(ctx,
		bson.M{"_id": messageID, "deleted_at": nil},
		bson.M{"$set": bson.M{
			"translated_content": content,
			"translated_lang":    lang,
			"updated_at":         time.Now().UTC(),
		}},
	)
	if err != nil {
		return classify("set translation", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("set translation")
	}
	return nil
}

// classify maps driver errors onto the shared taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(op)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == 13 || cmdErr.Code == 18) {
		return apperr.Permission(op, err)
	}
	return apperr.Transient(op, err)
}
