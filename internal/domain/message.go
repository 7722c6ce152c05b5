package domain

import (
	"errors"
	"time"
)

// Tombstone replaces the content of a soft-deleted message. Once written it is
// terminal: a deleted message is never restored.
const Tombstone = "message deleted"

var ErrSelfMessage = errors.New("sender and receiver must differ")

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVoice MediaKind = "voice"
)

func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVoice
}

// Message is the durable-store record for a single 1:1 message.
type Message struct {
	ID                string     `bson:"_id" json:"id"`
	SenderID          string     `bson:"sender_id" json:"sender_id"`
	ReceiverID        string     `bson:"receiver_id" json:"receiver_id"`
	Content           string     `bson:"content" json:"content"`
	IsRead            bool       `bson:"is_read" json:"is_read"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	TranslatedContent string     `bson:"translated_content,omitempty" json:"translated_content,omitempty"`
	TranslatedLang    string     `bson:"translated_lang,omitempty" json:"translated_lang,omitempty"`
	ReplyToID         string     `bson:"reply_to,omitempty" json:"reply_to,omitempty"`

	// Joined by the repository, not stored on the message document.
	Media     *MessageMedia     `bson:"-" json:"media,omitempty"`
	Reactions []MessageReaction `bson:"-" json:"reactions,omitempty"`
}

func (m *Message) Deleted() bool { return m.DeletedAt != nil }

// MessageMedia is the at-most-one attachment of a message.
type MessageMedia struct {
	MessageID  string    `bson:"message_id" json:"message_id"`
	UploaderID string    `bson:"uploader_id" json:"uploader_id"`
	FileURL    string    `bson:"file_url" json:"file_url"`
	Kind       MediaKind `bson:"media_type" json:"media_type"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// MessageReaction holds one emoji per (message, user) pair. A newer reaction
// from the same user replaces the previous one.
type MessageReaction struct {
	MessageID string    `bson:"message_id" json:"message_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// MediaInput carries an attachment into CreateMessage. Kind is explicit; it is
// never inferred from the URL.
type MediaInput struct {
	FileURL string
	Kind    MediaKind
}
