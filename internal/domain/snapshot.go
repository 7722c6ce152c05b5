package domain

// BroadcastMedia is the denormalized media entry inside a snapshot.
type BroadcastMedia struct {
	FileURL string    `json:"file_url"`
	Kind    MediaKind `json:"media_type"`
}

// BroadcastReaction is the denormalized reaction entry inside a snapshot.
type BroadcastReaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// BroadcastMessage is one entry of a conversation snapshot as written to the
// broadcast store. Timestamps are canonical RFC3339Nano UTC strings. Media is
// null for text-only messages.
type BroadcastMessage struct {
	ID                string              `json:"id"`
	SenderID          string              `json:"sender_id"`
	ReceiverID        string              `json:"receiver_id"`
	Content           string              `json:"content"`
	IsRead            bool                `json:"is_read"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at,omitempty"`
	DeletedAt         string              `json:"deleted_at,omitempty"`
	TranslatedContent string              `json:"translated_content,omitempty"`
	TranslatedLang    string              `json:"translated_lang,omitempty"`
	ReplyToID         string              `json:"reply_to,omitempty"`
	ReplyPreview      string              `json:"reply_preview,omitempty"`
	Media             *BroadcastMedia     `json:"media"`
	Reactions         []BroadcastReaction `json:"reactions"`
}

// Snapshot is the full value at a broadcast path: every message of one
// conversation keyed by message id. It is a rebuildable projection of the
// durable store, never the system of record.
type Snapshot map[string]BroadcastMessage
