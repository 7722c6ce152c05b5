package channel

import (
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/domain"
)

// ReplyPlaceholder stands in for a reply target that is no longer in the
// conversation.
const ReplyPlaceholder = "original message unavailable"

// wireMessage is a snapshot entry before timestamp normalization.
type wireMessage struct {
	ID                string                     `json:"id"`
	SenderID          string                     `json:"sender_id"`
	ReceiverID        string                     `json:"receiver_id"`
	Content           string                     `json:"content"`
	IsRead            bool                       `json:"is_read"`
	CreatedAt         json.RawMessage            `json:"created_at"`
	UpdatedAt         json.RawMessage            `json:"updated_at"`
	DeletedAt         json.RawMessage            `json:"deleted_at"`
	TranslatedContent string                     `json:"translated_content"`
	TranslatedLang    string                     `json:"translated_lang"`
	ReplyToID         string                     `json:"reply_to"`
	ReplyPreview      string                     `json:"reply_preview"`
	Media             *domain.BroadcastMedia     `json:"media"`
	Reactions         []domain.BroadcastReaction `json:"reactions"`
}

// DecodeSnapshot turns a raw broadcast payload into a sorted message list.
// An empty or never-written path decodes to an empty list. A record whose
// timestamp cannot be normalized is skipped, not fatal; a snapshot that is
// not valid JSON at all decodes to the empty list.
func DecodeSnapshot(raw []byte, log *zap.SugaredLogger) []domain.BroadcastMessage {
	if len(raw) == 0 {
		return []domain.BroadcastMessage{}
	}
	var wire map[string]wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		log.Warnw("snapshot decode failed, treating as empty", "err", err)
		return []domain.BroadcastMessage{}
	}

	out := make([]domain.BroadcastMessage, 0, len(wire))
	for id, w := range wire {
		if w.ID == "" {
			w.ID = id
		}
		created, err := NormalizeTimestamp(w.CreatedAt)
		if err != nil {
			log.Warnw("skipping snapshot record", "id", w.ID, "err", err)
			continue
		}
		m := domain.BroadcastMessage{
			ID:                w.ID,
			SenderID:          w.SenderID,
			ReceiverID:        w.ReceiverID,
			Content:           w.Content,
			IsRead:            w.IsRead,
			CreatedAt:         created,
			TranslatedContent: w.TranslatedContent,
			TranslatedLang:    w.TranslatedLang,
			ReplyToID:         w.ReplyToID,
			ReplyPreview:      w.ReplyPreview,
			Media:             w.Media,
			Reactions:         w.Reactions,
		}
		if m.Reactions == nil {
			m.Reactions = []domain.BroadcastReaction{}
		}
		if ts, err := NormalizeTimestamp(w.UpdatedAt); err == nil {
			m.UpdatedAt = ts
		}
		if ts, err := NormalizeTimestamp(w.DeletedAt); err == nil {
			m.DeletedAt = ts
		}
		out = append(out, m)
	}

	// a reply whose target left the snapshot renders with a neutral preview
	ids := make(map[string]struct{}, len(out))
	for _, m := range out {
		ids[m.ID] = struct{}{}
	}
	for i := range out {
		if out[i].ReplyToID != "" && out[i].ReplyPreview == "" {
			if _, ok := ids[out[i].ReplyToID]; !ok {
				out[i].ReplyPreview = ReplyPlaceholder
			}
		}
	}

	sortMessages(out)
	return out
}

func sortMessages(msgs []domain.BroadcastMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		ti, tj := parseCanonical(msgs[i].CreatedAt), parseCanonical(msgs[j].CreatedAt)
		if ti.Equal(tj) {
			return msgs[i].ID < msgs[j].ID
		}
		return ti.Before(tj)
	})
}
