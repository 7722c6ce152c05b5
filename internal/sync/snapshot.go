package sync

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/fathima-sithara/sync-service/internal/domain"
)

// canonical renders a timestamp in the single form the wire format carries.
func canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// BuildSnapshot denormalizes a conversation's messages into the broadcast
// wire form. Reactions are reduced to one per (message, user), keeping the
// newest, and ordered by user id so equal states marshal identically.
func BuildSnapshot(msgs []*domain.Message) domain.Snapshot {
	snap := make(domain.Snapshot, len(msgs))
	byID := make(map[string]*domain.Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}

	for _, m := range msgs {
		entry := domain.BroadcastMessage{
			ID:                m.ID,
			SenderID:          m.SenderID,
			ReceiverID:        m.ReceiverID,
			Content:           m.Content,
			IsRead:            m.IsRead,
			CreatedAt:         canonical(m.CreatedAt),
			TranslatedContent: m.TranslatedContent,
			TranslatedLang:    m.TranslatedLang,
			ReplyToID:         m.ReplyToID,
			Reactions:         reduceReactions(m.Reactions),
		}
		if !m.UpdatedAt.IsZero() && !m.UpdatedAt.Equal(m.CreatedAt) {
			entry.UpdatedAt = canonical(m.UpdatedAt)
		}
		if m.DeletedAt != nil {
			entry.DeletedAt = canonical(*m.DeletedAt)
		}
		if m.Media != nil {
			entry.Media = &domain.BroadcastMedia{FileURL: m.Media.FileURL, Kind: m.Media.Kind}
		}
		if m.ReplyToID != "" {
			if ref, ok := byID[m.ReplyToID]; ok {
				entry.ReplyPreview = ref.Content
			}
		}
		snap[m.ID] = entry
	}
	return snap
}

func reduceReactions(in []domain.MessageReaction) []domain.BroadcastReaction {
	latest := make(map[string]domain.MessageReaction, len(in))
	for _, r := range in {
		if prev, ok := latest[r.UserID]; ok && prev.CreatedAt.After(r.CreatedAt) {
			continue
		}
		latest[r.UserID] = r
	}
	out := make([]domain.BroadcastReaction, 0, len(latest))
	for _, r := range latest {
		out = append(out, domain.BroadcastReaction{UserID: r.UserID, Emoji: r.Emoji})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// SnapshotsEqual compares two snapshots structurally via their canonical
// JSON encodings (map keys marshal sorted, so encodings are deterministic).
func SnapshotsEqual(a, b domain.Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
