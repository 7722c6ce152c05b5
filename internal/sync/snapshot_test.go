package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/sync-service/internal/domain"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func msg(id string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:         id,
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi",
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestBuildSnapshot_TextOnlyMessageHasNullMedia(t *testing.T) {
	snap := BuildSnapshot([]*domain.Message{msg("m1", base)})
	require.Len(t, snap, 1)
	entry := snap["m1"]
	assert.Nil(t, entry.Media)
	assert.Equal(t, "2024-05-01T10:00:00Z", entry.CreatedAt)
	assert.Equal(t, []domain.BroadcastReaction{}, entry.Reactions)
}

func TestBuildSnapshot_AttachesMedia(t *testing.T) {
	m := msg("m1", base)
	m.Media = &domain.MessageMedia{MessageID: "m1", FileURL: "https://cdn/x.ogg", Kind: domain.MediaVoice}
	snap := BuildSnapshot([]*domain.Message{m})
	require.NotNil(t, snap["m1"].Media)
	assert.Equal(t, domain.MediaVoice, snap["m1"].Media.Kind)
}

func TestBuildSnapshot_KeepsNewestReactionPerUser(t *testing.T) {
	m := msg("m1", base)
	m.Reactions = []domain.MessageReaction{
		{MessageID: "m1", UserID: "bob", Emoji: "👍", CreatedAt: base},
		{MessageID: "m1", UserID: "bob", Emoji: "❤️", CreatedAt: base.Add(time.Minute)},
	}
	snap := BuildSnapshot([]*domain.Message{m})
	require.Len(t, snap["m1"].Reactions, 1)
	assert.Equal(t, "❤️", snap["m1"].Reactions[0].Emoji)
}

func TestBuildSnapshot_ReplyPreviewFromPresentTarget(t *testing.T) {
	m1 := msg("m1", base)
	m2 := msg("m2", base.Add(time.Second))
	m2.ReplyToID = "m1"
	snap := BuildSnapshot([]*domain.Message{m1, m2})
	assert.Equal(t, "hi", snap["m2"].ReplyPreview)
}

func TestBuildSnapshot_DeletedMessageCarriesTombstone(t *testing.T) {
	m := msg("m1", base)
	deletedAt := base.Add(time.Hour)
	m.Content = domain.Tombstone
	m.DeletedAt = &deletedAt
	snap := BuildSnapshot([]*domain.Message{m})
	assert.Equal(t, domain.Tombstone, snap["m1"].Content)
	assert.NotEmpty(t, snap["m1"].DeletedAt)
}

func TestSnapshotsEqual(t *testing.T) {
	a := BuildSnapshot([]*domain.Message{msg("m1", base), msg("m2", base.Add(time.Second))})
	b := BuildSnapshot([]*domain.Message{msg("m2", base.Add(time.Second)), msg("m1", base)})
	assert.True(t, SnapshotsEqual(a, b))

	changed := msg("m1", base)
	changed.IsRead = true
	c := BuildSnapshot([]*domain.Message{changed, msg("m2", base.Add(time.Second))})
	assert.False(t, SnapshotsEqual(a, c))
	assert.False(t, SnapshotsEqual(a, BuildSnapshot([]*domain.Message{msg("m1", base)})))
}
