package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKey_OrderIndependent(t *testing.T) {
	k1 := ConversationKey("alice", "bob")
	k2 := ConversationKey("bob", "alice")
	assert.Equal(t, k1, k2)
	assert.Equal(t, "alice:bob", k1)
}

func TestSplitConversationKey_RoundTrip(t *testing.T) {
	key := ConversationKey("u2", "u1")
	a, b, err := SplitConversationKey(key)
	require.NoError(t, err)
	assert.Equal(t, "u1", a)
	assert.Equal(t, "u2", b)
}

func TestSplitConversationKey_Malformed(t *testing.T) {
	for _, key := range []string{"", "solo", ":right", "left:"} {
		_, _, err := SplitConversationKey(key)
		assert.ErrorIs(t, err, ErrBadConversationKey, "key %q", key)
	}
}
