package domain

import (
	"errors"
	"strings"
)

const keySep = ":"

var ErrBadConversationKey = errors.New("malformed conversation key")

// ConversationKey derives the canonical key for the unordered pair of
// participants: the lower id first, joined by a colon. Both sides of a
// conversation derive the identical key.
func ConversationKey(userID1, userID2 string) string {
	if userID1 > userID2 {
		userID1, userID2 = userID2, userID1
	}
	return userID1 + keySep + userID2
}

// SplitConversationKey parses a key back into its two participant ids.
func SplitConversationKey(key string) (string, string, error) {
	parts := strings.SplitN(key, keySep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrBadConversationKey
	}
	return parts[0], parts[1], nil
}
