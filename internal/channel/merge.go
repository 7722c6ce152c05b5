package channel

import "github.com/fathima-sithara/sync-service/internal/domain"

// Merge unions two message lists by id. On conflict the incoming copy wins
// (it reflects a newer snapshot). The result keeps ascending time order and
// the operation is idempotent: Merge(x, x) == x.
func Merge(existing, incoming []domain.BroadcastMessage) []domain.BroadcastMessage {
	byID := make(map[string]int, len(existing)+len(incoming))
	out := make([]domain.BroadcastMessage, 0, len(existing)+len(incoming))

	for _, m := range existing {
		byID[m.ID] = len(out)
		out = append(out, m)
	}
	for _, m := range incoming {
		if i, ok := byID[m.ID]; ok {
			out[i] = m
			continue
		}
		byID[m.ID] = len(out)
		out = append(out, m)
	}

	sortMessages(out)
	return out
}
