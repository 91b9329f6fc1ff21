package ingest

import (
	"sort"

	"ticker-scanner/internal/domain"
)

// SortMessages orders messages oldest-first by cursor. Backfill depends
// on this ordering to keep checkpoint advancement monotonic; history
// pages are sorted even when the source claims to order them already.
func SortMessages(msgs []*domain.ChatMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ID.Less(msgs[j].ID)
	})
}
