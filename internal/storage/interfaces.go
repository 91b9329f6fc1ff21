package storage

import (
	"context"
	"time"

	"ticker-scanner/internal/domain"
)

// MentionStore is the durable mention log plus the per-channel checkpoint
// map. Implementations must strictly serialize every mutation on one
// store instance: each mutation is a read-modify-write of the whole
// document, and two unserialized cycles lose updates. Reads may
// interleave with writes but never observe a partially written document.
type MentionStore interface {
	// AppendMentions appends records to the log, skipping any record whose
	// (MessageID, Ticker) key already exists. Persists only when at least
	// one record is new. Idempotent under retry. Returns the number of
	// records actually added.
	AppendMentions(ctx context.Context, records []*domain.MentionRecord) (int, error)

	// UpdateCheckpoint advances the channel's cursor to candidate if and
	// only if candidate exceeds the stored cursor; otherwise a no-op.
	// Returns true when the checkpoint advanced.
	UpdateCheckpoint(ctx context.Context, channelID string, candidate domain.Cursor, at time.Time) (bool, error)

	// Checkpoint returns the stored checkpoint for a channel.
	// Returns ErrNotFound when the channel has no checkpoint yet.
	Checkpoint(ctx context.Context, channelID string) (*domain.Checkpoint, error)

	// LoadAll returns the full mention log and every checkpoint.
	LoadAll(ctx context.Context) (*domain.Snapshot, error)
}

// MentionArchive is a write-behind analytics mirror of the mention log.
// It sits outside the serialized write path: archive failures never
// block or roll back the durable store.
type MentionArchive interface {
	// InsertBulk appends records to the archive. Duplicates are the
	// archive's problem; callers do not pre-deduplicate.
	InsertBulk(ctx context.Context, records []*domain.MentionRecord) error

	// GetByTicker returns archived mentions for a ticker, timestamp ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.MentionRecord, error)
}
