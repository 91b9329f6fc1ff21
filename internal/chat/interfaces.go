// Package chat is the boundary to the chat-platform connector. The core
// only depends on the interfaces here; the REST and gateway clients are
// one concrete connector.
package chat

import (
	"context"
	"time"

	"ticker-scanner/internal/domain"
)

// HistorySource fetches historical messages for backfill.
type HistorySource interface {
	// FetchAfter returns up to limit messages strictly after the cursor,
	// oldest-first. An empty slice means history is exhausted.
	FetchAfter(ctx context.Context, channelID string, after domain.Cursor, limit int) ([]*domain.ChatMessage, error)
}

// Stream delivers live messages as they arrive.
type Stream interface {
	// Messages returns the live message channel. The channel is closed
	// when the stream shuts down.
	Messages() <-chan *domain.ChatMessage

	// Close tears the stream down and closes the message channel.
	Close() error
}

// Sink posts computed output back to a channel.
type Sink interface {
	Post(ctx context.Context, channelID, text string) error
}

// TimestampToCursor synthesizes a cursor from a wall-clock instant such
// that every message created at or after the instant orders after the
// synthesized cursor. Supplied by the platform connector; the core never
// assumes a particular bit layout.
type TimestampToCursor func(t time.Time) domain.Cursor
