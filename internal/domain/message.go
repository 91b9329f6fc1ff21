package domain

import "time"

// ChatMessage is one message delivered by the chat-platform connector,
// either from the live stream or from a historical page.
type ChatMessage struct {
	ID         Cursor
	ChannelID  string
	AuthorID   string
	AuthorName string
	Text       string
	CreatedAt  time.Time
	Permalink  string

	// AuthorIsAgent marks messages authored by the ingestion agent itself.
	AuthorIsAgent bool
	// AddressesAgent marks administrative messages directed at the agent.
	AddressesAgent bool
}
