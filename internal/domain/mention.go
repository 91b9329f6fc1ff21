package domain

import "time"

// MentionRecord is one validated ticker occurrence inside a chat message.
// Records are immutable once written and unique by (MessageID, Ticker).
type MentionRecord struct {
	Ticker    string    `json:"ticker"`
	MessageID string    `json:"messageId"`
	ChannelID string    `json:"channelId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Permalink string    `json:"link"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"content"`
}

// Key returns the dedup key for the record.
func (r *MentionRecord) Key() string {
	return r.MessageID + ":" + r.Ticker
}

// Checkpoint marks the last successfully processed message per channel.
// LastProcessed only ever advances under the cursor's total order.
type Checkpoint struct {
	ChannelID       string    `json:"channelId"`
	LastProcessed   Cursor    `json:"lastProcessedId"`
	LastProcessedAt time.Time `json:"lastProcessedAt"`
}

// Snapshot is the full durable state: the mention log plus all checkpoints.
type Snapshot struct {
	Mentions    []*MentionRecord
	Checkpoints map[string]*Checkpoint
}
