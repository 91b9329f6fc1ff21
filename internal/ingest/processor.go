package ingest

import (
	"context"
	"fmt"
	"strings"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/observability"
	"ticker-scanner/internal/storage"
	"ticker-scanner/internal/ticker"
)

// Processor turns one chat message into mention records and advances the
// channel checkpoint. Both the backfill controller and the live runner
// funnel through here so the two paths cannot drift apart.
type Processor struct {
	store    storage.MentionStore
	archive  storage.MentionArchive // optional write-behind mirror
	universe *ticker.Universe
}

// NewProcessor creates a message processor. The universe is owned by the
// composition root and passed in explicitly.
func NewProcessor(store storage.MentionStore, universe *ticker.Universe) *Processor {
	return &Processor{store: store, universe: universe}
}

// WithArchive attaches an optional analytics mirror. The mirror is
// best-effort: archive failures never fail the durable store path.
func (p *Processor) WithArchive(archive storage.MentionArchive) *Processor {
	p.archive = archive
	return p
}

// Process extracts tickers from the message, appends mention records, and
// advances the checkpoint. Messages authored by the agent or addressed to
// it are excluded from extraction but still advance the checkpoint, as do
// empty messages. A store failure returns before the checkpoint update so
// the cursor never passes an unrecorded mention.
//
// Returns the extracted tickers (for confirmation echoes) and the number
// of records actually added.
func (p *Processor) Process(ctx context.Context, msg *domain.ChatMessage) (extracted []string, added int, err error) {
	text := strings.TrimSpace(msg.Text)
	skip := msg.AuthorIsAgent || msg.AddressesAgent || text == ""

	if !skip {
		extracted = ticker.Extract(text, p.universe)
	}

	if len(extracted) > 0 {
		records := make([]*domain.MentionRecord, len(extracted))
		for i, sym := range extracted {
			records[i] = &domain.MentionRecord{
				Ticker:    sym,
				MessageID: string(msg.ID),
				ChannelID: msg.ChannelID,
				UserID:    msg.AuthorID,
				UserName:  msg.AuthorName,
				Permalink: msg.Permalink,
				Timestamp: msg.CreatedAt,
				Text:      msg.Text,
			}
		}

		added, err = p.store.AppendMentions(ctx, records)
		if err != nil {
			observability.RecordProcessingError("append")
			return extracted, 0, fmt.Errorf("append mentions for message %s: %w", msg.ID, err)
		}
		observability.RecordMentions(len(extracted), added)

		if p.archive != nil && added > 0 {
			// Best-effort mirror; never blocks the durable path.
			if archErr := p.archive.InsertBulk(ctx, records); archErr != nil {
				observability.RecordProcessingError("archive")
			}
		}
	}

	advanced, err := p.store.UpdateCheckpoint(ctx, msg.ChannelID, msg.ID, msg.CreatedAt)
	if err != nil {
		observability.RecordProcessingError("checkpoint")
		return extracted, added, fmt.Errorf("update checkpoint for channel %s: %w", msg.ChannelID, err)
	}
	if advanced {
		observability.RecordCheckpointAdvance()
	}
	observability.MarkIngestionSuccess(msg.CreatedAt.Unix())
	return extracted, added, nil
}
