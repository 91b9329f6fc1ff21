package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ticker-scanner/internal/chat"
	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/observability"
	"ticker-scanner/internal/storage"
)

// State is the backfill controller's lifecycle position. A fresh process
// always starts over at NotStarted; Live is terminal for the process.
type State int32

const (
	StateNotStarted State = iota
	StateCatchingUp
	StateLive
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateCatchingUp:
		return "catching-up"
	case StateLive:
		return "live"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Default backfill configuration.
const (
	DefaultLookback    = 14 * 24 * time.Hour
	DefaultPageSize    = 100
	DefaultPageRetries = 2
	DefaultRetryDelay  = 2 * time.Second
	DefaultMaxItems    = 10000
)

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	History   chat.HistorySource
	Store     storage.MentionStore
	Processor *Processor

	// ToCursor synthesizes a starting cursor when a channel has no
	// checkpoint yet.
	ToCursor chat.TimestampToCursor

	// Lookback bounds how far a checkpoint-less channel reaches back.
	Lookback time.Duration
	// PageSize is the history page size.
	PageSize int
	// PageRetries bounds retries of one failing page fetch.
	PageRetries int
	// RetryDelay is the pause between page retries.
	RetryDelay time.Duration
	// MaxItems caps items replayed per channel per run; 0 means
	// unbounded.
	MaxItems int

	Logger *log.Logger
}

// BackfillResult contains statistics from one catch-up run.
type BackfillResult struct {
	Channels        int
	ChannelsAborted int
	PagesFetched    int
	ItemsProcessed  int
	MentionsAdded   int
	Duration        time.Duration
}

// Backfiller replays missed history through the Processor, then hands
// off to live ingestion. Channels catch up concurrently; pagination
// within one channel is strictly sequential because each page's cursor
// depends on the one before it.
type Backfiller struct {
	history   chat.HistorySource
	store     storage.MentionStore
	processor *Processor
	toCursor  chat.TimestampToCursor

	lookback    time.Duration
	pageSize    int
	pageRetries int
	retryDelay  time.Duration
	maxItems    int

	logger *log.Logger
	state  atomic.Int32
}

// NewBackfiller creates a backfill controller in StateNotStarted.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	lookback := opts.Lookback
	if lookback == 0 {
		lookback = DefaultLookback
	}
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	pageRetries := opts.PageRetries
	if pageRetries == 0 {
		pageRetries = DefaultPageRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	toCursor := opts.ToCursor
	if toCursor == nil {
		toCursor = chat.SnowflakeFromTime
	}

	return &Backfiller{
		history:     opts.History,
		store:       opts.Store,
		processor:   opts.Processor,
		toCursor:    toCursor,
		lookback:    lookback,
		pageSize:    pageSize,
		pageRetries: pageRetries,
		retryDelay:  retryDelay,
		maxItems:    opts.MaxItems,
		logger:      logger,
	}
}

// State returns the controller's current state.
func (b *Backfiller) State() State {
	return State(b.state.Load())
}

// Run catches up every channel and transitions to StateLive. A channel
// whose history fetch keeps failing is aborted for this run but does not
// block the transition: live ingestion must never wait forever on
// catch-up (fail-open). Only context cancellation stops the run short of
// Live; each processed item commits atomically, so cancelling between
// items never corrupts the store.
func (b *Backfiller) Run(ctx context.Context, channels []string) (*BackfillResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	result := &BackfillResult{Channels: len(channels)}

	b.state.Store(int32(StateCatchingUp))
	b.logger.Printf("backfill %s: catching up %d channel(s)", runID, len(channels))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, channelID := range channels {
		wg.Add(1)
		go func(channelID string) {
			defer wg.Done()

			chStart := time.Now()
			pages, items, added, err := b.catchUpChannel(ctx, channelID)

			mu.Lock()
			result.PagesFetched += pages
			result.ItemsProcessed += items
			result.MentionsAdded += added
			if err != nil {
				result.ChannelsAborted++
			}
			mu.Unlock()

			if err != nil {
				observability.RecordBackfillRun("aborted", time.Since(chStart).Seconds())
				b.logger.Printf("backfill %s: channel %s aborted after %d item(s): %v", runID, channelID, items, err)
				return
			}
			observability.RecordBackfillRun("complete", time.Since(chStart).Seconds())
			b.logger.Printf("backfill %s: channel %s complete: %d page(s), %d item(s), %d mention(s)",
				runID, channelID, pages, items, added)
		}(channelID)
	}
	wg.Wait()

	result.Duration = time.Since(start)
	if ctx.Err() != nil {
		// Crash-equivalent: the next run resumes from the committed
		// checkpoints.
		return result, ctx.Err()
	}

	b.state.Store(int32(StateLive))
	b.logger.Printf("backfill %s: live after %v (%d item(s), %d aborted channel(s))",
		runID, result.Duration, result.ItemsProcessed, result.ChannelsAborted)
	return result, nil
}

// catchUpChannel replays one channel's history oldest-first from its
// resume cursor.
func (b *Backfiller) catchUpChannel(ctx context.Context, channelID string) (pages, items, added int, err error) {
	cursor, err := b.startCursor(ctx, channelID)
	if err != nil {
		return 0, 0, 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return pages, items, added, err
		}

		page, err := b.fetchPage(ctx, channelID, cursor)
		if err != nil {
			return pages, items, added, fmt.Errorf("fetch page after %s: %w", cursor, err)
		}
		pages++
		observability.RecordBackfillPage()

		if len(page) == 0 {
			return pages, items, added, nil
		}

		SortMessages(page)
		for _, msg := range page {
			if err := ctx.Err(); err != nil {
				return pages, items, added, err
			}

			_, n, err := b.processor.Process(ctx, msg)
			if err != nil {
				// Persistence failure: stop here so the checkpoint
				// never passes an unrecorded mention.
				return pages, items, added, err
			}
			observability.RecordMessageProcessed("backfill")
			added += n
			items++
			cursor = msg.ID

			if b.maxItems > 0 && items >= b.maxItems {
				b.logger.Printf("channel %s: replay cap of %d item(s) reached, deferring the rest to the next run", channelID, b.maxItems)
				return pages, items, added, nil
			}
		}
	}
}

// startCursor resumes from the stored checkpoint, or synthesizes a
// cursor at now minus the lookback window when none exists.
func (b *Backfiller) startCursor(ctx context.Context, channelID string) (domain.Cursor, error) {
	cp, err := b.store.Checkpoint(ctx, channelID)
	switch {
	case err == nil:
		return cp.LastProcessed, nil
	case errors.Is(err, storage.ErrNotFound):
		return b.toCursor(time.Now().Add(-b.lookback)), nil
	default:
		return "", fmt.Errorf("load checkpoint for channel %s: %w", channelID, err)
	}
}

// fetchPage fetches one history page with bounded retries.
func (b *Backfiller) fetchPage(ctx context.Context, channelID string, after domain.Cursor) ([]*domain.ChatMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= b.pageRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}

		fetchStart := time.Now()
		page, err := b.history.FetchAfter(ctx, channelID, after, b.pageSize)
		observability.DefaultMetrics.HistoryFetchLatency.Observe(time.Since(fetchStart).Seconds())
		if err == nil {
			return page, nil
		}
		lastErr = err
		observability.RecordProcessingError("history-fetch")
	}
	return nil, fmt.Errorf("after %d attempt(s): %w", b.pageRetries+1, lastErr)
}
