package ingest

import (
	"context"
	"fmt"
	"log"

	"ticker-scanner/internal/chat"
	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/observability"
)

// CommandRouter intercepts messages addressed to the bot. Dispatch
// reports whether the message was handled as a command.
type CommandRouter interface {
	Dispatch(ctx context.Context, msg *domain.ChatMessage) (bool, error)
}

// LiveOptions contains configuration for creating a LiveRunner.
type LiveOptions struct {
	Stream    chat.Stream
	Processor *Processor

	// Channels restricts ingestion to the watched channel IDs. Empty
	// means every channel on the stream.
	Channels []string

	// Sink receives confirmation echoes; nil disables echoing.
	Sink chat.Sink

	// Commands routes bot-addressed messages to query handlers; nil
	// leaves them to the processor, which skips them.
	Commands CommandRouter

	Logger *log.Logger
}

// LiveRunner consumes the live message stream and funnels each watched
// message through the Processor. Unlike backfill it confirms logged
// tickers back into the channel when a sink is attached.
type LiveRunner struct {
	stream    chat.Stream
	processor *Processor
	channels  map[string]struct{}
	sink      chat.Sink
	commands  CommandRouter
	logger    *log.Logger
}

// NewLiveRunner creates a live ingestion runner.
func NewLiveRunner(opts LiveOptions) *LiveRunner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var channels map[string]struct{}
	if len(opts.Channels) > 0 {
		channels = make(map[string]struct{}, len(opts.Channels))
		for _, id := range opts.Channels {
			channels[id] = struct{}{}
		}
	}

	return &LiveRunner{
		stream:    opts.Stream,
		processor: opts.Processor,
		channels:  channels,
		sink:      opts.Sink,
		commands:  opts.Commands,
		logger:    logger,
	}
}

// Run processes live messages until the context is cancelled or the
// stream closes. A store failure on one message is logged and the
// message is skipped; the checkpoint stays behind it, so the next
// backfill run recovers the mention.
func (r *LiveRunner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-r.stream.Messages():
			if !ok {
				return fmt.Errorf("live stream closed")
			}
			if !r.watched(msg.ChannelID) {
				continue
			}

			if r.commands != nil && msg.AddressesAgent {
				handled, err := r.commands.Dispatch(ctx, msg)
				if err != nil {
					r.logger.Printf("live: command in message %s: %v", msg.ID, err)
				}
				if handled {
					continue
				}
			}

			extracted, added, err := r.processor.Process(ctx, msg)
			if err != nil {
				r.logger.Printf("live: message %s: %v", msg.ID, err)
				continue
			}
			observability.RecordMessageProcessed("live")

			if r.sink != nil && added > 0 {
				r.echo(ctx, msg.ChannelID, msg.AuthorName, extracted)
			}
		}
	}
}

func (r *LiveRunner) watched(channelID string) bool {
	if r.channels == nil {
		return true
	}
	_, ok := r.channels[channelID]
	return ok
}

// echo confirms each logged ticker back into the channel. Echo failures
// are log-only: the mention is already durable.
func (r *LiveRunner) echo(ctx context.Context, channelID, userName string, tickers []string) {
	for _, sym := range tickers {
		text := fmt.Sprintf("logged ticker: %s from user: %s", sym, userName)
		if err := r.sink.Post(ctx, channelID, text); err != nil {
			r.logger.Printf("live: echo %s to channel %s: %v", sym, channelID, err)
		}
	}
}
