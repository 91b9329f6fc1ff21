package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage/memory"
)

// fakeStream replays a fixed set of messages, then closes.
type fakeStream struct {
	ch chan *domain.ChatMessage
}

func newFakeStream(msgs ...*domain.ChatMessage) *fakeStream {
	s := &fakeStream{ch: make(chan *domain.ChatMessage, len(msgs))}
	for _, m := range msgs {
		s.ch <- m
	}
	close(s.ch)
	return s
}

func (s *fakeStream) Messages() <-chan *domain.ChatMessage { return s.ch }
func (s *fakeStream) Close() error                         { return nil }

// recordingSink captures posted messages.
type recordingSink struct {
	mu    sync.Mutex
	posts []string
}

func (s *recordingSink) Post(_ context.Context, channelID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, channelID+": "+text)
	return nil
}

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.posts...)
}

func TestLiveRunner_ProcessesAndEchoes(t *testing.T) {
	store := memory.NewMentionStore()
	sink := &recordingSink{}
	msg := channelMessage("chan-1", "500", "buying $AAPL today", time.Now())

	runner := NewLiveRunner(LiveOptions{
		Stream:    newFakeStream(msg),
		Processor: NewProcessor(store, testUniverse()),
		Channels:  []string{"chan-1"},
		Sink:      sink,
	})

	// The stream closes after draining, so Run returns an error we
	// treat as a normal stop here.
	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected stream-closed error")
	}

	snap, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 1 || snap.Mentions[0].Ticker != "AAPL" {
		t.Fatalf("mentions = %+v, want one AAPL record", snap.Mentions)
	}

	posts := sink.all()
	if len(posts) != 1 {
		t.Fatalf("posts = %v, want one echo", posts)
	}
	if want := "chan-1: logged ticker: AAPL from user: alice"; posts[0] != want {
		t.Errorf("echo = %q, want %q", posts[0], want)
	}
}

func TestLiveRunner_IgnoresUnwatchedChannels(t *testing.T) {
	store := memory.NewMentionStore()
	runner := NewLiveRunner(LiveOptions{
		Stream:    newFakeStream(channelMessage("other", "500", "$AAPL", time.Now())),
		Processor: NewProcessor(store, testUniverse()),
		Channels:  []string{"chan-1"},
	})
	runner.Run(context.Background())

	snap, _ := store.LoadAll(context.Background())
	if len(snap.Mentions) != 0 {
		t.Errorf("mentions = %+v, want none from unwatched channel", snap.Mentions)
	}
}

func TestLiveRunner_NoEchoForDuplicates(t *testing.T) {
	store := memory.NewMentionStore()
	sink := &recordingSink{}
	msg := channelMessage("chan-1", "500", "$TSLA", time.Now())

	// First pass records the mention.
	processor := NewProcessor(store, testUniverse())
	if _, _, err := processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("seed process: %v", err)
	}

	runner := NewLiveRunner(LiveOptions{
		Stream:    newFakeStream(msg),
		Processor: processor,
		Sink:      sink,
	})
	runner.Run(context.Background())

	if posts := sink.all(); len(posts) != 0 {
		t.Errorf("posts = %v, want no echo for an already-recorded mention", posts)
	}
}

func TestLiveRunner_ContextCancellation(t *testing.T) {
	store := memory.NewMentionStore()
	stream := &fakeStream{ch: make(chan *domain.ChatMessage)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	runner := NewLiveRunner(LiveOptions{
		Stream:    stream,
		Processor: NewProcessor(store, testUniverse()),
	})
	go func() { done <- runner.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

// commandSpy records dispatched messages and reports them handled.
type commandSpy struct {
	mu   sync.Mutex
	seen []string
}

func (c *commandSpy) Dispatch(_ context.Context, msg *domain.ChatMessage) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, string(msg.ID))
	return true, nil
}

func TestLiveRunner_RoutesCommands(t *testing.T) {
	store := memory.NewMentionStore()
	spy := &commandSpy{}

	cmd := channelMessage("chan-1", "600", "tickers", time.Now())
	cmd.AddressesAgent = true

	runner := NewLiveRunner(LiveOptions{
		Stream:    newFakeStream(cmd),
		Processor: NewProcessor(store, testUniverse()),
		Commands:  spy,
	})
	runner.Run(context.Background())

	spy.mu.Lock()
	defer spy.mu.Unlock()
	if len(spy.seen) != 1 || spy.seen[0] != "600" {
		t.Errorf("dispatched = %v, want [600]", spy.seen)
	}

	// Handled commands do not advance the checkpoint or store mentions.
	snap, _ := store.LoadAll(context.Background())
	if len(snap.Mentions) != 0 {
		t.Errorf("mentions = %+v, want none", snap.Mentions)
	}
}
