package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "mentions.json")
}

func record(messageID, ticker string, ts time.Time) *domain.MentionRecord {
	return &domain.MentionRecord{
		Ticker:    ticker,
		MessageID: messageID,
		ChannelID: "chan-1",
		UserID:    "user-1",
		UserName:  "alice",
		Timestamp: ts,
	}
}

func TestOpen_MissingFileIsEmptyStore(t *testing.T) {
	store, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	snap, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 0 || len(snap.Checkpoints) != 0 {
		t.Errorf("expected empty store, got %d mentions, %d checkpoints",
			len(snap.Mentions), len(snap.Checkpoints))
	}
}

func TestOpen_CorruptFileFails(t *testing.T) {
	path := tempStorePath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected Open to fail on a corrupt document")
	}
}

func TestOpen_LegacyBareArray(t *testing.T) {
	path := tempStorePath(t)
	legacy := `[{"ticker":"AAPL","messageId":"100","channelId":"chan-1","userId":"u1","userName":"alice","timestamp":"2026-08-01T10:00:00Z"}]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	snap, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 1 || snap.Mentions[0].Ticker != "AAPL" {
		t.Errorf("unexpected snapshot: %+v", snap.Mentions)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	path := tempStorePath(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	added, err := store.AppendMentions(ctx, []*domain.MentionRecord{
		record("100", "AAPL", now),
		record("101", "TSLA", now.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("AppendMentions failed: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	if _, err := store.UpdateCheckpoint(ctx, "chan-1", "101", now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateCheckpoint failed: %v", err)
	}

	// Reopen from disk and verify everything survived.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	snap, err := reopened.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 2 {
		t.Errorf("mentions after reload = %d, want 2", len(snap.Mentions))
	}
	cp := snap.Checkpoints["chan-1"]
	if cp == nil || cp.LastProcessed != "101" {
		t.Errorf("checkpoint after reload = %+v, want cursor 101", cp)
	}
}

func TestStore_AppendIdempotent(t *testing.T) {
	store, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	now := time.Now()

	batch := []*domain.MentionRecord{record("100", "AAPL", now)}
	if _, err := store.AppendMentions(ctx, batch); err != nil {
		t.Fatalf("AppendMentions failed: %v", err)
	}

	added, err := store.AppendMentions(ctx, batch)
	if err != nil {
		t.Fatalf("AppendMentions failed: %v", err)
	}
	if added != 0 {
		t.Errorf("duplicate append added = %d, want 0", added)
	}

	// Same message, different ticker is a distinct record.
	added, err = store.AppendMentions(ctx, []*domain.MentionRecord{record("100", "TSLA", now)})
	if err != nil {
		t.Fatalf("AppendMentions failed: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestStore_AppendRejectsInvalid(t *testing.T) {
	store, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err = store.AppendMentions(context.Background(), []*domain.MentionRecord{
		{Ticker: "", MessageID: "100"},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStore_CheckpointNeverRegresses(t *testing.T) {
	path := tempStorePath(t)
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	if _, err := store.UpdateCheckpoint(ctx, "chan-1", "1000", time.Now()); err != nil {
		t.Fatalf("UpdateCheckpoint failed: %v", err)
	}

	advanced, err := store.UpdateCheckpoint(ctx, "chan-1", "999", time.Now())
	if err != nil {
		t.Fatalf("UpdateCheckpoint failed: %v", err)
	}
	if advanced {
		t.Error("older cursor must not advance the checkpoint")
	}

	cp, err := store.Checkpoint(ctx, "chan-1")
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	if cp.LastProcessed != "1000" {
		t.Errorf("LastProcessed = %s, want 1000", cp.LastProcessed)
	}
}

func TestStore_FailedPersistLeavesStateUntouched(t *testing.T) {
	path := tempStorePath(t)
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	if _, err := store.AppendMentions(ctx, []*domain.MentionRecord{record("100", "AAPL", time.Now())}); err != nil {
		t.Fatalf("AppendMentions failed: %v", err)
	}

	// Replace the store file with a directory so the rename fails.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove store file: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err = store.AppendMentions(ctx, []*domain.MentionRecord{record("101", "TSLA", time.Now())})
	if !errors.Is(err, storage.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}

	// In-memory state must not contain the failed record.
	snap, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 1 {
		t.Errorf("mentions = %d, want 1 after failed persist", len(snap.Mentions))
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := record(fmt.Sprintf("msg-%d", n), "AAPL", time.Now())
			if _, err := store.AppendMentions(ctx, []*domain.MentionRecord{rec}); err != nil {
				t.Errorf("concurrent append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(snap.Mentions) != 10 {
		t.Errorf("mentions = %d, want 10", len(snap.Mentions))
	}
}
