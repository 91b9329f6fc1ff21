// Package jsonfile persists the mention log as a single JSON document.
// Every successful mutation rewrites the whole document; there are no
// partial updates. One process owns the file; cross-process writers are
// last-writer-wins and unsupported.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage"
)

// document is the on-disk shape, compatible with the historical scanner
// db.json layout.
type document struct {
	Updated     time.Time                 `json:"updated"`
	Entries     []*domain.MentionRecord   `json:"entries"`
	Checkpoints map[string]*checkpointDoc `json:"checkpoints"`
}

type checkpointDoc struct {
	LastProcessedID domain.Cursor `json:"lastProcessedId"`
	LastProcessedAt time.Time     `json:"lastProcessedAt"`
}

// Store implements storage.MentionStore over one JSON document.
//
// Write discipline: a single mutex serializes every read-modify-write
// cycle. The document is marshalled from in-memory state, written to a
// temp file and renamed into place; in-memory state is only updated after
// the rename succeeds, so a failed persist leaves both the file and the
// visible state untouched.
type Store struct {
	path string

	mu          sync.RWMutex
	entries     []*domain.MentionRecord
	keys        map[string]struct{}
	checkpoints map[string]*domain.Checkpoint
}

// Open loads the document at path, creating an empty store if the file
// does not exist yet. A document that exists but cannot be parsed is an
// error: silently dropping history is worse than refusing to start.
func Open(path string) (*Store, error) {
	s := &Store{
		path:        path,
		keys:        make(map[string]struct{}),
		checkpoints: make(map[string]*domain.Checkpoint),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}

	for _, e := range doc.Entries {
		if e == nil || e.Ticker == "" || e.MessageID == "" {
			continue
		}
		key := e.Key()
		if _, dup := s.keys[key]; dup {
			continue
		}
		s.entries = append(s.entries, e)
		s.keys[key] = struct{}{}
	}
	for channelID, cp := range doc.Checkpoints {
		if cp == nil || cp.LastProcessedID.IsZero() {
			continue
		}
		s.checkpoints[channelID] = &domain.Checkpoint{
			ChannelID:       channelID,
			LastProcessed:   cp.LastProcessedID,
			LastProcessedAt: cp.LastProcessedAt,
		}
	}
	return s, nil
}

// decodeDocument accepts both the current object form and the legacy
// bare-array form (entries only, no checkpoints).
func decodeDocument(data []byte) (*document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && (doc.Entries != nil || doc.Checkpoints != nil || !doc.Updated.IsZero()) {
		if doc.Checkpoints == nil {
			doc.Checkpoints = make(map[string]*checkpointDoc)
		}
		return &doc, nil
	}

	var entries []*domain.MentionRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &document{
		Entries:     entries,
		Checkpoints: make(map[string]*checkpointDoc),
	}, nil
}

// AppendMentions appends records not already present by (MessageID, Ticker)
// and rewrites the document once when at least one record is new.
func (s *Store) AppendMentions(_ context.Context, records []*domain.MentionRecord) (int, error) {
	for _, r := range records {
		if r == nil || r.Ticker == "" || r.MessageID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []*domain.MentionRecord
	seen := make(map[string]struct{})
	for _, r := range records {
		key := r.Key()
		if _, exists := s.keys[key]; exists {
			continue
		}
		if _, batchDup := seen[key]; batchDup {
			continue
		}
		recordCopy := *r
		fresh = append(fresh, &recordCopy)
		seen[key] = struct{}{}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	entries := append(append([]*domain.MentionRecord{}, s.entries...), fresh...)
	if err := s.persistLocked(entries, s.checkpoints); err != nil {
		return 0, err
	}

	s.entries = entries
	for _, r := range fresh {
		s.keys[r.Key()] = struct{}{}
	}
	return len(fresh), nil
}

// UpdateCheckpoint advances the channel cursor only if candidate exceeds
// the stored cursor, rewriting the document on advancement.
func (s *Store) UpdateCheckpoint(_ context.Context, channelID string, candidate domain.Cursor, at time.Time) (bool, error) {
	if channelID == "" || candidate.IsZero() {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cp, exists := s.checkpoints[channelID]; exists && !cp.LastProcessed.Less(candidate) {
		return false, nil
	}

	next := make(map[string]*domain.Checkpoint, len(s.checkpoints)+1)
	for id, cp := range s.checkpoints {
		next[id] = cp
	}
	next[channelID] = &domain.Checkpoint{
		ChannelID:       channelID,
		LastProcessed:   candidate,
		LastProcessedAt: at,
	}

	if err := s.persistLocked(s.entries, next); err != nil {
		return false, err
	}
	s.checkpoints = next
	return true, nil
}

// Checkpoint returns the stored checkpoint for a channel.
func (s *Store) Checkpoint(_ context.Context, channelID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, exists := s.checkpoints[channelID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cpCopy := *cp
	return &cpCopy, nil
}

// LoadAll returns a copy of the full log and all checkpoints.
func (s *Store) LoadAll(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &domain.Snapshot{
		Mentions:    make([]*domain.MentionRecord, len(s.entries)),
		Checkpoints: make(map[string]*domain.Checkpoint, len(s.checkpoints)),
	}
	for i, e := range s.entries {
		entryCopy := *e
		snap.Mentions[i] = &entryCopy
	}
	for id, cp := range s.checkpoints {
		cpCopy := *cp
		snap.Checkpoints[id] = &cpCopy
	}
	return snap, nil
}

// persistLocked writes the given state as the whole document. Callers
// hold the write lock. The temp-file rename keeps readers of the file
// from ever seeing a torn document.
func (s *Store) persistLocked(entries []*domain.MentionRecord, checkpoints map[string]*domain.Checkpoint) error {
	doc := document{
		Updated:     time.Now().UTC(),
		Entries:     entries,
		Checkpoints: make(map[string]*checkpointDoc, len(checkpoints)),
	}
	if doc.Entries == nil {
		doc.Entries = []*domain.MentionRecord{}
	}
	for id, cp := range checkpoints {
		doc.Checkpoints[id] = &checkpointDoc{
			LastProcessedID: cp.LastProcessed,
			LastProcessedAt: cp.LastProcessedAt,
		}
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", storage.ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", storage.ErrPersist, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", storage.ErrPersist, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp file: %v", storage.ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %v", storage.ErrPersist, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", storage.ErrPersist, s.path, err)
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.MentionStore = (*Store)(nil)
