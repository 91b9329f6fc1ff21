package memory

import (
	"context"
	"sync"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage"
)

// MentionStore is an in-memory implementation of storage.MentionStore,
// used by tests and by --use-memory runs. A single mutex serializes all
// mutations; reads take the same lock and copy out, so they never see a
// half-applied mutation.
type MentionStore struct {
	mu          sync.RWMutex
	mentions    []*domain.MentionRecord
	keys        map[string]struct{}
	checkpoints map[string]*domain.Checkpoint
}

// NewMentionStore creates an empty in-memory mention store.
func NewMentionStore() *MentionStore {
	return &MentionStore{
		keys:        make(map[string]struct{}),
		checkpoints: make(map[string]*domain.Checkpoint),
	}
}

// AppendMentions appends records not already present by (MessageID, Ticker).
func (s *MentionStore) AppendMentions(_ context.Context, records []*domain.MentionRecord) (int, error) {
	for _, r := range records {
		if r == nil || r.Ticker == "" || r.MessageID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, r := range records {
		key := r.Key()
		if _, exists := s.keys[key]; exists {
			continue
		}
		recordCopy := *r
		s.mentions = append(s.mentions, &recordCopy)
		s.keys[key] = struct{}{}
		added++
	}
	return added, nil
}

// UpdateCheckpoint advances the channel cursor only if candidate exceeds it.
func (s *MentionStore) UpdateCheckpoint(_ context.Context, channelID string, candidate domain.Cursor, at time.Time) (bool, error) {
	if channelID == "" || candidate.IsZero() {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, exists := s.checkpoints[channelID]
	if exists && !cp.LastProcessed.Less(candidate) {
		return false, nil
	}
	s.checkpoints[channelID] = &domain.Checkpoint{
		ChannelID:       channelID,
		LastProcessed:   candidate,
		LastProcessedAt: at,
	}
	return true, nil
}

// Checkpoint returns the stored checkpoint for a channel.
func (s *MentionStore) Checkpoint(_ context.Context, channelID string) (*domain.Checkpoint, error) {
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
func (s *MentionStore) LoadAll(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &domain.Snapshot{
		Mentions:    make([]*domain.MentionRecord, len(s.mentions)),
		Checkpoints: make(map[string]*domain.Checkpoint, len(s.checkpoints)),
	}
	for i, r := range s.mentions {
		recordCopy := *r
		snap.Mentions[i] = &recordCopy
	}
	for id, cp := range s.checkpoints {
		cpCopy := *cp
		snap.Checkpoints[id] = &cpCopy
	}
	return snap, nil
}

// Verify interface compliance at compile time.
var _ storage.MentionStore = (*MentionStore)(nil)
