package postgres

import (
	"context"
	"fmt"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage"
)

// MentionStore implements storage.MentionStore using PostgreSQL.
// Serialization of mutations comes from row-level locking: appends rely
// on the primary key for dedup and checkpoint updates lock the channel
// row for the compare-and-advance cycle.
type MentionStore struct {
	pool *Pool
}

// NewMentionStore creates a new PostgreSQL-backed mention store.
func NewMentionStore(pool *Pool) *MentionStore {
	return &MentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// AppendMentions inserts records, skipping existing (message_id, ticker)
// keys. Returns the number of rows actually inserted.
func (s *MentionStore) AppendMentions(ctx context.Context, records []*domain.MentionRecord) (int, error) {
	for _, r := range records {
		if r == nil || r.Ticker == "" || r.MessageID == "" {
			return 0, storage.ErrInvalidInput
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", storage.ErrPersist, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO mentions (
			ticker, message_id, channel_id, user_id, user_name, permalink, ts, content
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (message_id, ticker) DO NOTHING
	`

	added := 0
	for _, r := range records {
		tag, err := tx.Exec(ctx, query,
			r.Ticker,
			r.MessageID,
			r.ChannelID,
			r.UserID,
			r.UserName,
			r.Permalink,
			r.Timestamp,
			r.Text,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert mention: %v", storage.ErrPersist, err)
		}
		added += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", storage.ErrPersist, err)
	}
	return added, nil
}

// UpdateCheckpoint advances the channel cursor only if candidate exceeds
// the stored value, under a row lock.
func (s *MentionStore) UpdateCheckpoint(ctx context.Context, channelID string, candidate domain.Cursor, at time.Time) (bool, error) {
	if channelID == "" || candidate.IsZero() {
		return false, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: begin tx: %v", storage.ErrPersist, err)
	}
	defer tx.Rollback(ctx)

	var stored string
	err = tx.QueryRow(ctx,
		`SELECT last_processed::text FROM checkpoints WHERE channel_id = $1 FOR UPDATE`,
		channelID,
	).Scan(&stored)
	switch {
	case isNotFoundError(err):
		// first checkpoint for this channel
	case err != nil:
		return false, fmt.Errorf("%w: load checkpoint: %v", storage.ErrPersist, err)
	default:
		if !domain.Cursor(stored).Less(candidate) {
			return false, nil
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO checkpoints (channel_id, last_processed, last_processed_at)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (channel_id) DO UPDATE
		SET last_processed = EXCLUDED.last_processed,
		    last_processed_at = EXCLUDED.last_processed_at
	`, channelID, string(candidate), at)
	if err != nil {
		return false, fmt.Errorf("%w: upsert checkpoint: %v", storage.ErrPersist, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: commit: %v", storage.ErrPersist, err)
	}
	return true, nil
}

// Checkpoint returns the stored checkpoint for a channel.
func (s *MentionStore) Checkpoint(ctx context.Context, channelID string) (*domain.Checkpoint, error) {
	var (
		cursor string
		at     time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT last_processed::text, last_processed_at FROM checkpoints WHERE channel_id = $1`,
		channelID,
	).Scan(&cursor, &at)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}
	return &domain.Checkpoint{
		ChannelID:       channelID,
		LastProcessed:   domain.Cursor(cursor),
		LastProcessedAt: at,
	}, nil
}

// LoadAll returns the full mention log ordered by timestamp then key,
// plus every checkpoint.
func (s *MentionStore) LoadAll(ctx context.Context) (*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, message_id, channel_id, user_id, user_name, permalink, ts, content
		FROM mentions
		ORDER BY ts, message_id, ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}
	defer rows.Close()

	snap := &domain.Snapshot{Checkpoints: make(map[string]*domain.Checkpoint)}
	for rows.Next() {
		var r domain.MentionRecord
		if err := rows.Scan(
			&r.Ticker, &r.MessageID, &r.ChannelID, &r.UserID,
			&r.UserName, &r.Permalink, &r.Timestamp, &r.Text,
		); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		snap.Mentions = append(snap.Mentions, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}

	cpRows, err := s.pool.Query(ctx,
		`SELECT channel_id, last_processed::text, last_processed_at FROM checkpoints`,
	)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer cpRows.Close()

	for cpRows.Next() {
		var (
			cp     domain.Checkpoint
			cursor string
		)
		if err := cpRows.Scan(&cp.ChannelID, &cursor, &cp.LastProcessedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.LastProcessed = domain.Cursor(cursor)
		snap.Checkpoints[cp.ChannelID] = &cp
	}
	if err := cpRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return snap, nil
}
