package clickhouse

import (
	"context"
	"fmt"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/storage"
)

// MentionArchive implements storage.MentionArchive using ClickHouse.
// Write-behind analytics mirror: it never participates in the durable
// store's serialized write path, and a ReplacingMergeTree keyed on
// (message_id, ticker) absorbs replays from retried batches.
type MentionArchive struct {
	conn *Conn
}

// NewMentionArchive creates a new ClickHouse-backed mention archive.
func NewMentionArchive(conn *Conn) *MentionArchive {
	return &MentionArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.MentionArchive = (*MentionArchive)(nil)

// EnsureSchema creates the archive table if it does not exist.
func (a *MentionArchive) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS mention_archive (
			ticker     String,
			message_id String,
			channel_id String,
			user_id    String,
			user_name  String,
			permalink  String,
			ts         DateTime64(3, 'UTC'),
			content    String
		) ENGINE = ReplacingMergeTree
		ORDER BY (message_id, ticker)
	`
	if err := a.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure mention_archive schema: %w", err)
	}
	return nil
}

// InsertBulk appends records to the archive in one batch.
func (a *MentionArchive) InsertBulk(ctx context.Context, records []*domain.MentionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO mention_archive (
			ticker, message_id, channel_id, user_id, user_name, permalink, ts, content
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		if err := batch.Append(
			r.Ticker,
			r.MessageID,
			r.ChannelID,
			r.UserID,
			r.UserName,
			r.Permalink,
			r.Timestamp,
			r.Text,
		); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTicker returns archived mentions for a ticker, timestamp ASC.
func (a *MentionArchive) GetByTicker(ctx context.Context, tickerSymbol string) ([]*domain.MentionRecord, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT ticker, message_id, channel_id, user_id, user_name, permalink, ts, content
		FROM mention_archive FINAL
		WHERE ticker = ?
		ORDER BY ts
	`, tickerSymbol)
	if err != nil {
		return nil, fmt.Errorf("query mention_archive: %w", err)
	}
	defer rows.Close()

	var result []*domain.MentionRecord
	for rows.Next() {
		var r domain.MentionRecord
		if err := rows.Scan(
			&r.Ticker, &r.MessageID, &r.ChannelID, &r.UserID,
			&r.UserName, &r.Permalink, &r.Timestamp, &r.Text,
		); err != nil {
			return nil, fmt.Errorf("scan mention_archive row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mention_archive: %w", err)
	}
	return result, nil
}
