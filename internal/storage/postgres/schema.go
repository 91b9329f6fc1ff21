package postgres

import (
	"context"
	"fmt"
)

// schema creates the mention log and checkpoint tables. Cursors are
// stored as NUMERIC so SQL ordering matches the cursor's numeric total
// order even past 64 bits.
const schema = `
CREATE TABLE IF NOT EXISTS mentions (
    ticker      TEXT        NOT NULL,
    message_id  TEXT        NOT NULL,
    channel_id  TEXT        NOT NULL,
    user_id     TEXT        NOT NULL,
    user_name   TEXT        NOT NULL,
    permalink   TEXT        NOT NULL DEFAULT '',
    ts          TIMESTAMPTZ NOT NULL,
    content     TEXT        NOT NULL DEFAULT '',
    PRIMARY KEY (message_id, ticker)
);

CREATE INDEX IF NOT EXISTS mentions_ts_idx     ON mentions (ts);
CREATE INDEX IF NOT EXISTS mentions_ticker_idx ON mentions (ticker);

CREATE TABLE IF NOT EXISTS checkpoints (
    channel_id        TEXT        PRIMARY KEY,
    last_processed    NUMERIC     NOT NULL,
    last_processed_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
