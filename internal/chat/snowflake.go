package chat

import (
	"strconv"
	"time"

	"ticker-scanner/internal/domain"
)

// snowflakeEpochMs is the platform epoch (2015-01-01T00:00:00Z) used by
// snowflake message identifiers.
const snowflakeEpochMs = 1420070400000

// SnowflakeFromTime synthesizes a cursor for a wall-clock instant: the
// millisecond offset from the platform epoch shifted into the timestamp
// bits, with worker, process and increment all zero. Every real message
// id created at or after t compares greater than this cursor.
//
// This is the default TimestampToCursor for snowflake platforms.
func SnowflakeFromTime(t time.Time) domain.Cursor {
	ms := t.UnixMilli() - snowflakeEpochMs
	if ms < 0 {
		ms = 0
	}
	return domain.Cursor(strconv.FormatUint(uint64(ms)<<22, 10))
}
