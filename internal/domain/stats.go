package domain

import "time"

// MentionRef points at a single mention inside the log.
type MentionRef struct {
	UserID    string
	UserName  string
	Timestamp time.Time
	Permalink string
}

// TickerStat is the per-ticker aggregate over one period. Ephemeral:
// recomputed from the current log snapshot on every query.
type TickerStat struct {
	Ticker       string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	MentionCount int
	First        MentionRef
	Last         MentionRef
}

// UserFirstCount is the number of tickers for which a user holds the
// first mention within a period.
type UserFirstCount struct {
	UserID   string
	UserName string
	Count    int
}
