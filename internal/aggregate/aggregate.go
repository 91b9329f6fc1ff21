// Package aggregate reduces the mention log into per-ticker and per-user
// statistics. Everything here is pure: the same snapshot and period
// always produce identical output.
package aggregate

import (
	"sort"

	"ticker-scanner/internal/domain"
)

// TickerStats reduces mentions within the period into one stat per
// ticker. First mention is the earliest timestamp, ties broken by input
// order; last mention is the latest, likewise stable. Output follows
// the leaderboard contract: mention count descending, then ticker
// ascending, so repeated calls render identically.
func TickerStats(mentions []*domain.MentionRecord, p Period) []*domain.TickerStat {
	byTicker := make(map[string]*domain.TickerStat)

	for _, m := range mentions {
		if m == nil || m.Ticker == "" || !p.Contains(m.Timestamp) {
			continue
		}

		stat, exists := byTicker[m.Ticker]
		if !exists {
			stat = &domain.TickerStat{
				Ticker:      m.Ticker,
				PeriodStart: p.Start,
				PeriodEnd:   p.End,
				First: domain.MentionRef{
					UserID:    m.UserID,
					UserName:  m.UserName,
					Timestamp: m.Timestamp,
					Permalink: m.Permalink,
				},
				Last: domain.MentionRef{
					UserID:    m.UserID,
					UserName:  m.UserName,
					Timestamp: m.Timestamp,
					Permalink: m.Permalink,
				},
			}
			byTicker[m.Ticker] = stat
		}
		stat.MentionCount++

		if m.Timestamp.Before(stat.First.Timestamp) {
			stat.First = domain.MentionRef{
				UserID:    m.UserID,
				UserName:  m.UserName,
				Timestamp: m.Timestamp,
				Permalink: m.Permalink,
			}
		}
		if m.Timestamp.After(stat.Last.Timestamp) {
			stat.Last = domain.MentionRef{
				UserID:    m.UserID,
				UserName:  m.UserName,
				Timestamp: m.Timestamp,
				Permalink: m.Permalink,
			}
		}
	}

	stats := make([]*domain.TickerStat, 0, len(byTicker))
	for _, s := range byTicker {
		stats = append(stats, s)
	}
	SortLeaderboard(stats)
	return stats
}

// SortLeaderboard applies the presentation sort contract: mention count
// descending, ticker ascending.
func SortLeaderboard(stats []*domain.TickerStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MentionCount != stats[j].MentionCount {
			return stats[i].MentionCount > stats[j].MentionCount
		}
		return stats[i].Ticker < stats[j].Ticker
	})
}

// FirstMentionCounts computes, per user, the number of tickers for which
// that user holds the first mention. Sorted count descending, then user
// name ascending.
func FirstMentionCounts(stats []*domain.TickerStat) []*domain.UserFirstCount {
	byUser := make(map[string]*domain.UserFirstCount)
	for _, s := range stats {
		if s.First.UserID == "" {
			continue
		}
		c, exists := byUser[s.First.UserID]
		if !exists {
			c = &domain.UserFirstCount{UserID: s.First.UserID, UserName: s.First.UserName}
			byUser[s.First.UserID] = c
		}
		c.Count++
		if c.UserName == "" {
			c.UserName = s.First.UserName
		}
	}

	counts := make([]*domain.UserFirstCount, 0, len(byUser))
	for _, c := range byUser {
		counts = append(counts, c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].UserName < counts[j].UserName
	})
	return counts
}

// FilterFirstBy keeps only the stats whose first mention belongs to the
// given user, preserving order.
func FilterFirstBy(stats []*domain.TickerStat, userID string) []*domain.TickerStat {
	var out []*domain.TickerStat
	for _, s := range stats {
		if s.First.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// FilterByUser keeps only mentions authored by the given user. Used for
// the optional per-user aggregation filter.
func FilterByUser(mentions []*domain.MentionRecord, userID string) []*domain.MentionRecord {
	var out []*domain.MentionRecord
	for _, m := range mentions {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// UniqueTickers returns the number of distinct tickers across the whole
// log, ignoring any period.
func UniqueTickers(mentions []*domain.MentionRecord) int {
	seen := make(map[string]struct{})
	for _, m := range mentions {
		if m != nil && m.Ticker != "" {
			seen[m.Ticker] = struct{}{}
		}
	}
	return len(seen)
}
