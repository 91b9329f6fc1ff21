package commands

import (
	"fmt"
	"strings"

	"ticker-scanner/internal/aggregate"
	"ticker-scanner/internal/domain"
)

// maxPostLen keeps chunks below the platform message limit with room
// for formatting.
const maxPostLen = 1800

func periodLabel(p aggregate.Period) string {
	return p.Start.Format("Jan 2006")
}

func renderLeaderboard(stats []*domain.TickerStat, p aggregate.Period) string {
	if len(stats) == 0 {
		return fmt.Sprintf("No tickers logged yet for %s.", periodLabel(p))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tickers for %s (%d):\n", periodLabel(p), len(stats))
	for i, s := range stats {
		fmt.Fprintf(&b, "%d. %s — %d mention(s), first by %s on %s\n",
			i+1, s.Ticker, s.MentionCount, s.First.UserName,
			s.First.Timestamp.Format("Jan 2"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMyTickers(stats []*domain.TickerStat, p aggregate.Period) string {
	if len(stats) == 0 {
		return fmt.Sprintf("You have no first mentions for %s.", periodLabel(p))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your first mentions for %s (%d):\n", periodLabel(p), len(stats))
	for _, s := range stats {
		fmt.Fprintf(&b, "- %s on %s (%d mention(s) total)\n",
			s.Ticker, s.First.Timestamp.Format("Jan 2"), s.MentionCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDashboard(stats []*domain.TickerStat, p aggregate.Period) string {
	if len(stats) == 0 {
		return fmt.Sprintf("Nothing logged yet for %s.", periodLabel(p))
	}
	total := 0
	for _, s := range stats {
		total += s.MentionCount
	}
	counts := aggregate.FirstMentionCounts(stats)

	var b strings.Builder
	fmt.Fprintf(&b, "Dashboard for %s\n", periodLabel(p))
	fmt.Fprintf(&b, "Tickers: %d | Mentions: %d\n", len(stats), total)
	b.WriteString("First calls:\n")
	for i, c := range counts {
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, c.UserName, c.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHot(ranked []domain.RankedResult, basis Basis, p aggregate.Period) string {
	if len(ranked) == 0 {
		return "No tickers could be priced."
	}
	var b strings.Builder
	switch basis {
	case BasisMonth:
		fmt.Fprintf(&b, "Hot list since %s:\n", p.Start.Format("Jan 2"))
	default:
		b.WriteString("Hot list since first mention:\n")
	}
	for i, r := range ranked {
		fmt.Fprintf(&b, "%d. %s %+.2f%% (%.2f → %.2f), called by %s\n",
			i+1, r.Ticker, r.PctChange, r.StartPrice, r.EndPrice, r.UserName)
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitChunks breaks text into pieces of at most limit bytes, splitting
// on line boundaries. A single line longer than the limit is hard-cut.
func splitChunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		add := len(line)
		if cur.Len() > 0 {
			add++
		}
		if cur.Len()+add > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
