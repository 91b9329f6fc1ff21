package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ticker-scanner/internal/aggregate"
	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/prices"
	"ticker-scanner/internal/rank"
	"ticker-scanner/internal/storage"
	"ticker-scanner/internal/storage/jsonfile"
	pgstore "ticker-scanner/internal/storage/postgres"
)

func main() {
	// Parse flags
	storePath := flag.String("store", "data/mentions.json", "Path to the mention log file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides --store)")
	hotN := flag.Int("hot", 0, "Also rank the top N tickers by price change (0 disables)")
	basis := flag.String("basis", "mention", "Hot-list anchor: mention or month")
	timezone := flag.String("timezone", "America/New_York", "Location for month boundaries")
	concurrency := flag.Int("concurrency", 3, "Concurrent price fetches")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)
	ctx := context.Background()

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		logger.Fatalf("Timezone: %v", err)
	}

	store, cleanup, err := openStore(ctx, *storePath, *postgresDSN)
	if err != nil {
		logger.Fatalf("Store: %v", err)
	}
	defer cleanup()

	snap, err := store.LoadAll(ctx)
	if err != nil {
		logger.Fatalf("Load mentions: %v", err)
	}

	p := aggregate.MonthToDate(time.Now(), loc)
	stats := aggregate.TickerStats(snap.Mentions, p)

	fmt.Printf("Period: %s — %s\n", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
	fmt.Printf("Tickers: %d | Mentions in log: %d\n\n", len(stats), len(snap.Mentions))

	fmt.Println("Leaderboard:")
	for i, s := range stats {
		fmt.Printf("%3d. %-8s %4d mention(s)  first by %s on %s\n",
			i+1, s.Ticker, s.MentionCount, s.First.UserName, s.First.Timestamp.Format("Jan 2 15:04"))
	}

	fmt.Println("\nFirst calls:")
	for i, c := range aggregate.FirstMentionCounts(stats) {
		fmt.Printf("%3d. %-20s %d\n", i+1, c.UserName, c.Count)
	}

	if *hotN > 0 {
		printHot(ctx, logger, stats, p, *hotN, *basis, *concurrency)
	}
}

func printHot(ctx context.Context, logger *log.Logger, stats []*domain.TickerStat, p aggregate.Period, n int, basis string, concurrency int) {
	ranker := rank.NewRanker(rank.Options{
		Source:      prices.NewClient(),
		Concurrency: concurrency,
		Logger:      logger,
	})

	items := make([]rank.Item, 0, len(stats))
	for _, s := range stats {
		anchor := s.First.Timestamp
		if basis == "month" {
			anchor = p.Start
		}
		items = append(items, rank.Item{
			Ticker:    s.Ticker,
			Anchor:    anchor,
			UserName:  s.First.UserName,
			Permalink: s.First.Permalink,
		})
	}

	ranked, err := ranker.Rank(ctx, items)
	if err != nil {
		logger.Fatalf("Rank: %v", err)
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	fmt.Printf("\nHot list (basis %s):\n", basis)
	for i, r := range ranked {
		fmt.Printf("%3d. %-8s %+8.2f%%  %.2f → %.2f  called by %s\n",
			i+1, r.Ticker, r.PctChange, r.StartPrice, r.EndPrice, r.UserName)
	}
}

func openStore(ctx context.Context, path, dsn string) (storage.MentionStore, func(), error) {
	if dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewMentionStore(pool), pool.Close, nil
	}
	store, err := jsonfile.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open mention log: %w", err)
	}
	return store, func() {}, nil
}
