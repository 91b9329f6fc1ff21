// Package rank computes price performance since first mention for a set
// of tickers. Failed tickers are dropped from the output rather than
// failing the whole run.
package rank

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/observability"
)

// DefaultConcurrency bounds simultaneous price fetches.
const DefaultConcurrency = 3

// Source provides daily candle series for a symbol.
type Source interface {
	DailySeries(ctx context.Context, symbol string, from time.Time) (*domain.PriceSeries, error)
}

// Item is one ticker to rank, anchored at its first mention.
type Item struct {
	Ticker    string
	Anchor    time.Time
	UserName  string
	Permalink string
}

// Options configure the Ranker. Source is required.
type Options struct {
	Source      Source
	Concurrency int
	StartField  domain.PriceField
	EndField    domain.PriceField
	Logger      *log.Logger
}

// Ranker fetches series for each item with bounded concurrency and
// computes percent change from the anchor trading day to the latest
// usable candle.
type Ranker struct {
	source      Source
	concurrency int
	startField  domain.PriceField
	endField    domain.PriceField
	logger      *log.Logger
}

// NewRanker creates a Ranker from options, applying defaults.
func NewRanker(opts Options) *Ranker {
	r := &Ranker{
		source:      opts.Source,
		concurrency: opts.Concurrency,
		startField:  opts.StartField,
		endField:    opts.EndField,
		logger:      opts.Logger,
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if r.startField == "" {
		r.startField = domain.FieldOpen
	}
	if r.endField == "" {
		r.endField = domain.FieldClose
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Rank computes performance for every item. Items whose series cannot
// be fetched or priced are dropped. Results are sorted by percent
// change descending, ties broken by ticker.
func (r *Ranker) Rank(ctx context.Context, items []Item) ([]domain.RankedResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	jobs := make(chan Item)
	results := make([]domain.RankedResult, 0, len(items))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				res, ok := r.rankOne(ctx, item)
				if !ok {
					continue
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].PctChange != results[j].PctChange {
			return results[i].PctChange > results[j].PctChange
		}
		return results[i].Ticker < results[j].Ticker
	})
	observability.RecordRankRun(len(results), len(items)-len(results))
	return results, nil
}

// rankOne fetches and prices a single item. Any failure drops it.
func (r *Ranker) rankOne(ctx context.Context, item Item) (domain.RankedResult, bool) {
	series, err := r.source.DailySeries(ctx, item.Ticker, item.Anchor)
	if err != nil {
		r.logger.Printf("rank: skipping %s: %v", item.Ticker, err)
		return domain.RankedResult{}, false
	}
	if series == nil || len(series.Points) == 0 {
		r.logger.Printf("rank: skipping %s: empty series", item.Ticker)
		return domain.RankedResult{}, false
	}

	loc, err := time.LoadLocation(series.ExchangeTimeZone)
	if err != nil {
		r.logger.Printf("rank: skipping %s: bad timezone %q: %v", item.Ticker, series.ExchangeTimeZone, err)
		return domain.RankedResult{}, false
	}

	startIdx := anchorIndex(series.Points, item.Anchor, loc)
	if startIdx < 0 {
		r.logger.Printf("rank: skipping %s: anchor beyond series", item.Ticker)
		return domain.RankedResult{}, false
	}

	startPrice, startIdx, ok := firstUsable(series.Points, startIdx, r.startField)
	if !ok {
		return domain.RankedResult{}, false
	}
	endPrice, _, ok := lastUsable(series.Points, startIdx, r.endField)
	if !ok {
		return domain.RankedResult{}, false
	}
	if startPrice <= 0 {
		r.logger.Printf("rank: skipping %s: non-positive start price", item.Ticker)
		return domain.RankedResult{}, false
	}

	return domain.RankedResult{
		Ticker:     item.Ticker,
		StartPrice: startPrice,
		EndPrice:   endPrice,
		PctChange:  (endPrice - startPrice) / startPrice * 100,
		Anchor:     item.Anchor,
		UserName:   item.UserName,
		Permalink:  item.Permalink,
	}, true
}

// anchorIndex finds the candle whose calendar day, in the exchange
// timezone, matches the anchor's, or the first trading day after it.
// Returns -1 when the anchor falls after the last candle.
func anchorIndex(points []domain.DailyPoint, anchor time.Time, loc *time.Location) int {
	want := dayKey(anchor.In(loc))
	for i, p := range points {
		if dayKey(p.TradingDay.In(loc)) >= want {
			return i
		}
	}
	return -1
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// firstUsable scans forward from idx for a candle carrying the field.
func firstUsable(points []domain.DailyPoint, idx int, field domain.PriceField) (float64, int, bool) {
	for i := idx; i < len(points); i++ {
		if v, ok := points[i].At(field); ok {
			return v, i, true
		}
	}
	return 0, -1, false
}

// lastUsable scans backward from the series end, stopping at min.
func lastUsable(points []domain.DailyPoint, min int, field domain.PriceField) (float64, int, bool) {
	for i := len(points) - 1; i >= min; i-- {
		if v, ok := points[i].At(field); ok {
			return v, i, true
		}
	}
	return 0, -1, false
}
