// Package commands implements the chat-facing query surface: ticker
// listings, the month-to-date dashboard, and the hot list. Every query
// recomputes from the current log snapshot.
package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticker-scanner/internal/aggregate"
	"ticker-scanner/internal/chat"
	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/rank"
	"ticker-scanner/internal/storage"
)

// Basis selects the anchor for hot-list performance.
type Basis string

const (
	// BasisMention anchors each ticker at its first mention this period.
	BasisMention Basis = "mention"
	// BasisMonth anchors every ticker at the period start.
	BasisMonth Basis = "month"
)

// DefaultHotLimit caps how many tickers a hot-list run prices.
const DefaultHotLimit = 25

// Options configure a Handler. Store and Sink are required; Ranker is
// required only for the hot list.
type Options struct {
	Store    storage.MentionStore
	Ranker   *rank.Ranker
	Sink     chat.Sink
	Location *time.Location
	Now      func() time.Time
	HotLimit int
	Logger   *log.Logger
}

// Handler answers ticker queries over the mention log.
type Handler struct {
	store    storage.MentionStore
	ranker   *rank.Ranker
	sink     chat.Sink
	location *time.Location
	now      func() time.Time
	hotLimit int
	logger   *log.Logger
}

// NewHandler creates a Handler from options, applying defaults.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		store:    opts.Store,
		ranker:   opts.Ranker,
		sink:     opts.Sink,
		location: opts.Location,
		now:      opts.Now,
		hotLimit: opts.HotLimit,
		logger:   opts.Logger,
	}
	if h.location == nil {
		h.location = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.hotLimit <= 0 {
		h.hotLimit = DefaultHotLimit
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// periodStats loads the snapshot and aggregates the month-to-date window.
func (h *Handler) periodStats(ctx context.Context) ([]*domain.TickerStat, aggregate.Period, error) {
	snap, err := h.store.LoadAll(ctx)
	if err != nil {
		return nil, aggregate.Period{}, fmt.Errorf("load mentions: %w", err)
	}
	p := aggregate.MonthToDate(h.now(), h.location)
	return aggregate.TickerStats(snap.Mentions, p), p, nil
}

// AllTickers posts the month-to-date leaderboard of mentioned tickers.
func (h *Handler) AllTickers(ctx context.Context, channelID string) error {
	stats, p, err := h.periodStats(ctx)
	if err != nil {
		return err
	}
	return h.post(ctx, channelID, renderLeaderboard(stats, p))
}

// MyTickers posts the tickers the user first mentioned this month.
func (h *Handler) MyTickers(ctx context.Context, channelID, userID string) error {
	stats, p, err := h.periodStats(ctx)
	if err != nil {
		return err
	}
	mine := aggregate.FilterFirstBy(stats, userID)
	return h.post(ctx, channelID, renderMyTickers(mine, p))
}

// Dashboard posts the month-to-date summary: totals plus the users
// ranked by how many tickers they called first.
func (h *Handler) Dashboard(ctx context.Context, channelID string) error {
	stats, p, err := h.periodStats(ctx)
	if err != nil {
		return err
	}
	return h.post(ctx, channelID, renderDashboard(stats, p))
}

// Hot posts the top-n tickers by price performance. With BasisMention
// each ticker is measured from its first mention; with BasisMonth all
// tickers share the period start as anchor. Tickers whose prices cannot
// be fetched are silently dropped.
func (h *Handler) Hot(ctx context.Context, channelID string, n int, basis Basis) error {
	if h.ranker == nil {
		return fmt.Errorf("hot list: no price source configured")
	}
	stats, p, err := h.periodStats(ctx)
	if err != nil {
		return err
	}

	picked := stats
	if len(picked) > h.hotLimit {
		picked = picked[:h.hotLimit]
	}

	items := make([]rank.Item, 0, len(picked))
	for _, s := range picked {
		anchor := s.First.Timestamp
		if basis == BasisMonth {
			anchor = p.Start
		}
		items = append(items, rank.Item{
			Ticker:    s.Ticker,
			Anchor:    anchor,
			UserName:  s.First.UserName,
			Permalink: s.First.Permalink,
		})
	}

	ranked, err := h.ranker.Rank(ctx, items)
	if err != nil {
		return fmt.Errorf("rank tickers: %w", err)
	}
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return h.post(ctx, channelID, renderHot(ranked, basis, p))
}

// post chunks the text and delivers each piece in order.
func (h *Handler) post(ctx context.Context, channelID, text string) error {
	for _, chunk := range splitChunks(text, maxPostLen) {
		if err := h.sink.Post(ctx, channelID, chunk); err != nil {
			return fmt.Errorf("post reply: %w", err)
		}
	}
	return nil
}
