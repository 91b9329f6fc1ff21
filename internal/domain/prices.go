package domain

import "time"

// DailyPoint is one daily candle. Fields are pointers because providers
// report gaps (halts, partial sessions) as nulls.
type DailyPoint struct {
	TradingDay time.Time // candle open instant as reported by the provider
	Open       *float64
	Close      *float64
	AdjClose   *float64
}

// PriceSeries is a fetched range of daily candles for one ticker.
// ExchangeTimeZone is the IANA zone of the ticker's home exchange;
// trading-day alignment must happen in that zone, never the caller's.
type PriceSeries struct {
	Ticker           string
	Points           []DailyPoint
	ExchangeTimeZone string
}

// PriceField selects which candle field a price is read from.
type PriceField string

const (
	FieldOpen     PriceField = "open"
	FieldClose    PriceField = "close"
	FieldAdjClose PriceField = "adjclose"
)

// At reads the selected field from a point. Returns false when the
// provider reported no value.
func (p DailyPoint) At(f PriceField) (float64, bool) {
	var v *float64
	switch f {
	case FieldOpen:
		v = p.Open
	case FieldAdjClose:
		v = p.AdjClose
	default:
		v = p.Close
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// RankedResult is one entry of a price-performance ranking.
type RankedResult struct {
	Ticker     string
	StartPrice float64
	EndPrice   float64
	PctChange  float64

	// Provenance of the anchor: when it was and who put it there.
	Anchor    time.Time
	UserName  string
	Permalink string
}
