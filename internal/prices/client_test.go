package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const chartPayload = `{
	"chart": {
		"result": [{
			"meta": {"exchangeTimezoneName": "America/New_York"},
			"timestamp": [1754832600, 1754919000],
			"indicators": {
				"quote": [{"open": [100.5, 102.0], "close": [101.0, null]}],
				"adjclose": [{"adjclose": [100.9, null]}]
			}
		}],
		"error": null
	}
}`

func TestClient_DailySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("interval = %s, want 1d", got)
		}
		if got := r.URL.Query().Get("range"); got != "1mo" {
			t.Errorf("range = %s, want 1mo", got)
		}
		w.Write([]byte(chartPayload))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	series, err := client.DailySeries(context.Background(), "AAPL", time.Now().AddDate(0, 0, -10))
	if err != nil {
		t.Fatalf("DailySeries failed: %v", err)
	}

	if series.Ticker != "AAPL" {
		t.Errorf("Ticker = %s", series.Ticker)
	}
	if series.ExchangeTimeZone != "America/New_York" {
		t.Errorf("ExchangeTimeZone = %s", series.ExchangeTimeZone)
	}
	if len(series.Points) != 2 {
		t.Fatalf("len(Points) = %d, want 2", len(series.Points))
	}

	p0 := series.Points[0]
	if p0.Open == nil || *p0.Open != 100.5 {
		t.Errorf("Points[0].Open = %v, want 100.5", p0.Open)
	}
	if p0.Close == nil || *p0.Close != 101.0 {
		t.Errorf("Points[0].Close = %v, want 101.0", p0.Close)
	}
	if p0.AdjClose == nil || *p0.AdjClose != 100.9 {
		t.Errorf("Points[0].AdjClose = %v, want 100.9", p0.AdjClose)
	}

	// Nulls survive as nil, not zero.
	p1 := series.Points[1]
	if p1.Close != nil || p1.AdjClose != nil {
		t.Errorf("Points[1] nulls = %v/%v, want nil/nil", p1.Close, p1.AdjClose)
	}
}

func TestClient_DefaultTimezone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	series, err := client.DailySeries(context.Background(), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("DailySeries failed: %v", err)
	}
	if series.ExchangeTimeZone != "America/New_York" {
		t.Errorf("ExchangeTimeZone = %s, want the default", series.ExchangeTimeZone)
	}
}

func TestClient_ChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	if _, err := client.DailySeries(context.Background(), "GONE", time.Now()); err == nil {
		t.Fatal("expected an error for a chart error payload")
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(chartPayload))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(2))
	client.retryDelay = time.Millisecond
	if _, err := client.DailySeries(context.Background(), "AAPL", time.Now()); err != nil {
		t.Fatalf("DailySeries should succeed after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestRangeFor(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		daysAgo int
		want    string
	}{
		{1, "1mo"},
		{30, "1mo"},
		{31, "3mo"},
		{62, "3mo"},
		{63, "1y"},
		{370, "1y"},
		{371, "5y"},
		{2000, "5y"},
	}
	for _, tt := range tests {
		from := now.AddDate(0, 0, -tt.daysAgo)
		if got := rangeFor(from, now); got != tt.want {
			t.Errorf("rangeFor(%d days) = %s, want %s", tt.daysAgo, got, tt.want)
		}
	}
}
