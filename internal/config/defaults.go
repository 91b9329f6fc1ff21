package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL         = "https://discord.com/api/v10"
	DefaultGatewayURL      = "wss://gateway.discord.gg/?v=10&encoding=json"
	DefaultChatTimeout     = 10 * time.Second
	DefaultChatMaxRetries  = 3
	DefaultStoreBackend    = "jsonfile"
	DefaultStorePath       = "data/mentions.json"
	DefaultLookback        = 14 * 24 * time.Hour
	DefaultPageSize        = 100
	DefaultPageRetries     = 2
	DefaultRetryDelay      = 2 * time.Second
	DefaultMaxItems        = 10000
	DefaultPricesURL       = "https://query1.finance.yahoo.com"
	DefaultPricesTimeout   = 10 * time.Second
	DefaultPricesRetries   = 2
	DefaultRankConcurrency = 3
	DefaultStartField      = "open"
	DefaultEndField        = "close"
	DefaultHotLimit        = 25
	DefaultTimezone        = "America/New_York"
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
)

func (c *ScannerConfig) applyDefaults() {
	// Chat defaults
	if c.Chat.RestURL == "" {
		c.Chat.RestURL = DefaultRestURL
	}
	if c.Chat.GatewayURL == "" {
		c.Chat.GatewayURL = DefaultGatewayURL
	}
	if c.Chat.Timeout == 0 {
		c.Chat.Timeout = DefaultChatTimeout
	}
	if c.Chat.MaxRetries == 0 {
		c.Chat.MaxRetries = DefaultChatMaxRetries
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}

	// Backfill defaults
	if c.Backfill.Lookback == 0 {
		c.Backfill.Lookback = DefaultLookback
	}
	if c.Backfill.PageSize == 0 {
		c.Backfill.PageSize = DefaultPageSize
	}
	if c.Backfill.PageRetries == 0 {
		c.Backfill.PageRetries = DefaultPageRetries
	}
	if c.Backfill.RetryDelay == 0 {
		c.Backfill.RetryDelay = DefaultRetryDelay
	}
	if c.Backfill.MaxItems == 0 {
		c.Backfill.MaxItems = DefaultMaxItems
	}

	// Prices defaults
	if c.Prices.BaseURL == "" {
		c.Prices.BaseURL = DefaultPricesURL
	}
	if c.Prices.Timeout == 0 {
		c.Prices.Timeout = DefaultPricesTimeout
	}
	if c.Prices.MaxRetries == 0 {
		c.Prices.MaxRetries = DefaultPricesRetries
	}

	// Rank defaults
	if c.Rank.Concurrency == 0 {
		c.Rank.Concurrency = DefaultRankConcurrency
	}
	if c.Rank.StartField == "" {
		c.Rank.StartField = DefaultStartField
	}
	if c.Rank.EndField == "" {
		c.Rank.EndField = DefaultEndField
	}
	if c.Rank.HotLimit == 0 {
		c.Rank.HotLimit = DefaultHotLimit
	}
	if c.Rank.Timezone == "" {
		c.Rank.Timezone = DefaultTimezone
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
