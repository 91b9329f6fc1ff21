package config

import "time"

// ScannerConfig is the root configuration for a scanner instance.
type ScannerConfig struct {
	Chat     ChatConfig     `yaml:"chat"`
	Universe UniverseConfig `yaml:"universe"`
	Store    StoreConfig    `yaml:"store"`
	Backfill BackfillConfig `yaml:"backfill"`
	Prices   PricesConfig   `yaml:"prices"`
	Rank     RankConfig     `yaml:"rank"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ChatConfig holds connection settings for the chat platform.
type ChatConfig struct {
	RestURL     string        `yaml:"rest_url"`
	GatewayURL  string        `yaml:"gateway_url"`
	Token       string        `yaml:"token"`
	GuildID     string        `yaml:"guild_id"`
	Channels    []string      `yaml:"channels"`
	AgentID     string        `yaml:"agent_id"`
	AgentHandle string        `yaml:"agent_handle"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Echo        bool          `yaml:"echo"`
}

// UniverseConfig points at the valid-symbol list.
type UniverseConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects and configures the mention store backend.
type StoreConfig struct {
	// Backend is one of "jsonfile", "postgres", or "memory".
	Backend string `yaml:"backend"`
	// Path is the document location for the jsonfile backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
	// Archive, when set, mirrors accepted mentions into ClickHouse.
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig holds the optional analytics archive connection.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// BackfillConfig holds history catch-up settings.
type BackfillConfig struct {
	Lookback    time.Duration `yaml:"lookback"`
	PageSize    int           `yaml:"page_size"`
	PageRetries int           `yaml:"page_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxItems    int           `yaml:"max_items"`
}

// PricesConfig holds the price data provider settings.
type PricesConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// RankConfig holds hot-list computation settings.
type RankConfig struct {
	Concurrency int    `yaml:"concurrency"`
	StartField  string `yaml:"start_field"`
	EndField    string `yaml:"end_field"`
	HotLimit    int    `yaml:"hot_limit"`
	// Timezone is the location used for month boundaries.
	Timezone string `yaml:"timezone"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
