package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *ScannerConfig) Validate() error {
	if c.Chat.Token == "" {
		return errors.New("chat.token is required")
	}
	if c.Chat.GuildID == "" {
		return errors.New("chat.guild_id is required")
	}
	if len(c.Chat.Channels) == 0 {
		return errors.New("chat.channels must list at least one channel")
	}

	if c.Universe.Path == "" {
		return errors.New("universe.path is required")
	}

	switch c.Store.Backend {
	case "jsonfile":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the jsonfile backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be jsonfile, postgres, or memory, got %q", c.Store.Backend)
	}
	if c.Store.Archive.Enabled && c.Store.Archive.DSN == "" {
		return errors.New("store.archive.dsn is required when the archive is enabled")
	}

	if c.Backfill.PageSize < 1 {
		return errors.New("backfill.page_size must be >= 1")
	}
	if c.Backfill.MaxItems < 0 {
		return errors.New("backfill.max_items must be >= 0")
	}

	if c.Rank.Concurrency < 1 {
		return errors.New("rank.concurrency must be >= 1")
	}
	if err := validateField("rank.start_field", c.Rank.StartField); err != nil {
		return err
	}
	if err := validateField("rank.end_field", c.Rank.EndField); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Rank.Timezone); err != nil {
		return fmt.Errorf("rank.timezone: %w", err)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func validateField(name, value string) error {
	switch value {
	case "open", "close", "adjclose":
		return nil
	}
	return fmt.Errorf("%s must be open, close, or adjclose, got %q", name, value)
}
