package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticker-scanner/internal/chat"
	"ticker-scanner/internal/commands"
	"ticker-scanner/internal/config"
	"ticker-scanner/internal/domain"
	"ticker-scanner/internal/ingest"
	"ticker-scanner/internal/observability"
	"ticker-scanner/internal/prices"
	"ticker-scanner/internal/rank"
	"ticker-scanner/internal/storage"
	chstore "ticker-scanner/internal/storage/clickhouse"
	"ticker-scanner/internal/storage/jsonfile"
	"ticker-scanner/internal/storage/memory"
	pgstore "ticker-scanner/internal/storage/postgres"
	"ticker-scanner/internal/ticker"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	backfillOnly := flag.Bool("backfill-only", false, "Run one catch-up pass and exit")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scanner] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Fatalf("Config: %v", err)
	}

	// Start metrics server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		logger.Printf("Starting metrics server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, *backfillOnly)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.ScannerConfig, backfillOnly bool) error {
	universe, err := ticker.LoadUniverse(cfg.Universe.Path)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}
	logger.Printf("Universe loaded: %d symbols", universe.Size())

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	processor := ingest.NewProcessor(store, universe)

	if cfg.Store.Archive.Enabled {
		conn, err := chstore.NewConn(ctx, cfg.Store.Archive.DSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		archive := chstore.NewMentionArchive(conn)
		if err := archive.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
		processor = processor.WithArchive(archive)
	}

	rest := chat.NewRESTClient(cfg.Chat.RestURL, cfg.Chat.Token,
		chat.WithTimeout(cfg.Chat.Timeout),
		chat.WithMaxRetries(cfg.Chat.MaxRetries),
		chat.WithAgent(cfg.Chat.AgentID, cfg.Chat.AgentHandle),
		chat.WithGuild(cfg.Chat.GuildID),
	)

	// Catch up from checkpoints before going live.
	backfiller := ingest.NewBackfiller(ingest.BackfillOptions{
		History:     rest,
		Store:       store,
		Processor:   processor,
		Lookback:    cfg.Backfill.Lookback,
		PageSize:    cfg.Backfill.PageSize,
		PageRetries: cfg.Backfill.PageRetries,
		RetryDelay:  cfg.Backfill.RetryDelay,
		MaxItems:    cfg.Backfill.MaxItems,
		Logger:      logger,
	})
	result, err := backfiller.Run(ctx, cfg.Chat.Channels)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	logger.Printf("Backfill done: %d pages, %d messages, %d mentions in %s",
		result.PagesFetched, result.ItemsProcessed, result.MentionsAdded, result.Duration)

	if backfillOnly {
		return nil
	}

	gateway, err := chat.NewGateway(ctx, cfg.Chat.GatewayURL, rest, nil, logger)
	if err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	defer gateway.Close()

	loc, err := time.LoadLocation(cfg.Rank.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	priceClient := prices.NewClient(
		prices.WithBaseURL(cfg.Prices.BaseURL),
		prices.WithTimeout(cfg.Prices.Timeout),
		prices.WithMaxRetries(cfg.Prices.MaxRetries),
	)
	ranker := rank.NewRanker(rank.Options{
		Source:      priceClient,
		Concurrency: cfg.Rank.Concurrency,
		StartField:  domain.PriceField(cfg.Rank.StartField),
		EndField:    domain.PriceField(cfg.Rank.EndField),
		Logger:      logger,
	})
	handler := commands.NewHandler(commands.Options{
		Store:    store,
		Ranker:   ranker,
		Sink:     rest,
		Location: loc,
		HotLimit: cfg.Rank.HotLimit,
		Logger:   logger,
	})

	var sink chat.Sink
	if cfg.Chat.Echo {
		sink = rest
	}

	runner := ingest.NewLiveRunner(ingest.LiveOptions{
		Stream:    gateway,
		Processor: processor,
		Channels:  cfg.Chat.Channels,
		Sink:      sink,
		Commands:  commands.NewDispatcher(handler, logger),
		Logger:    logger,
	})
	logger.Printf("Live ingestion started on %d channel(s)", len(cfg.Chat.Channels))
	return runner.Run(ctx)
}

// openStore builds the configured mention store and its cleanup.
func openStore(ctx context.Context, cfg *config.ScannerConfig) (storage.MentionStore, func(), error) {
	switch cfg.Store.Backend {
	case "jsonfile":
		store, err := jsonfile.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open mention log: %w", err)
		}
		return store, func() {}, nil
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return pgstore.NewMentionStore(pool), pool.Close, nil
	case "memory":
		return memory.NewMentionStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
