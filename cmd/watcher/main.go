// Package main provides the listing watcher service: a scheduled notifier
// that fetches the latest cryptocurrency listings, screens them against
// the persisted notified set and dispatches per-recipient notifications.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"listingwatch/internal/config"
	"listingwatch/internal/dispatch"
	"listingwatch/internal/domain"
	"listingwatch/internal/listings"
	"listingwatch/internal/notify"
	"listingwatch/internal/observability"
	"listingwatch/internal/scheduler"
	"listingwatch/internal/storage"
	"listingwatch/internal/storage/blob"
	chstore "listingwatch/internal/storage/clickhouse"
	"listingwatch/internal/storage/memory"
	"listingwatch/internal/storage/migrations"
	pgstore "listingwatch/internal/storage/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Scheduled new-listing notifier",
	Long: `Watcher polls a market-data API for recently added cryptocurrency
listings, deduplicates them against the persisted notified set and sends
one notification per new listing to every configured recipient.`,
	SilenceUsage: true,
	RunE:         runWatcher,
}

func init() {
	config.InitConfig(rootCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatcher(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(os.Stdout, "[watcher] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	notifiedStore, cleanupNotified, err := createNotifiedStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create notified store: %w", err)
	}
	defer cleanupNotified()

	dispatchLog, cleanupAudit, err := createDispatchLog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create dispatch log: %w", err)
	}
	defer cleanupAudit()
	if dispatchLog == nil {
		logger.Println("No ClickHouse DSN configured, audit logging disabled")
	}

	// Notification channel
	sender, err := createSender(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create %s sender: %w", cfg.Channel, err)
	}
	logger.Printf("Dispatching over %s to %d recipient(s)", cfg.Channel, len(cfg.Recipients))

	// Listings API client
	var clientOpts []listings.ClientOption
	if cfg.APIBaseURL != "" {
		clientOpts = append(clientOpts, listings.WithBaseURL(cfg.APIBaseURL))
	}
	source := listings.NewClient(cfg.APIKey, clientOpts...)

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Sender:      sender,
		Recipients:  cfg.Recipients,
		LinkBaseURL: cfg.LinkBaseURL,
		Logger:      log.New(os.Stdout, "[dispatch] ", log.LstdFlags|log.Lshortfile),
	})

	runner := scheduler.NewRunner(scheduler.Options{
		Source:         source,
		NotifiedStore:  notifiedStore,
		DispatchLog:    dispatchLog,
		Dispatcher:     dispatcher,
		Interval:       cfg.Interval,
		FetchLimit:     cfg.FetchLimit,
		Instance:       cfg.Instance,
		StorageBackend: cfg.Storage,
		Logger:         log.New(os.Stdout, "[scheduler] ", log.LstdFlags|log.Lshortfile),
	})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
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

	go startHTTPServer(cfg.MetricsAddr, runner, logger)

	err = runner.Run(ctx)
	close(done)

	if err != nil && err != context.Canceled {
		return fmt.Errorf("scheduler error: %w", err)
	}

	logger.Println("Shutdown complete")
	return nil
}

// createNotifiedStore builds the configured notified-set backend. Postgres
// migrations are applied before the store is handed out.
func createNotifiedStore(ctx context.Context, cfg *config.Config) (storage.NotifiedStore, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.NewNotifiedStore(), func() {}, nil

	case config.StorageBlob:
		return blob.NewNotifiedStore(cfg.BlobDir, cfg.BlobName), func() {}, nil

	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		return pgstore.NewNotifiedStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// createDispatchLog builds the audit-log store. An empty DSN disables
// audit logging; the returned store is nil and cleanup is a no-op.
func createDispatchLog(ctx context.Context, cfg *config.Config) (storage.DispatchLogStore, func(), error) {
	if cfg.ClickhouseDSN == "" {
		return nil, func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}
	return chstore.NewDispatchLogStore(conn), func() { conn.Close() }, nil
}

// createSender builds the sender for the configured channel.
func createSender(ctx context.Context, cfg *config.Config) (notify.Sender, error) {
	switch cfg.Channel {
	case domain.ChannelSMS:
		return notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom), nil
	case domain.ChannelEmail:
		return notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom), nil
	case domain.ChannelPush:
		return notify.NewFCMSender(ctx, cfg.FCMCredentialsPath)
	case domain.ChannelTelegram:
		return notify.NewTelegramSender(cfg.TelegramBotToken), nil
	default:
		return nil, fmt.Errorf("unknown channel %q", cfg.Channel)
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func startHTTPServer(addr string, runner *scheduler.Runner, logger *log.Logger) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runner.Stats())
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
