package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meet-hub/directory"
	"meet-hub/hub"
	"meet-hub/moderation"
	"meet-hub/observability"
	"meet-hub/presence"
	"meet-hub/repositories"
	"meet-hub/runtime/workers"
	"meet-hub/search"
	"meet-hub/wsserver"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB for messages, Bluge for search, SQLite for the directory)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	dir, err := directory.OpenSQLite(config.SQLiteFilepath)
	if err != nil {
		return fmt.Errorf("directory opening failed: %w", err)
	}

	// 3. Moderation
	words, err := moderation.LoadDefaultWords()
	if err != nil {
		return fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words.Words, config.ModerationCharReplacement, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 4. Core runtime
	metrics := observability.NewMetrics(log)
	meetingHub := hub.New(log, metrics, hub.DefaultShardCount)
	registry := presence.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log, config.HistoryLimit)

	indexer := workers.NewIndexer(log, index, config.IndexBufferSize)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(indexer)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)
	go metrics.Report(ctx.Done(), config.MetricsInterval)

	// 6. WebSocket & REST server
	server := wsserver.NewServer(wsserver.Deps{
		Log:            log,
		Hub:            meetingHub,
		Presence:       registry,
		Store:          messageRepository,
		Directory:      dir,
		Verifier:       directory.AllowAllVerifier(),
		Moderator:      &moderator,
		Indexer:        indexer,
		Metrics:        metrics,
		SinkBufferSize: config.ConnectionBufferSize,
	}, index, metrics)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)

	// Use an error channel to capture Listen() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.Listen(address); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	_ = server.Shutdown()
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
