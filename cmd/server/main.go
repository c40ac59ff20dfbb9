package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"

	"quick-chat/auth"
	"quick-chat/domain/chat"
	httpserver "quick-chat/infrastructure/http/server"
	"quick-chat/internal"
	"quick-chat/media"
	"quick-chat/moderation"
	"quick-chat/observability"
	"quick-chat/repositories"
	"quick-chat/runtime"
	"quick-chat/runtime/workers"
	"quick-chat/search"
	"quick-chat/services"
)

// Exit codes to provide meaningful status to the operating system or service
// manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer (database cleanup included)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	auth.SetSigningKey(config.JWTSecret)

	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge + media directory)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	mediaStore, err := media.NewStore(config.MediaDir, logger)
	if err != nil {
		return exitRuntime, err
	}

	// 3. Moderation
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("censored words loading failed: %w", err)
	}
	logger.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(censored.Words), fmt.Sprint(censored.Languages)))

	moderator, err := moderation.NewModerator(censored.Words, charReplacement)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Real-time core
	monitoring := observability.NewMonitoringManager(logger)
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(logger, registry, monitoring, config.DeliveryTimeout)

	// 5. Repositories & services
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	messageIndex := search.NewMessageIndex(blugeWriter, logger)

	chatService := services.NewChatService(logger, messageRepository, userRepository,
		broker, &moderator, messageIndex, mediaStore, monitoring)
	authService := services.NewAuthService(userRepository, mediaStore, config.AuthTokenDuration)

	// 6. Supervised background workers
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewStatsRefreshWorker(monitoring))
	sup.Add(workers.NewHealthMonitoringWorker(logger, monitoring, config.MetricInterval))

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting supervised workers")
		sup.Run(ctx)
	}()

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort != 0 {
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		internal.StartDebugServer(db, config.DebugPort, "/inspect", MessageMapper, func() map[string]any {
			stats := monitoring.GetLatest()
			return map[string]any{
				"Delivered": stats.Delivered,
				"Buffered":  stats.Buffered,
				"Online":    stats.OnlineUsers,
			}
		})
	}

	// 8. HTTP server
	router := httpserver.NewRouter(
		logger,
		httpserver.NewAuthHandler(logger, authService),
		httpserver.NewMessageHandler(logger, chatService, mediaStore, config.SearchLimit),
		httpserver.NewWsHandler(logger, broker, config.ConnectionBufferSize),
		monitoring,
	)
	app := router.Build()

	errChan := make(chan error, 1)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := app.Listen(address); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}
	return options
}

// MessageMapper renders stored message rows in the debug inspector.
func MessageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	var message chat.Message
	if err := json.Unmarshal(val, &message); err != nil {
		return row
	}
	if message.ID == uuid.Nil {
		return row
	}

	row.Type = "MESSAGE"
	row.EntityID = message.ID.String()[:8]
	row.Timestamp = message.CreatedAt.Format("15:04:05")
	detail := message.Text
	if message.ImageRef != "" {
		detail += " [image:" + message.ImageRef + "]"
	}
	if message.Seen {
		detail += " (seen)"
	}
	row.Detail = detail
	return row
}
