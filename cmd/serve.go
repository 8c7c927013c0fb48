package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfmyers9/onair/internal/api"
	"github.com/jfmyers9/onair/internal/config"
	"github.com/jfmyers9/onair/internal/pusher"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveLogFile  string
	serveLogLevel string
	serveAddr     string
	serveStatic   bool
	serveNoPush   bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playlist server",
	Long: `Run the playlist server.

The server will:
- Build the playlist once at startup
- Hold a push connection to the station and rebuild on every update
- Reconnect with exponential backoff when the push connection drops
- Keep serving the last good playlist when an upstream fails
- Serve /api/{albums,artists,songs,tracks}, /healthz and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

The server runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Command-line flags
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveStatic, "static", false, "Use the pre-recorded now-playing list instead of the live feed")
	serveCmd.Flags().BoolVar(&serveNoPush, "no-push", false, "Do not open the push connection")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveStatic {
		cfg.Source = config.SourceStatic
	}
	if serveNoPush {
		cfg.Push.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Set up logging
	logger := setupLogger(serveLogFile, serveLogLevel)

	logger.Info().
		Str("version", version).
		Str("source", cfg.Source).
		Str("addr", cfg.Server.Addr).
		Bool("push", cfg.Push.Enabled).
		Msg("Starting onair server")

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if p.lookups != nil {
			if _, err := p.lookups.Cleanup(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("Failed to cleanup lookup cache")
			}
		}
		if err := p.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close lookup cache")
		}
	}()

	var listener *pusher.Listener
	if cfg.Push.Enabled {
		listener, err = pusher.New(pusher.Config{
			URL:        cfg.Push.URL,
			BaseDelay:  cfg.Push.BaseDelay,
			MaxDelay:   cfg.Push.MaxDelay,
			Jitter:     cfg.Push.Jitter,
			MaxRetries: cfg.Push.MaxRetries,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create push listener: %w", err)
		}
	}

	router := api.NewRouter(api.Config{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateLimitWindow: time.Minute,
	}, p.cache, logger)
	server := api.NewServer(cfg.Server.Addr, router, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := serve(ctx, p, listener, server, logger); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// serve runs the aggregator, push listener and HTTP server until ctx is
// cancelled or one of them fails
func serve(ctx context.Context, p *pipeline, listener *pusher.Listener, server *api.Server, logger zerolog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	var signals <-chan struct{}
	if listener != nil {
		signals = listener.Signals()
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start push listener: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			listener.Stop()
			return nil
		})
	}

	g.Go(func() error {
		return p.aggregator.Run(ctx, signals)
	})

	g.Go(func() error {
		return server.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
