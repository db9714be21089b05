package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tudextra/inmopilot-ai/internal/config"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/llm"
	"github.com/tudextra/inmopilot-ai/internal/session"
	"github.com/tudextra/inmopilot-ai/internal/storage"
	"github.com/tudextra/inmopilot-ai/internal/web"
	"golang.org/x/sync/errgroup"
)

const (
	logFileName     = "inmopilot.log"
	shutdownTimeout = 30 * time.Second
)

func fatal(format string, args ...any) {
	log.Fatal().Msg(fmt.Sprintf(format, args...))
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env files
	config.LoadEnvFile()

	if missing := config.CheckRequiredConfig(); len(missing) > 0 {
		fatal("missing required config: %s", strings.Join(missing, ", "))
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatal("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		multiWriter := io.MultiWriter(consoleWriter, fileWriter)
		log.Logger = log.Output(multiWriter)

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid config: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fatal("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Generation journals are best effort
	journal, err := web.NewJournal(cfg.JournalDir)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize generation journal")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gemini, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, llm.GeminiOptions{
		Model:             cfg.Model,
		MaxImages:         cfg.MaxImages,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		fatal("failed to initialize gemini generator: %v", err)
	}
	log.Info().Str("model", gemini.Model()).Msg("gemini generator initialized")

	// Wrap with cache
	generator := llm.NewCachedGenerator(gemini, store).WithMaxAge(cfg.CacheMaxAge)
	log.Info().Dur("maxAge", cfg.CacheMaxAge).Msg("generation caching enabled")

	srv, err := web.NewServer(web.Options{
		Generator:     generator,
		Store:         store,
		Sessions:      session.NewStore(session.Options{MaxImages: cfg.MaxImages}),
		Downloader:    images.NewDownloader().WithMaxSize(cfg.MaxImageBytes),
		Journal:       journal,
		MaxImages:     cfg.MaxImages,
		MaxImageBytes: cfg.MaxImageBytes,
	})
	if err != nil {
		fatal("failed to initialize web server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
