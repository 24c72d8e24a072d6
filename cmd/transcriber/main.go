package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/funlogix/Youtube-transcriber-api/internal/archive"
	"github.com/funlogix/Youtube-transcriber-api/internal/captions"
	"github.com/funlogix/Youtube-transcriber-api/internal/config"
	"github.com/funlogix/Youtube-transcriber-api/internal/httpserver"
	"github.com/funlogix/Youtube-transcriber-api/internal/logger"
	"github.com/funlogix/Youtube-transcriber-api/internal/media"
	"github.com/funlogix/Youtube-transcriber-api/internal/orchestrator"
	"github.com/funlogix/Youtube-transcriber-api/internal/quota"
	"github.com/funlogix/Youtube-transcriber-api/internal/store"
	"github.com/funlogix/Youtube-transcriber-api/internal/transcribe"
)

func main() {
	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	logger.Init("transcriber")
	ctx := context.Background()

	logger.Info(ctx, "starting transcriber", logger.Fields{
		"port":   cfg.Port,
		"engine": cfg.Engine,
	})

	var engine transcribe.Engine
	switch cfg.Engine {
	case config.EngineGroq:
		engine = transcribe.NewGroqEngine(transcribe.GroqConfig{
			APIURL:    cfg.GroqAPIURL,
			APIKey:    cfg.GroqAPIKey,
			Model:     cfg.GroqModel,
			MaxFileMB: cfg.GroqMaxFileMB,
			Timeout:   cfg.TranscribeTimeout,
		})
	case config.EngineWhisper:
		engine = transcribe.NewWhisperEngine(cfg.WhisperBin, cfg.WhisperModel)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Fetcher:    media.NewFetcher(cfg.YtdlpBin, cfg.FetchTimeout),
		Transcoder: media.NewTranscoder(),
		Prober:     media.NewProber(),
		Quota: quota.NewGovernor(quota.Limits{
			RequestsPerMinute:   cfg.GroqRequestsPerMinute,
			RequestsPerDay:      cfg.GroqRequestsPerDay,
			AudioSecondsPerHour: cfg.GroqAudioSecondsHour,
			AudioSecondsPerDay:  cfg.GroqAudioSecondsDay,
		}),
		Engine:         engine,
		Captions:       captions.NewClient(cfg.CaptionFetchesPerSecond),
		WorkDir:        cfg.WorkDir,
		PrimaryTimeout: cfg.TranscribeTimeout,
	})

	deps := httpserver.Deps{Transcriber: orch}

	if cfg.DatabaseURL != "" {
		st, err := store.NewStore(cfg.DatabaseURL)
		if err != nil {
			logger.Error(ctx, "failed to init transcript store", err)
			log.Fatalf("failed to init transcript store: %v", err)
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Error(ctx, "failed to ensure transcript schema", err)
			log.Fatalf("failed to ensure transcript schema: %v", err)
		}
		deps.Cache = st
		logger.Info(ctx, "transcript cache enabled")
	}

	if cfg.GCSBucket != "" {
		arch, err := archive.NewArchiver(ctx, cfg.GCSBucket)
		if err != nil {
			logger.Error(ctx, "failed to init transcript archiver", err)
			log.Fatalf("failed to init transcript archiver: %v", err)
		}
		defer arch.Close()
		deps.Archiver = arch
		logger.Info(ctx, "transcript archival enabled", logger.Fields{"bucket": cfg.GCSBucket})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpserver.NewHandler(cfg, deps),
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info(ctx, "received shutdown signal", logger.Fields{"signal": sig.String()})

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	logger.Info(ctx, "server starting", logger.Fields{"address": srv.Addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "server error", err)
		log.Fatalf("server error: %v", err)
	}

	logger.Info(ctx, "shutdown complete")
}
