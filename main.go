package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guanke/assistbot/api"
	"github.com/guanke/assistbot/internal/bot"
	"github.com/guanke/assistbot/internal/chat"
	"github.com/guanke/assistbot/internal/config"
	"github.com/guanke/assistbot/internal/logger"
	"github.com/guanke/assistbot/internal/r2"
	"github.com/guanke/assistbot/internal/search"
	"github.com/guanke/assistbot/internal/sentiment"
	"github.com/guanke/assistbot/internal/store"
	"github.com/guanke/assistbot/internal/telegram"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile, logLevel, logFormat string

	cmd := &cobra.Command{
		Use:           "assistbot",
		Short:         "Telegram assistant backed by a generation API and web search",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "load config: %v\n", err)
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if _, err := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}); err != nil {
				fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
				return err
			}
			if err := run(cmd.Context(), cfg); err != nil {
				slog.Error("server stopped", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to preload (ignored when absent)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "text or json")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := store.Open(openCtx, cfg.StoreURI, cfg.StoreDatabase)
	cancel()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	generator, err := chat.NewClient(cfg.GenAIKey, cfg.GenAIBaseURL, cfg.GenAIModel)
	if err != nil {
		return fmt.Errorf("init generation client: %w", err)
	}
	searcher, err := search.NewClient(cfg.SerpAPIKey, cfg.SerpAPIBaseURL)
	if err != nil {
		return fmt.Errorf("init search client: %w", err)
	}

	tgBot, err := telegram.New(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}

	deps := bot.Deps{
		Store:     st,
		Messenger: tgBot,
		Generator: generator,
		Searcher:  searcher,
		Scorer:    sentiment.New(),
		Timeout:   cfg.RequestTimeout,
		Logger:    slog.Default(),
	}
	if cfg.R2Enabled() {
		archive, err := r2.New(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicURL)
		if err != nil {
			return fmt.Errorf("init R2: %w", err)
		}
		deps.Archiver = archive
	}
	dispatcher, err := bot.New(deps)
	if err != nil {
		return err
	}
	slog.Info("assistant ready", "model", generator.Model(), "archive", cfg.R2Enabled())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tgBot.Run(ctx, dispatcher.Dispatch)
	})

	if cfg.HealthAddr != "" {
		srv := api.NewServer(cfg.HealthAddr, st)
		g.Go(func() error {
			slog.Info("health endpoint listening", "addr", cfg.HealthAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
