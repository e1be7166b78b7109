package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/polyglot-bot/polyglot/internal/channels"
	"github.com/polyglot-bot/polyglot/internal/config"
	"github.com/polyglot-bot/polyglot/internal/dispatch"
	"github.com/polyglot-bot/polyglot/internal/gateway"
	"github.com/polyglot-bot/polyglot/internal/history"
	"github.com/polyglot-bot/polyglot/internal/languages"
	"github.com/polyglot-bot/polyglot/internal/logging"
	"github.com/polyglot-bot/polyglot/internal/translate"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Gateway.Port = port
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, flags.verbose || cfg.Log.Verbose)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override health server port")
	return cmd
}

// serve starts the health server first so the host sees the process alive,
// then fails if the bot cannot be configured.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry, err := languages.New(cfg.Languages...)
	if err != nil {
		return fmt.Errorf("invalid languages: %w", err)
	}

	server, err := gateway.NewServer(gateway.Options{
		Addr:           cfg.Gateway.Addr(),
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
		Version:        version,
		Languages:      registry.Codes(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Error("gateway shutdown error", "error", err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	backend, err := translate.NewOpenAIBackend(translate.OpenAIConfig{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Model:   cfg.Translator.Model,
		Proxy:   cfg.Translator.Proxy,
		Timeout: cfg.Translator.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize translator: %w", err)
	}
	translator, err := translate.NewGateway(registry, backend, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize translator: %w", err)
	}

	observers := []dispatch.Observer{server}
	if cfg.History.Enabled {
		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		observers = append(observers, store)
		logger.Info("request history enabled", "path", cfg.History.Path)
	}

	bot, err := channels.NewDiscordBot(channels.DiscordOptions{
		Token:         cfg.Discord.Token,
		CommandPrefix: cfg.Discord.CommandPrefix,
		IntroChannels: cfg.Discord.IntroChannels,
		Presence:      cfg.Discord.Presence,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	opts := dispatch.DefaultOptions()
	opts.Triggers = cfg.Discord.Triggers
	controller, err := dispatch.NewController(bot, translator, registry, logger, opts, observers...)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatch: %w", err)
	}
	bot.SetIntro(dispatch.IntroMessage(registry, controller.Trigger()))
	bot.SetHandler(controller)

	manager := channels.NewManager(logger, bot)
	server.SetStatusSource(manager)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}
	logger.Info("polyglot started", "languages", registry.Codes(), "model", cfg.Translator.Model)

	<-ctx.Done()
	logger.Info("shutting down")
	if err := manager.Stop(); err != nil {
		return fmt.Errorf("failed to stop channels: %w", err)
	}
	return nil
}
