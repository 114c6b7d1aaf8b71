package main

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aorestr/alpargatify/internal/config"
	"github.com/aorestr/alpargatify/internal/library"
	"github.com/aorestr/alpargatify/internal/log"
	"github.com/aorestr/alpargatify/internal/search"
	"github.com/aorestr/alpargatify/internal/subsonic"
)

// commandContext lazily builds shared application state so that
// subcommands only pay for what they use.
type commandContext struct {
	once   sync.Once
	cfg    *config.Config
	logger *slog.Logger
	err    error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensure loads configuration and the logger exactly once.
func (c *commandContext) ensure() (*config.Config, *slog.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.err = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.err = err
			return
		}
		logger, err := log.Setup(&cfg.Logging)
		if err != nil {
			c.err = fmt.Errorf("failed to set up logging: %w", err)
			return
		}
		c.cfg = cfg
		c.logger = logger
	})
	return c.cfg, c.logger, c.err
}

// libraryService wires the Subsonic client, the snapshot store, and the
// synchronization service.
func (c *commandContext) libraryService() (*library.Service, *subsonic.Client, error) {
	cfg, logger, err := c.ensure()
	if err != nil {
		return nil, nil, err
	}

	client := subsonic.NewClient(subsonic.Config{
		URL:         cfg.Server.URL,
		Username:    cfg.Server.Username,
		Password:    cfg.Server.Password,
		MusicFolder: cfg.Server.MusicFolder,
		Timeout:     time.Duration(cfg.Sync.RequestTimeout) * time.Second,
	}, logger)

	store := library.NewFileStore(cfg.Sync.CacheFile, logger)

	svc := library.NewService(client, client, store, logger, library.Options{
		PageSize: cfg.Sync.PageSize,
		Workers:  cfg.Sync.Workers,
		Expiry:   time.Duration(cfg.Sync.ExpiryDays) * 24 * time.Hour,
	})

	return svc, client, nil
}

// searcher returns a fresh search service.
func (c *commandContext) searcher() (*search.Service, error) {
	_, logger, err := c.ensure()
	if err != nil {
		return nil, err
	}
	return search.NewService(logger), nil
}

// botAPI connects to Telegram with the configured token.
func (c *commandContext) botAPI() (*tgbotapi.BotAPI, int64, error) {
	cfg, _, err := c.ensure()
	if err != nil {
		return nil, 0, err
	}
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return nil, 0, fmt.Errorf("telegram.token and telegram.chat_id are required for this command")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, cfg.Telegram.ChatID, nil
}
