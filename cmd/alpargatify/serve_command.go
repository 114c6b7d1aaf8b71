package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/aorestr/alpargatify/internal/state"
	"github.com/aorestr/alpargatify/internal/telegram"
)

func newServeCommand(appCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the daily notification schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := appCtx.ensure()
			if err != nil {
				return err
			}

			svc, client, err := appCtx.libraryService()
			if err != nil {
				return err
			}
			searcher, err := appCtx.searcher()
			if err != nil {
				return err
			}
			api, chatID, err := appCtx.botAPI()
			if err != nil {
				return err
			}

			ledger, err := state.Open(cfg.Sync.LedgerFile)
			if err != nil {
				return fmt.Errorf("failed to open announcement ledger: %w", err)
			}
			defer ledger.Close()

			sender := telegram.NewSender(api, chatID, logger)
			digest := telegram.NewDigest(
				svc, ledger, sender,
				time.Duration(cfg.Schedule.RecentHours)*time.Hour,
				nil, logger,
			)
			bot := telegram.NewBot(api, chatID, svc, searcher, client, logger)

			spec, err := cronSpec(cfg.Schedule.Time)
			if err != nil {
				return err
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(spec, func() {
				if err := digest.Run(ctx); err != nil {
					logger.Error("scheduled digest failed", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("failed to schedule digest: %w", err)
			}

			if cfg.Schedule.RunOnStartup {
				if err := digest.Run(ctx); err != nil {
					logger.Error("startup digest failed", "error", err)
				}
			}

			scheduler.Start()
			defer scheduler.Stop()

			logger.Info("serving", "schedule", cfg.Schedule.Time)
			return bot.Run(ctx)
		},
	}
}

// cronSpec turns a "HH:MM" daily time into a cron expression.
func cronSpec(daily string) (string, error) {
	t, err := time.Parse("15:04", daily)
	if err != nil {
		return "", fmt.Errorf("invalid schedule.time %q, expected HH:MM: %w", daily, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
