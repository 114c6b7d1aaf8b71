package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newSyncCommand(appCtx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local album cache against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, _, err := appCtx.libraryService()
			if err != nil {
				return err
			}

			albums, err := svc.Sync(ctx, force)
			if err != nil {
				return err
			}

			fmt.Printf("Cache up to date: %d albums\n", len(albums))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-fetch every album regardless of freshness")

	return cmd
}
