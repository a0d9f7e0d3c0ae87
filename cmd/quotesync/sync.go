package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/app"
)

func newSyncCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge the remote quotes into the local store once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()

			deps, err := wire(ctx, c.cfg, c.logger, wireOptions{remote: true})
			if err != nil {
				return err
			}

			syncer, err := deps.newSynchronizer(c.cfg)
			if err != nil {
				return errors.Join(err, deps.Close(ctx))
			}

			defer func() {
				closeCtx := context.WithoutCancel(ctx)
				err = errors.Join(err, syncer.Shutdown(closeCtx), deps.Close(closeCtx))
			}()

			summary, err := syncer.SyncNow(ctx, app.TriggerCLI)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if summary.Unchanged() {
				fmt.Fprintln(out, app.MsgUpToDate)
			} else {
				fmt.Fprintln(out, app.MsgSynced)
			}

			fmt.Fprintf(out, "added %d, updated %d, total %d\n", summary.Added, summary.Updated, summary.Total)

			return nil
		},
	}
}
