package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/scheduler"
)

func remindCmd() *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder job once, for every group or a single one",
		Long: "Runs the scheduled reminder job immediately. With --group only that group is " +
			"evaluated and no membership check is made.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				logger.Error("Configuration validation failed", "error", err)
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("Startup failed", "error", err)
				return err
			}
			defer a.release(logger)

			if groupID != "" {
				outcome, err := a.reminders.RemindGroup(ctx, groupID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "group %s: %s\n", groupID, outcome)
				return nil
			}

			sched, err := scheduler.New(a.reminders, cfg.SchedulerConfig(), logger)
			if err != nil {
				return err
			}
			summary, err := sched.RunNow(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "groups=%d sent=%d skipped=%d failed=%d tokens=%d\n",
				summary.Groups, summary.Sent, summary.Skipped, summary.Failed, summary.Tokens)
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "remind a single group by ID")
	return cmd
}
