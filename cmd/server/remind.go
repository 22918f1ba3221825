package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/logging"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send due statement reminders once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup("info")
		cfg := config.Load()

		d, err := buildDeps(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		flushSentry := initSentry(cfg)
		defer flushSentry()

		sent, err := d.poller.Run(cmd.Context())
		if err != nil {
			slog.Error("statement reminder run failed", "sent", sent, "error", err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", sent)
		return nil
	},
}
