package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "incident-service",
	Short: "Use of force incident reports and staff statements",
	Long: `Records use of force incident reports, collects statements from the
staff involved and chases outstanding statements by email.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, remindCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
