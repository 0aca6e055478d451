package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "remindbot",
		Short:        "Date reminders over Telegram or WhatsApp",
		Long:         "remindbot stores dated reminders sent by chat and messages each recipient when their dates come up.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTickCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
