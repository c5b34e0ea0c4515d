package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igstories/pkg/checkpoint"
	"igstories/pkg/logger"
	"igstories/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the last run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		account, err := resolveAccount(cfg)
		if err != nil {
			return err
		}

		history, err := checkpoint.NewManager("", account.Username, logger.GetLogger())
		if err != nil {
			return err
		}
		record, err := history.Load()
		if err != nil {
			return err
		}
		if record == nil {
			ui.PrintInfo("No runs recorded for", account.Username)
			return nil
		}

		ui.PrintInfo("Account", record.Account)
		ui.PrintInfo("Last run", fmt.Sprintf("%s (%s ago)",
			record.Finished.Local().Format(time.RFC1123),
			time.Since(record.Finished).Round(time.Minute)))
		if record.Succeeded() {
			ui.PrintSuccess("Completed")
		} else {
			ui.PrintError("Failed", record.Error)
		}
		ui.PrintSummary(record.Summary)

		if prev, err := history.LoadPrevious(); err == nil && prev != nil {
			ui.PrintInfo("Run before", fmt.Sprintf("%s, %d downloaded",
				prev.Finished.Local().Format(time.RFC1123), prev.Summary.Downloaded))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
