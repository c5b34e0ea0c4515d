package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igstories/pkg/ui"
)

var (
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	accountName string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "igstories",
	Short: "Archive Instagram stories and live replays of the accounts you follow",
	Long: `igstories downloads the stories and finished livestreams currently visible
in your Instagram story tray, in the best available quality.

Files land under <root>/downloads/<username>_<userid>/{stories,livestories}/
and are never downloaded twice. Raw API responses are kept as JSON snapshots
and bundled into a compressed archive after each run.

Stories expire after 24 hours, so run 'igstories watch' to capture them
periodically.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		}
		if !quiet && (cmd.Name() == "run" || cmd.Name() == "watch") {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igstories.yaml or ~/.config/igstories/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "stored account to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")

	rootCmd.SetVersionTemplate(`igstories {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
