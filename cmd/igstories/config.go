package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igstories/pkg/auth"
	"igstories/pkg/config"
	"igstories/pkg/ui"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the igstories configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Run 'igstories auth login' to store your session cookies")
	fmt.Println("2. Run 'igstories config validate' to check the configuration")
	fmt.Println("3. Start archiving with 'igstories run' or 'igstories watch'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	masked := auth.SanitizeAccount(&auth.Account{
		SessionID: display.Instagram.SessionID,
		CSRFToken: display.Instagram.CSRFToken,
	})
	if display.Instagram.SessionID != "" {
		display.Instagram.SessionID = masked.SessionID
	}
	if display.Instagram.CSRFToken != "" {
		display.Instagram.CSRFToken = masked.CSRFToken
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGSTORIES_*)")
	if source := configSource(); source != "" {
		fmt.Printf("3. Configuration file: %s\n", source)
	} else {
		fmt.Println("3. Configuration file: (none found)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configSource()
	if path == "" {
		return fmt.Errorf("no configuration file found; specify one with --config or run 'igstories config init'")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors", err)
		return fmt.Errorf("configuration is invalid")
	}

	var warnings []string
	if dir := cfg.Output.RootDirectory; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create output root: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Instagram.SessionID != "" {
		warnings = append(warnings, "session id is stored in the config file; prefer 'igstories auth login'")
	}
	for _, w := range warnings {
		ui.PrintWarning(w)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output root:      %s\n", cfg.Output.RootDirectory)
	fmt.Printf("  Concurrency:      %d\n", cfg.Download.Concurrency)
	fmt.Printf("  Rate limit:       %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Max attempts:     %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Watch interval:   %s\n", cfg.Schedule.Interval)
	fmt.Printf("  Log level:        %s\n", cfg.Logging.Level)
	return nil
}

func configSource() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}
