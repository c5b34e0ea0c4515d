package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igstories/pkg/auth"
	"igstories/pkg/ui"
)

var importName string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored session cookies",
	Long: `Manage the session cookies igstories sends to Instagram.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - IGSTORIES_* environment variables (read only)

Never share your session cookies.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store session cookies interactively",
	Long: `Prompt for ds_user_id, sessionid, csrftoken and mid and store them under
a local account name. Secret values are not echoed.`,
	Example: `  igstories auth login
  igstories auth login main`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var importCmd = &cobra.Command{
	Use:   "import <config.json>",
	Short: "Import cookies from a legacy config.json",
	Long: `Read a JSON file with ds_user_id, sessionid, csrftoken and optionally mid
keys and store it. The account is named after ds_user_id unless --name is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := auth.LoadLegacyFile(args[0], importName)
		if err != nil {
			return err
		}
		manager, err := auth.NewManager("")
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		if err := manager.Store(account); err != nil {
			return err
		}
		ui.PrintSuccess("Account saved: " + account.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager("")
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager("")
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			ui.PrintInfo("No stored accounts", "use 'igstories auth login' to add one")
			return nil
		}

		for i, account := range accounts {
			sanitized := auth.SanitizeAccount(account)
			fmt.Printf("%d. %s\n", i+1, ui.Cyan(sanitized.Username))
			fmt.Printf("   User ID:    %s\n", sanitized.UserID)
			fmt.Printf("   Session ID: %s\n", sanitized.SessionID)
			fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
			fmt.Printf("   Device ID:  %s\n", sanitized.DeviceID)
			if sanitized.UserAgent != "" {
				fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
			}
			if !sanitized.LastModified.IsZero() {
				fmt.Printf("   Modified:   %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
		}
		return nil
	},
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain where to find the session cookies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.WriteCookieGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, importCmd, logoutCmd, listCmd, guideCmd)
	importCmd.Flags().StringVar(&importName, "name", "", "local account name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.WriteCookieGuide(os.Stdout)
	fmt.Println()

	var name string
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	userID, err := prompt(reader, "ds_user_id: ")
	if err != nil {
		return err
	}
	if name == "" {
		name = userID
	}
	if existing, _ := manager.Retrieve(name); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Replace it? (y/N): ", name))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Print("sessionid (hidden): ")
	sessionID, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}
	fmt.Print("csrftoken (hidden): ")
	csrfToken, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read csrf token: %w", err)
	}
	deviceID, err := prompt(reader, "mid (Enter to generate): ")
	if err != nil {
		return err
	}
	userAgent, err := prompt(reader, "User agent (Enter for default): ")
	if err != nil {
		return err
	}

	account := &auth.Account{
		Username:  name,
		UserID:    userID,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		DeviceID:  deviceID,
		UserAgent: userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Account saved: " + name)
	ui.PrintInfo("Session ID", sanitized.SessionID)
	ui.PrintInfo("Device ID", sanitized.DeviceID)
	fmt.Printf("\nStart a run with:\n  igstories run --account %s\n", name)
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads without echo on a terminal and falls back to a plain
// line otherwise
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
