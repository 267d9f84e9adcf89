package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"weibocrawl/pkg/credentials"
	"weibocrawl/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Weibo session",
	Long: `Manage the Weibo session cookie used by crawl.

Sessions are stored in the system keychain when one is available, otherwise
in an encrypted file. WEIBO_COOKIE is read as a last resort.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session cookie",
	Long: `Store the Cookie header of a logged-in weibo.com session.

The cookie must carry SUB or WBPSESS. Input is hidden when stdin is a terminal.`,
	Example: `  weibocrawl auth login
  weibocrawl auth login --account research`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	authCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "account name")
	loginCmd.Flags().String("user-agent", "", "User-Agent of the browser the cookie came from")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return err
	}

	credentials.ShowCookieGuide(os.Stdout)
	fmt.Print("Cookie: ")
	cookie, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read cookie: %w", err)
	}
	userAgent, _ := cmd.Flags().GetString("user-agent")

	account := &credentials.Account{
		Name:      accountName,
		Cookie:    strings.TrimSpace(cookie),
		UserAgent: userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Session saved as %s", account.Name))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Delete(accountName); err != nil {
		if errors.Is(err, credentials.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored session")
			return nil
		}
		return err
	}
	ui.PrintSuccess("Session removed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager()
	if err != nil {
		return err
	}
	account, err := manager.Retrieve(accountName)
	if err != nil {
		if errors.Is(err, credentials.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored session, crawls run anonymously")
			return nil
		}
		return err
	}

	safe := credentials.SanitizeAccount(account)
	ui.PrintInfo("Account", safe.Name)
	ui.PrintInfo("Cookie", safe.Cookie)
	if !credentials.HasSession(account.Cookie) {
		ui.PrintWarning("The stored cookie carries no SUB or WBPSESS session")
	}
	if safe.UserAgent != "" {
		ui.PrintInfo("User-Agent", safe.UserAgent)
	}
	if !safe.LastModified.IsZero() {
		ui.PrintInfo("Saved", safe.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

// readPassword reads a line from stdin without echoing when stdin is a
// terminal.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
