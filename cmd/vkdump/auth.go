package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"vkdump/pkg/auth"
	"vkdump/pkg/config"
	"vkdump/pkg/logger"
	"vkdump/pkg/ui"
	"vkdump/pkg/vk"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored VK access token",
	Long: `Manage the VK access token used for API requests.

The token is extracted from the OAuth redirect URL and kept in the most
secure store available: system keyring, then an encrypted file, with the
VKDUMP_ACCESS_TOKEN environment variable as a read-only fallback.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a VK access token",
	Long: `Store a VK access token for future runs.

Open the VK OAuth page in a browser, authorize the application and paste
the resulting redirect URL here. The URL is read without echo so the token
never appears on screen.`,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored token and whether it is still valid",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE:  runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	fmt.Print("OAuth redirect URL (input hidden): ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	token, err := auth.ExtractTokenFromOAuthURL(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("no access token found in URL: %w", err)
	}

	client := vk.NewClient(token, cfg.VK.RequestTimeout, logger.GetLogger())
	client.SetAPIVersion(cfg.VK.APIVersion)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if err := client.ValidateToken(ctx); err != nil {
		return fmt.Errorf("token rejected by VK API: %w", err)
	}

	if err := manager.Store(&auth.Token{AccessToken: token, LastModified: time.Now()}); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	ui.PrintSuccess("Token stored")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	token, err := manager.Retrieve()
	if err != nil {
		fmt.Println("No token stored")
		return nil
	}

	ui.PrintInfo("Token", auth.MaskToken(token.AccessToken))
	if !token.LastModified.IsZero() {
		ui.PrintInfo("Stored", token.LastModified.Format(time.RFC1123))
	}

	client := vk.NewClient(token.AccessToken, cfg.VK.RequestTimeout, logger.GetLogger())
	client.SetAPIVersion(cfg.VK.APIVersion)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if err := client.ValidateToken(ctx); err != nil {
		ui.PrintWarning("Token is no longer valid")
		os.Exit(1)
	}

	ui.PrintSuccess("Token is valid")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	if !manager.Exists() {
		fmt.Println("No token stored")
		return nil
	}

	if err := manager.Delete(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	ui.PrintSuccess("Token removed")
	return nil
}
