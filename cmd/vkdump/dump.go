package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"vkdump/pkg/auth"
	"vkdump/pkg/config"
	"vkdump/pkg/dumper"
	"vkdump/pkg/logger"
	"vkdump/pkg/ui"
	"vkdump/pkg/vk"
)

var (
	// Dump command flags
	convoLink  string
	outputDir  string
	concurrent int
	rateLimit  int
	stateFile  string
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Download all photos from a VK conversation",
	Long: `Download every photo attachment from a VK conversation into a local
folder.

The conversation is identified by its messenger link, for example:
  https://vk.com/im/convo/12345

Dialogs with bots or communities (negative peer IDs) are not supported.

Progress is checkpointed after every page: an interrupted run picks up where
it left off and never re-downloads files already on disk.`,
	Example: `  # Fully interactive
  vkdump dump

  # Non-interactive
  vkdump dump --link https://vk.com/im/convo/12345 --output ./photos

  # Custom concurrency
  vkdump dump --link https://vk.com/im/convo/12345 --output ./photos --concurrent 4`,
	Args: cobra.NoArgs,
	Run:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&convoLink, "link", "l", "", "conversation link (prompted when omitted)")
	dumpCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder for photos (prompted when omitted)")
	dumpCmd.Flags().IntVar(&concurrent, "concurrent", 6, "number of concurrent downloads")
	dumpCmd.Flags().IntVar(&rateLimit, "rate-limit", 3, "API requests per second")
	dumpCmd.Flags().StringVar(&stateFile, "state-file", "", "resume state file (default resume_state.json)")
}

func runDump(cmd *cobra.Command, args []string) {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent != 6 {
		flags["concurrency"] = concurrent
	}
	if rateLimit != 3 {
		flags["requests-per-second"] = rateLimit
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if stateFile != "" {
		cfg.Output.StateFile = stateFile
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("vkdump starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := resolveClient(ctx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nInterrupted by user")
			os.Exit(0)
		}
		ui.PrintError("Authentication failed", err.Error())
		os.Exit(1)
	}

	peerID, folder, err := resolveConversation(ctx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nInterrupted by user")
			os.Exit(0)
		}
		ui.PrintError("Invalid conversation", err.Error())
		os.Exit(1)
	}

	d, err := dumper.New(cfg, client, folder)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Conversation", fmt.Sprintf("%d", peerID))
	ui.PrintInfo("Output folder", folder)

	count, err := d.DownloadConversationPhotos(ctx, peerID, folder)
	switch {
	case err == nil:
		fmt.Printf("Done. Downloaded: %d\n", count)
	case errors.Is(err, context.Canceled):
		fmt.Printf("\nInterrupted by user. Downloaded: %d\n", count)
	default:
		reportFetchError(err)
		fmt.Printf("Downloaded: %d\n", count)
		os.Exit(1)
	}
}

// resolveClient returns a client whose token validated against the API.
// A stored token is revalidated first; otherwise the operator is prompted
// for an OAuth URL until a valid token is supplied.
func resolveClient(ctx context.Context, cfg *config.Config) (*vk.Client, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}

	if token, err := manager.Retrieve(); err == nil {
		client := vk.NewClient(token.AccessToken, cfg.VK.RequestTimeout, logger.GetLogger())
		client.SetAPIVersion(cfg.VK.APIVersion)
		if err := client.ValidateToken(ctx); err == nil {
			return client, nil
		}
		logger.GetLogger().Warn("stored token is no longer valid")
	}

	return promptForToken(ctx, cfg, manager)
}

// promptForToken loops until the operator supplies an OAuth URL carrying a
// valid token, then stores it for future runs.
func promptForToken(ctx context.Context, cfg *config.Config, manager *auth.Manager) (*vk.Client, error) {
	reader := bufio.NewReader(os.Stdin)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fmt.Print("OAuth URL: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}

		token, err := auth.ExtractTokenFromOAuthURL(strings.TrimSpace(line))
		if err != nil {
			ui.PrintError("Invalid OAuth URL")
			continue
		}

		client := vk.NewClient(token, cfg.VK.RequestTimeout, logger.GetLogger())
		client.SetAPIVersion(cfg.VK.APIVersion)
		if err := client.ValidateToken(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ui.PrintError("Invalid token")
			continue
		}

		if err := manager.Store(&auth.Token{AccessToken: token}); err != nil {
			logger.WithError(err).Warn("failed to store token")
		}

		return client, nil
	}
}

// resolveConversation returns the target peer ID and output folder, prompting
// for whatever the flags did not supply. Invalid input re-prompts, it never
// terminates the process.
func resolveConversation(ctx context.Context, cfg *config.Config) (int64, string, error) {
	reader := bufio.NewReader(os.Stdin)

	link := strings.TrimSpace(convoLink)
	folder := strings.TrimSpace(cfg.Output.Directory)

	for {
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}

		if link == "" {
			fmt.Print("Conversation link: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return 0, "", fmt.Errorf("failed to read input: %w", err)
			}
			link = strings.TrimSpace(line)
		}

		peerID, err := vk.ParseConversationLink(link)
		if err != nil {
			ui.PrintError("Invalid conversation link")
			link = ""
			continue
		}
		if err := vk.ValidatePeerID(peerID); err != nil {
			var vkErr *vk.Error
			if errors.As(err, &vkErr) {
				ui.PrintError(vkErr.Message)
			} else {
				ui.PrintError("Unsupported conversation")
			}
			link = ""
			continue
		}

		if folder == "" {
			fmt.Print("Output folder: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return 0, "", fmt.Errorf("failed to read input: %w", err)
			}
			folder = strings.TrimSpace(line)
			if folder == "" {
				ui.PrintError("Output folder is required")
				continue
			}
		}

		return peerID, folder, nil
	}
}

// reportFetchError prints a terse one-line failure message for the operator
func reportFetchError(err error) {
	var vkErr *vk.Error
	if errors.As(err, &vkErr) {
		ui.PrintError("VK API error", vkErr.Message)
		return
	}
	ui.PrintError("Unexpected error while requesting VK API")
}
