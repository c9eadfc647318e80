// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/gemini"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ProviderFactory builds the model provider from the configured API key.
type ProviderFactory func(ctx context.Context, apiKey string, log *zap.Logger) (gemini.Provider, error)

func defaultProvider(ctx context.Context, apiKey string, log *zap.Logger) (gemini.Provider, error) {
	c, err := gemini.NewClient(ctx, apiKey, log)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// rootOptions holds the global flags and injectable dependencies.
type rootOptions struct {
	configPath string
	ephemeral  bool
	logLevel   string

	newProvider ProviderFactory
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{newProvider: defaultProvider})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "gemsheets",
		Short: "Chat with Gemini and export conversations to CSV or Google Sheets",
		Long: `gemsheets is a terminal chat client for Gemini.

Conversations can be saved as a CSV file or appended to a Google spreadsheet
after connecting a Google account from the settings screen (ctrl+o).

Run without arguments to start the full-screen interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.gemsheets/config.toml)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "keep saved settings in memory only")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newTUICommand(opts),
		newAskCommand(opts),
		newChatCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// =============================================================================
// SIMPLE COMMANDS
// =============================================================================

func newTUICommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gemsheets %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
