// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/config"
	"github.com/jeranaias/gemsheets-tui/internal/storage"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit configuration",
	}
	cmd.AddCommand(
		newConfigShowCommand(opts),
		newConfigPathCommand(opts),
		newConfigInitCommand(opts),
		newSetClientIDCommand(opts),
		newClearClientIDCommand(opts),
	)
	return cmd
}

// configPath returns --config or the default TOML location.
func configPath(opts *rootOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.ConfigPathTOML()
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, labelStyle.Render("Config file:")+path)
			if cfg.Google.ClientIDFromEnv {
				fmt.Fprintln(out, labelStyle.Render("Client ID:")+"from GOOGLE_CLIENT_ID")
			}
			fmt.Fprintln(out, cfg.String())
			return nil
		},
	}
}

func newConfigPathCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render("Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// =============================================================================
// CLIENT IDENTIFIER
// =============================================================================

// openSettingsStore opens the key-value store named by the config.
func openSettingsStore(opts *rootOptions) (*config.Config, *storage.Settings, func(), error) {
	cfg, _, err := loadConfig(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.ephemeral {
		return cfg, storage.NewSettings(storage.NewMemoryKV()), func() {}, nil
	}
	db, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return cfg, storage.NewSettings(db), func() { db.Close() }, nil
}

func newSetClientIDCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-client-id <id>",
		Short: "Save the Google OAuth client ID used for sign-in",
		Long: `Save the Google OAuth client ID used for sign-in.

Create a Desktop OAuth client in the Google Cloud Console. It accepts the
loopback redirect (` + auth.LoopbackOrigin + `) on any port.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if err := auth.ValidateClientID(id); err != nil {
				return err
			}
			return saveClientID(cmd.Context(), cmd, opts, id)
		},
	}
}

func newClearClientIDCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-client-id",
		Short: "Remove the saved Google OAuth client ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveClientID(cmd.Context(), cmd, opts, "")
		},
	}
}

// saveClientID writes id to the settings store. A process that only edits
// settings holds no session, so there is nothing to sign out.
func saveClientID(ctx context.Context, cmd *cobra.Command, opts *rootOptions, id string) error {
	cfg, settings, closeFn, err := openSettingsStore(opts)
	if err != nil {
		return err
	}
	defer closeFn()

	saved, err := settings.SaveClientID(ctx, id)
	if err != nil {
		return fmt.Errorf("save client ID: %w", err)
	}

	out := cmd.OutOrStdout()
	if saved == "" {
		fmt.Fprintln(out, infoStyle.Render("Client ID cleared."))
	} else {
		fmt.Fprintln(out, infoStyle.Render("Client ID saved."))
	}
	if cfg.Google.ClientIDFromEnv {
		fmt.Fprintln(out, infoStyle.Render("Note: GOOGLE_CLIENT_ID is set and takes precedence."))
	}
	return nil
}
