// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/config"
	"github.com/jeranaias/gemsheets-tui/internal/ui"
)

// =============================================================================
// FULL-SCREEN INTERFACE
// =============================================================================

// runTUI starts the bubbletea program and blocks until it exits.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("the full-screen interface needs a terminal; use 'gemsheets chat' or 'gemsheets ask' instead")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier := ui.NewNotifier()
	a.hooks = hooks{
		chat:     notifier.ChatChanged,
		auth:     notifier.AuthChanged,
		notice:   notifier.NoticeChanged,
		settings: notifier.OpenSettings,
	}

	m := ui.New(ctx, ui.Deps{
		Chat:           a.chat,
		Auth:           a.auth,
		CSV:            a.csv,
		Sheets:         a.sheets,
		Notice:         a.notice,
		ClientIDs:      a.settings,
		ClientIDLocked: a.cfg.Google.ClientIDFromEnv,
		Theme:          ui.NewTheme(),
		Logger:         a.log,
		CopyText:       clipboard.WriteAll,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(p)

	if _, err := os.Stat(a.configPath); err == nil {
		if err := config.Watch(ctx, a.configPath, notifier.ConfigChanged); err != nil {
			a.log.Warn("config watch disabled", zap.Error(err))
		}
	}

	a.log.Info("tui started")
	_, err = p.Run()
	interrupted := ctx.Err() != nil
	cancel()
	if err != nil && !interrupted {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
