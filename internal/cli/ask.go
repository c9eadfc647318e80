// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// ASK COMMAND
// =============================================================================

func newAskCommand(opts *rootOptions) *cobra.Command {
	var csv bool

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Send one prompt and stream the answer to stdout",
		Example: `  gemsheets ask "Summarize the CAP theorem"
  gemsheets ask --csv "List three prime numbers"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("prompt is empty")
			}
			return runAsk(cmd, opts, prompt, csv)
		},
	}
	cmd.Flags().BoolVar(&csv, "csv", false, "also save the exchange as a CSV file")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *rootOptions, prompt string, csv bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := newStreamPrinter(out, a.chat.Store())
	a.hooks.chat = printer.update

	if err := a.chat.Initialize(ctx); err != nil {
		return errors.New(a.chat.Err())
	}

	_, err = a.chat.Send(ctx, prompt)
	printer.finish()
	if err != nil {
		return errors.New(a.chat.Err())
	}

	if csv {
		path, err := a.csv.Export(a.chat.Store().Snapshot())
		if err != nil {
			return fmt.Errorf("save csv: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), infoStyle.Render("Saved "+path))
	}
	return nil
}
