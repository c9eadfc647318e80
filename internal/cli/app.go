// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/chat"
	"github.com/jeranaias/gemsheets-tui/internal/config"
	"github.com/jeranaias/gemsheets-tui/internal/export"
	"github.com/jeranaias/gemsheets-tui/internal/gemini"
	"github.com/jeranaias/gemsheets-tui/internal/logging"
	"github.com/jeranaias/gemsheets-tui/internal/model"
	"github.com/jeranaias/gemsheets-tui/internal/sheets"
	"github.com/jeranaias/gemsheets-tui/internal/storage"
	"github.com/jeranaias/gemsheets-tui/internal/util"
)

// =============================================================================
// APPLICATION GRAPH
// =============================================================================

// hooks forwards controller callbacks to whichever front end is running.
// They are assigned before any controller work starts.
type hooks struct {
	chat     func()
	auth     func(auth.State)
	notice   func(string)
	settings func()
}

// app is the component graph shared by every command.
type app struct {
	cfg        *config.Config
	configPath string
	log        *zap.Logger

	kv       storage.KV
	settings *storage.Settings
	targets  *storage.Targets

	chat   *chat.Controller
	auth   *auth.Controller
	notice *export.Notice
	csv    *export.LocalExporter
	sheets *export.RemoteExporter

	hooks hooks
}

// loadConfig reads --config when given, the default location otherwise.
func loadConfig(opts *rootOptions) (*config.Config, string, error) {
	if opts.configPath != "" {
		cfg, err := config.LoadFromPath(opts.configPath)
		return cfg, opts.configPath, err
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load()
	return cfg, path, err
}

// newApp builds the graph. The caller must Close it.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		if _, err := logging.ParseLevel(opts.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = opts.logLevel
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &app{cfg: cfg, configPath: path, log: log}

	if opts.ephemeral {
		a.kv = storage.NewMemoryKV()
	} else {
		db, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			_ = log.Sync()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.kv = db
	}
	a.settings = storage.NewSettings(a.kv)
	a.targets = storage.NewTargets(a.kv)

	saved, err := a.settings.ClientID(ctx)
	if err != nil {
		log.Warn("saved client ID unavailable", zap.Error(err))
	}
	clientID := cfg.ResolveClientID(saved)

	provider, err := opts.newProvider(ctx, cfg.Gemini.APIKey, log)
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		log.Warn("no Gemini API key configured")
		provider = nil
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("init gemini: %w", err)
	}

	a.chat = chat.New(model.NewStore(), provider, chat.Options{
		Model:    cfg.Gemini.Model,
		Logger:   log,
		OnChange: a.chatChanged,
	})

	a.auth = auth.NewController(auth.Options{
		DiscoveryURL:    cfg.Google.DiscoveryURL,
		ClientSecret:    cfg.Google.ClientSecret,
		CallbackTimeout: cfg.CallbackTimeout(),
		Open:            util.OpenURL,
		Logger:          log,
		OnChange:        a.authChanged,
	})
	a.auth.SetClientID(clientID)

	a.notice = export.NewNotice(cfg.StatusClearDelay(), a.noticeChanged)
	a.csv = export.NewLocalExporter(cfg.Export.OutputDir, a.notice, log)

	api := sheets.NewClient(
		sheets.WithBaseURL(cfg.Google.SheetsURL),
		sheets.WithLogger(log),
	)
	a.sheets = export.NewRemoteExporter(api, a.auth, a.targets, a.notice, export.RemoteOptions{
		SpreadsheetTitle: cfg.Export.SpreadsheetTitle,
		SheetTitle:       cfg.Export.SheetTitle,
		Open:             util.OpenURL,
		OpenSettings:     a.openSettings,
		Logger:           log,
	})

	log.Debug("app ready",
		zap.String("config", path),
		zap.Bool("ephemeral", opts.ephemeral),
		zap.Bool("has_client_id", clientID != ""),
		zap.Bool("has_provider", provider != nil),
	)
	return a, nil
}

// openSettings runs when a Sheets export needs a signed-in account. Only the
// full-screen front end has a settings screen.
func (a *app) openSettings() {
	if a.hooks.settings != nil {
		a.hooks.settings()
	}
}

func (a *app) chatChanged() {
	if a.hooks.chat != nil {
		a.hooks.chat()
	}
}

func (a *app) authChanged(s auth.State) {
	if a.hooks.auth != nil {
		a.hooks.auth(s)
	}
}

func (a *app) noticeChanged(text string) {
	if a.hooks.notice != nil {
		a.hooks.notice(text)
	}
}

// Close releases every resource. It is safe on a partially built app.
func (a *app) Close() {
	if a.notice != nil {
		a.notice.Stop()
	}
	if a.auth != nil {
		a.auth.Wait()
	}
	if c, ok := a.kv.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("close storage", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
