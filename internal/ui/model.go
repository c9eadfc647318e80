// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/gemsheets-tui/internal/auth"
	"github.com/jeranaias/gemsheets-tui/internal/export"
	"github.com/jeranaias/gemsheets-tui/internal/model"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ChatService is the chat controller as seen by the view.
type ChatService interface {
	Initialize(ctx context.Context) error
	Send(ctx context.Context, text string) (bool, error)
	Loading() bool
	Err() string
	Store() *model.Store
}

// Identity is the identity controller as seen by the view.
type Identity interface {
	Load(ctx context.Context) error
	State() auth.State
	ClientID() string
	SetClientID(id string)
	SignIn(ctx context.Context) error
	SignOut()
}

// CSVExporter writes the transcript to a local file.
type CSVExporter interface {
	Export(msgs []model.Message) (string, error)
}

// SheetsExporter appends the transcript to a spreadsheet.
type SheetsExporter interface {
	Export(ctx context.Context, msgs []model.Message) error
	InFlight() bool
}

// ClientIDStore persists the client identifier entered in settings.
type ClientIDStore interface {
	ClientID(ctx context.Context) (string, error)
	SaveClientID(ctx context.Context, id string) (string, error)
}

// Deps wires the view to the controllers.
type Deps struct {
	Chat      ChatService
	Auth      Identity
	CSV       CSVExporter
	Sheets    SheetsExporter
	Notice    interface{ Text() string }
	ClientIDs ClientIDStore

	// ClientIDLocked makes the settings input read-only. Set when the
	// identifier comes from the environment.
	ClientIDLocked bool

	Theme    *Theme
	Logger   *zap.Logger
	CopyText func(string) error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root bubbletea model.
type Model struct {
	ctx  context.Context
	deps Deps
	log  *zap.Logger

	theme        *Theme
	keys         KeyMap
	settingsKeys SettingsKeyMap
	help         help.Model
	renderer     *glamour.TermRenderer

	viewport    viewport.Model
	input       textarea.Model
	clientInput textinput.Model
	spinner     spinner.Model

	width  int
	height int

	// Chat
	ready    bool
	sending  bool
	chatErr  string
	messages []model.Message

	// Export
	exporting bool
	notice    string

	// Identity
	auth     auth.State
	clientID string

	// Settings overlay
	settingsOpen bool
	settingsErr  string
	copyStatus   string
	copySeq      int
}

// New creates the root model. ctx bounds every command the view starts.
func New(ctx context.Context, deps Deps) Model {
	if deps.Theme == nil {
		deps.Theme = NewTheme()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.CopyText == nil {
		deps.CopyText = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	ci := textinput.New()
	ci.Prompt = "> "
	ci.Placeholder = "Enter your Google Client ID"
	ci.CharLimit = 256
	ci.SetValue(deps.Auth.ClientID())

	sp := spinner.New()
	sp.Spinner = spinner.Line

	m := Model{
		ctx:          ctx,
		deps:         deps,
		log:          deps.Logger.Named("ui"),
		theme:        deps.Theme,
		keys:         DefaultKeyMap(),
		settingsKeys: DefaultSettingsKeyMap(),
		help:         help.New(),
		viewport:     viewport.New(80, 20),
		input:        ta,
		clientInput:  ci,
		spinner:      sp,
		width:        80,
		height:       24,
		auth:         deps.Auth.State(),
		clientID:     deps.Auth.ClientID(),
	}
	if deps.Notice != nil {
		m.notice = deps.Notice.Text()
	}
	m.renderer = newRenderer(m.theme, m.width)
	m.syncBindings()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts chat initialization and provider loading.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.initChat(), m.loadAuth())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		if m.settingsOpen {
			return m.handleSettingsKey(msg)
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshTranscript()
		return m, cmd

	case chatReadyMsg:
		m.ready = msg.err == nil
		m.chatErr = m.deps.Chat.Err()
		m.refreshTranscript()

	case chatChangedMsg:
		m.chatErr = m.deps.Chat.Err()
		m.refreshTranscript()

	case sendDoneMsg:
		m.sending = false
		m.chatErr = m.deps.Chat.Err()
		if msg.err != nil {
			m.log.Debug("send failed", zap.Error(msg.err))
		}
		m.refreshTranscript()

	case authLoadedMsg, authStateMsg, signInMsg:
		m.applyAuthMsg(msg)

	case clientIDAppliedMsg:
		if msg.err != nil {
			m.settingsErr = "Failed to save the Client ID: " + msg.err.Error()
		} else {
			m.settingsErr = ""
			m.clientID = msg.id
			m.clientInput.SetValue(msg.id)
		}
		m.auth = m.deps.Auth.State()

	case noticeMsg:
		m.notice = msg.text

	case csvDoneMsg:
		m.refreshNotice()

	case sheetsDoneMsg:
		m.exporting = false
		m.refreshNotice()

	case openSettingsMsg:
		cmds = append(cmds, m.openSettings())

	case copyResultMsg:
		m.copySeq++
		if msg.err != nil {
			m.copyStatus = "Failed to copy"
			m.log.Warn("clipboard write failed", zap.Error(msg.err))
		} else {
			m.copyStatus = "Copied!"
		}
		cmds = append(cmds, clearCopyAfter(m.copySeq))

	case copyClearMsg:
		if msg.seq == m.copySeq {
			m.copyStatus = ""
		}

	case configReloadedMsg:
		cmds = append(cmds, m.handleConfigReload(msg))

	default:
		// Cursor blinks for both inputs.
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.clientInput, cmd = m.clientInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncBindings()
	return m, tea.Batch(cmds...)
}

// handleResize lays out the components for the new terminal size.
func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	m.input.SetWidth(max(msg.Width-2, 10))
	m.clientInput.Width = max(msg.Width-12, 10)
	m.help.Width = msg.Width

	// header, notice, error/spinner, input (3 + border), help
	chrome := 1 + 1 + 1 + m.input.Height() + 2 + 1
	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-chrome, 3)

	m.renderer = newRenderer(m.theme, msg.Width)
	m.refreshTranscript()
}

// handleKey handles keys in the chat view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Settings):
		return m, m.openSettings()

	case key.Matches(msg, m.keys.ExportCSV):
		if !m.canExportCSV() {
			return m, nil
		}
		return m, m.exportCSV()

	case key.Matches(msg, m.keys.ExportSheets):
		if !m.canExportSheets() {
			return m, nil
		}
		m.exporting = true
		m.syncBindings()
		return m, m.exportSheets()

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || !m.canSend() {
			return m, nil
		}
		m.input.Reset()
		m.sending = true
		m.syncBindings()
		return m, tea.Batch(m.send(text), m.spinner.Tick)

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.sending {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// CONTROL STATE
// =============================================================================

func (m Model) loading() bool {
	return m.sending || m.deps.Chat.Loading()
}

func (m Model) canSend() bool {
	return m.ready && !m.loading()
}

func (m Model) canExportCSV() bool {
	return export.HasConversation(m.messages)
}

func (m Model) canExportSheets() bool {
	return export.HasConversation(m.messages) && !m.exporting && !m.deps.Sheets.InFlight()
}

// syncBindings enables only the bindings whose control is usable, so the
// help line hides the rest.
func (m *Model) syncBindings() {
	m.keys.Send.SetEnabled(m.canSend())
	m.keys.Newline.SetEnabled(!m.loading())
	m.keys.ExportCSV.SetEnabled(m.canExportCSV())
	m.keys.ExportSheets.SetEnabled(m.canExportSheets())

	m.settingsKeys.Save.SetEnabled(!m.deps.ClientIDLocked)
	m.settingsKeys.Connect.SetEnabled(!m.auth.SignedIn && m.auth.Initialized && m.clientID != "")
	m.settingsKeys.Disconnect.SetEnabled(m.auth.SignedIn)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) initChat() tea.Cmd {
	chat := m.deps.Chat
	ctx := m.ctx
	return func() tea.Msg {
		return chatReadyMsg{err: chat.Initialize(ctx)}
	}
}

func (m Model) loadAuth() tea.Cmd {
	ident := m.deps.Auth
	ctx := m.ctx
	return func() tea.Msg {
		return authLoadedMsg{err: ident.Load(ctx)}
	}
}

func (m Model) send(text string) tea.Cmd {
	chat := m.deps.Chat
	ctx := m.ctx
	return func() tea.Msg {
		accepted, err := chat.Send(ctx, text)
		return sendDoneMsg{accepted: accepted, err: err}
	}
}

func (m Model) exportCSV() tea.Cmd {
	exp := m.deps.CSV
	msgs := m.deps.Chat.Store().Snapshot()
	return func() tea.Msg {
		path, err := exp.Export(msgs)
		return csvDoneMsg{path: path, err: err}
	}
}

func (m Model) exportSheets() tea.Cmd {
	exp := m.deps.Sheets
	msgs := m.deps.Chat.Store().Snapshot()
	ctx := m.ctx
	return func() tea.Msg {
		return sheetsDoneMsg{err: exp.Export(ctx, msgs)}
	}
}

// =============================================================================
// STATE REFRESH
// =============================================================================

// refreshTranscript re-renders the transcript and keeps it scrolled to the
// newest turn.
func (m *Model) refreshTranscript() {
	m.messages = m.deps.Chat.Store().Snapshot()
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) refreshNotice() {
	if m.deps.Notice != nil {
		m.notice = m.deps.Notice.Text()
	}
}

func (m *Model) applyAuthMsg(msg tea.Msg) {
	switch msg := msg.(type) {
	case authStateMsg:
		m.auth = msg.state
		return
	case authLoadedMsg:
		if msg.err != nil {
			m.log.Warn("sign-in configuration unavailable", zap.Error(msg.err))
		}
	case signInMsg:
		if msg.err != nil && !errors.Is(msg.err, auth.ErrNotReady) {
			m.log.Warn("sign-in failed to start", zap.Error(msg.err))
		}
	}
	m.auth = m.deps.Auth.State()
}
