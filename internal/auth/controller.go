// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// User-facing error texts.
const (
	MsgLoadFailed = "Failed to load Google Sign-In configuration."
	MsgInitFailed = "Failed to initialize Google Sign-In. Please check if your Client ID is correct " +
		"and the loopback redirect is allowed for it in your Google Cloud project. Error: "
	MsgNotReady     = "Google Sign-In is not ready. Please ensure a valid Client ID is saved."
	MsgUnknownError = "An unknown error occurred during authentication."
	MsgFetchFailed  = "Authentication succeeded, but failed to fetch user data: "
)

// ErrNotReady is returned by SignIn when no token client exists.
var ErrNotReady = errors.New("sign-in not ready")

// =============================================================================
// STATE
// =============================================================================

// Phase is the sign-in readiness of the Controller.
type Phase int

const (
	// PhaseNoScript means the provider metadata has not been loaded.
	PhaseNoScript Phase = iota
	// PhaseScriptLoaded means metadata is loaded but no identifier was applied yet.
	PhaseScriptLoaded
	// PhaseClientReady means a token client exists.
	PhaseClientReady
	// PhaseClientAbsent means the identifier is empty or invalid.
	PhaseClientAbsent
)

func (p Phase) String() string {
	switch p {
	case PhaseNoScript:
		return "no-script"
	case PhaseScriptLoaded:
		return "script-loaded"
	case PhaseClientReady:
		return "client-ready"
	case PhaseClientAbsent:
		return "client-absent"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// UserProfile is the signed-in user's public profile.
type UserProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// State is a snapshot of the identity.
//
// SignedIn implies AccessToken != "" and User != nil.
type State struct {
	Phase       Phase
	Initialized bool
	SignedIn    bool
	User        *UserProfile
	AccessToken string
	Error       string
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Identity returns the key exports use for this user: the email, or "".
func (s State) Identity() string {
	if s.User == nil {
		return ""
	}
	return s.User.Email
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	DiscoveryURL    string
	ClientSecret    string
	CallbackTimeout time.Duration
	HTTPClient      *http.Client
	// NewTokenClient builds token clients. Defaults to NewLoopbackTokenClient.
	NewTokenClient TokenClientFactory
	// Open shows a URL to the user.
	Open   func(url string) error
	Logger *zap.Logger
	// OnChange receives a copy of the state after every change.
	OnChange func(State)
}

// Controller owns the identity state and the token client.
type Controller struct {
	opts Options
	log  *zap.Logger
	hc   *http.Client

	mu         sync.Mutex
	state      State
	provider   *ProviderMetadata
	clientID   string
	client     TokenClient
	generation uint64

	bg sync.WaitGroup
}

// NewController creates a controller in PhaseNoScript.
func NewController(opts Options) *Controller {
	if opts.NewTokenClient == nil {
		opts.NewTokenClient = NewLoopbackTokenClient
	}
	if opts.DiscoveryURL == "" {
		opts.DiscoveryURL = DefaultDiscoveryURL
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Controller{opts: opts, log: log.Named("auth"), hc: hc}
}

// Load fetches the provider metadata and builds the token client for the
// current identifier.
func (c *Controller) Load(ctx context.Context) error {
	doc, err := LoadProvider(ctx, c.hc, c.opts.DiscoveryURL)

	c.mu.Lock()
	if err != nil {
		c.state.Error = MsgLoadFailed
		c.mu.Unlock()
		c.log.Error("provider load failed", zap.Error(err))
		c.notify()
		return err
	}
	c.provider = doc
	c.state.Initialized = true
	c.state.Phase = PhaseScriptLoaded
	c.rebuildLocked()
	c.mu.Unlock()

	c.notify()
	return nil
}

// SetClientID applies a new identifier. The token client is rebuilt when the
// provider is loaded.
func (c *Controller) SetClientID(id string) {
	id = strings.TrimSpace(id)

	c.mu.Lock()
	if id == c.clientID && c.state.Phase != PhaseNoScript && c.state.Phase != PhaseScriptLoaded {
		c.mu.Unlock()
		return
	}
	c.clientID = id
	c.rebuildLocked()
	c.mu.Unlock()

	c.notify()
}

// ClientID returns the identifier in use.
func (c *Controller) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// rebuildLocked replaces the token client. Callbacks from the previous one
// are ignored from here on.
func (c *Controller) rebuildLocked() {
	if c.provider == nil {
		return
	}
	c.generation++
	c.client = nil

	if c.clientID == "" {
		c.state.Phase = PhaseClientAbsent
		return
	}

	gen := c.generation
	client, err := c.opts.NewTokenClient(TokenClientConfig{
		ClientID:     c.clientID,
		ClientSecret: c.opts.ClientSecret,
		Provider:     c.provider,
		Scopes:       Scopes,
		Callback:     func(resp TokenResponse) { c.handleToken(gen, resp) },
		Open:         c.opts.Open,
		Timeout:      c.opts.CallbackTimeout,
		HTTPClient:   c.hc,
		Logger:       c.log,
	})
	if err != nil {
		c.state.Phase = PhaseClientAbsent
		c.state.Error = MsgInitFailed + err.Error()
		c.log.Warn("token client init failed", zap.Error(err))
		return
	}
	c.client = client
	c.state.Phase = PhaseClientReady
	if strings.HasPrefix(c.state.Error, MsgInitFailed) {
		c.state.Error = ""
	}
	c.log.Debug("token client ready", zap.Uint64("generation", gen))
}

// SignIn starts a token request. The result is applied asynchronously.
func (c *Controller) SignIn(ctx context.Context) error {
	c.mu.Lock()
	c.state.Error = ""
	client := c.client
	if client == nil {
		c.state.Error = MsgNotReady
	}
	c.mu.Unlock()
	c.notify()

	if client == nil {
		return ErrNotReady
	}
	client.RequestAccessToken(ctx)
	return nil
}

// handleToken applies a token response from the client of generation gen.
func (c *Controller) handleToken(gen uint64, resp TokenResponse) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Info("dropping token from replaced client", zap.Uint64("generation", gen))
		return
	}
	if resp.Error != "" || resp.AccessToken == "" {
		desc := resp.ErrorDescription
		if desc == "" {
			desc = MsgUnknownError
		}
		c.state.Error = desc
		c.mu.Unlock()
		c.log.Warn("token error", zap.String("error", resp.Error))
		c.notify()
		return
	}
	userinfoURL := c.provider.UserinfoEndpoint
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	profile, err := c.fetchUser(ctx, userinfoURL, resp.AccessToken)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Info("dropping token from replaced client", zap.Uint64("generation", gen))
		c.revokeAsync(resp.AccessToken)
		return
	}
	if err != nil {
		c.state.SignedIn = false
		c.state.User = nil
		c.state.AccessToken = ""
		c.state.Error = MsgFetchFailed + err.Error()
		c.mu.Unlock()
		c.log.Warn("userinfo failed", zap.Error(err))
		c.revokeAsync(resp.AccessToken)
		c.notify()
		return
	}
	c.state.AccessToken = resp.AccessToken
	c.state.User = profile
	c.state.SignedIn = true
	c.state.Error = ""
	c.mu.Unlock()

	c.log.Info("signed in", zap.String("email", profile.Email), zap.Int("token_len", len(resp.AccessToken)))
	c.notify()
}

func (c *Controller) fetchUser(ctx context.Context, endpoint, token string) (*UserProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var env struct {
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &env) == nil && env.ErrorDescription != "" {
			return nil, errors.New(env.ErrorDescription)
		}
		return nil, errors.New("Failed to fetch user info")
	}

	var profile UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &profile, nil
}

// SignOut drops the token and profile. A held token is revoked in the
// background.
func (c *Controller) SignOut() {
	c.mu.Lock()
	token := c.state.AccessToken
	c.state.SignedIn = false
	c.state.User = nil
	c.state.AccessToken = ""
	c.state.Error = ""
	c.mu.Unlock()

	if token != "" {
		c.revokeAsync(token)
	}
	c.log.Info("signed out")
	c.notify()
}

func (c *Controller) revokeAsync(token string) {
	c.mu.Lock()
	var endpoint string
	if c.provider != nil {
		endpoint = c.provider.RevocationEndpoint
	}
	c.mu.Unlock()
	if endpoint == "" {
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.revoke(ctx, endpoint, token); err != nil {
			c.log.Warn("revoke failed", zap.Error(err))
			return
		}
		c.log.Debug("token revoked")
	}()
}

func (c *Controller) revoke(ctx context.Context, endpoint, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke: %s", resp.Status)
	}
	return nil
}

// Wait blocks until background revocations finish.
func (c *Controller) Wait() {
	c.bg.Wait()
}

// State returns a copy of the identity state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) notify() {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(c.State())
}
