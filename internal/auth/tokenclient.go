// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Scopes requested at sign-in.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/spreadsheets",
}

// LoopbackOrigin is the redirect origin that must be allowed for the client
// identifier in the Google Cloud console.
const LoopbackOrigin = "http://127.0.0.1"

// DefaultCallbackTimeout bounds the wait for the browser redirect.
const DefaultCallbackTimeout = 3 * time.Minute

var clientIDPattern = regexp.MustCompile(`^[0-9]+-[0-9A-Za-z_]+\.apps\.googleusercontent\.com$`)

// ValidateClientID checks that id looks like a Google OAuth client identifier.
func ValidateClientID(id string) error {
	if !clientIDPattern.MatchString(id) {
		return fmt.Errorf("invalid client ID %q: expected <number>-<key>.apps.googleusercontent.com", id)
	}
	return nil
}

// TokenResponse is the outcome of one token request.
type TokenResponse struct {
	AccessToken      string
	Error            string
	ErrorDescription string
}

// TokenClient requests access tokens. Results arrive through the callback it
// was built with.
type TokenClient interface {
	// RequestAccessToken starts a request and returns immediately.
	RequestAccessToken(ctx context.Context)
}

// TokenClientConfig configures a TokenClient.
type TokenClientConfig struct {
	ClientID     string
	ClientSecret string
	Provider     *ProviderMetadata
	Scopes       []string
	Callback     func(TokenResponse)

	// Open shows the consent URL to the user.
	Open       func(url string) error
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// TokenClientFactory builds a TokenClient. It fails for configurations that
// can never succeed, such as a malformed client identifier.
type TokenClientFactory func(TokenClientConfig) (TokenClient, error)

// =============================================================================
// LOOPBACK TOKEN CLIENT
// =============================================================================

// LoopbackTokenClient runs the authorization code flow with PKCE, receiving
// the redirect on a local listener.
type LoopbackTokenClient struct {
	cfg TokenClientConfig
	log *zap.Logger
}

// NewLoopbackTokenClient is the default TokenClientFactory.
func NewLoopbackTokenClient(cfg TokenClientConfig) (TokenClient, error) {
	if err := ValidateClientID(cfg.ClientID); err != nil {
		return nil, err
	}
	if cfg.Provider == nil {
		return nil, errors.New("provider metadata not loaded")
	}
	if cfg.Callback == nil {
		return nil, errors.New("callback is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = Scopes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallbackTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &LoopbackTokenClient{cfg: cfg, log: log.Named("token")}, nil
}

// RequestAccessToken starts the flow in the background.
func (c *LoopbackTokenClient) RequestAccessToken(ctx context.Context) {
	go func() {
		token, err := c.run(ctx)
		if err != nil {
			c.log.Warn("token request failed", zap.Error(err))
			c.cfg.Callback(errorResponse(err))
			return
		}
		c.log.Info("token received", zap.Int("token_len", len(token.AccessToken)))
		c.cfg.Callback(TokenResponse{AccessToken: token.AccessToken})
	}()
}

// flowError carries an OAuth error code from the redirect.
type flowError struct {
	code        string
	description string
}

func (e *flowError) Error() string {
	if e.description != "" {
		return e.code + ": " + e.description
	}
	return e.code
}

func errorResponse(err error) TokenResponse {
	var fe *flowError
	if errors.As(err, &fe) {
		return TokenResponse{Error: fe.code, ErrorDescription: fe.description}
	}
	return TokenResponse{Error: "request_failed", ErrorDescription: err.Error()}
}

func (c *LoopbackTokenClient) run(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	defer ln.Close()

	oauthCfg := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://%s/callback", ln.Addr().String()),
		Scopes:       c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.Provider.AuthorizationEndpoint,
			TokenURL: c.cfg.Provider.TokenEndpoint,
		},
	}

	state, err := randomString(24)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			sendErr(errCh, &flowError{code: "state_mismatch", description: "The sign-in response did not match this request."})
			return
		}
		if code := q.Get("error"); code != "" {
			_, _ = io.WriteString(w, "Sign-in was not completed. You can close this tab.")
			sendErr(errCh, &flowError{code: code, description: q.Get("error_description")})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			sendErr(errCh, &flowError{code: "invalid_request", description: "The sign-in response had no authorization code."})
			return
		}
		_, _ = io.WriteString(w, "gemsheets sign-in complete. You can close this tab.")
		select {
		case codeCh <- code:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		_ = srv.Serve(ln)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthCfg.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.log.Debug("awaiting consent", zap.String("redirect", oauthCfg.RedirectURL))
	if c.cfg.Open != nil {
		if err := c.cfg.Open(authURL); err != nil {
			c.log.Warn("could not open browser", zap.Error(err), zap.String("url", authURL))
		}
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case code := <-codeCh:
		if c.cfg.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
		}
		token, err := oauthCfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, &flowError{
			code:        "timeout",
			description: fmt.Sprintf("Timed out waiting for the browser sign-in after %s.", c.cfg.Timeout),
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
