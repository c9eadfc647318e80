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
	"sync"
)

// DefaultDiscoveryURL is Google's OpenID configuration document.
const DefaultDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// ProviderMetadata holds the endpoints sign-in needs.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
}

func (m *ProviderMetadata) validate() error {
	switch {
	case m.AuthorizationEndpoint == "":
		return errors.New("missing authorization_endpoint")
	case m.TokenEndpoint == "":
		return errors.New("missing token_endpoint")
	case m.UserinfoEndpoint == "":
		return errors.New("missing userinfo_endpoint")
	}
	return nil
}

// providers caches successfully loaded documents for the life of the
// process, keyed by URL.
var providers = struct {
	mu   sync.Mutex
	docs map[string]*ProviderMetadata
}{docs: make(map[string]*ProviderMetadata)}

// LoadProvider returns the metadata at discoveryURL, fetching it at most once
// per process. Failed loads are not cached.
func LoadProvider(ctx context.Context, hc *http.Client, discoveryURL string) (*ProviderMetadata, error) {
	if discoveryURL == "" {
		discoveryURL = DefaultDiscoveryURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	// Held across the fetch so concurrent callers share one request.
	providers.mu.Lock()
	defer providers.mu.Unlock()

	if doc, ok := providers.docs[discoveryURL]; ok {
		return doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch discovery document: %s", resp.Status)
	}

	var doc ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}

	providers.docs[discoveryURL] = &doc
	return &doc, nil
}
