/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package stackdriver

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// refreshWindow is how far ahead of expiry a cached token is considered
// stale, per spec §4.10 ("refreshed when within 60 s of expiry").
const refreshWindow = 60 * time.Second

// tokenCache exchanges a service-account JWT assertion for an OAuth2 access
// token and caches it until it is within refreshWindow of expiring.
type tokenCache struct {
	sa       ServiceAccount
	tokenURL string
	client   *http.Client

	key *rsa.PrivateKey

	mu    sync.Mutex
	cache *oauth2.Token
}

func newTokenCache(sa ServiceAccount, tokenURL string, client *http.Client) (*tokenCache, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("stackdriver: parse private key: %w", err)
	}
	return &tokenCache{sa: sa, tokenURL: tokenURL, client: client, key: key}, nil
}

// Token returns a valid access token, refreshing it if the cached one is
// missing or within refreshWindow of expiring.
func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil && time.Until(c.cache.Expiry) > refreshWindow {
		return c.cache.AccessToken, nil
	}

	tok, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.cache = tok
	return tok.AccessToken, nil
}

func (c *tokenCache) exchange(ctx context.Context) (*oauth2.Token, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.sa.ClientEmail,
		"scope": loggingScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("stackdriver: sign jwt assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stackdriver: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stackdriver: token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stackdriver: token exchange failed (%d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("stackdriver: decode token response: %w", err)
	}
	return &oauth2.Token{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
		Expiry:      now.Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}
