package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"spotapi-go/logcolors"
)

// Refresh the token when it has less than this time remaining
const tokenRefreshThreshold = time.Minute

// accessToken is the payload served by open.spotify.com/get_access_token.
// No credentials involved: the web player hands these out to any browser.
type accessToken struct {
	AccessToken                      string `json:"accessToken"`
	AccessTokenExpirationTimestampMs int64  `json:"accessTokenExpirationTimestampMs"`
	ClientID                         string `json:"clientId"`
	IsAnonymous                      bool   `json:"isAnonymous"`
}

type tokenState struct {
	mu     sync.RWMutex
	value  string
	expiry time.Time
}

func (t *tokenState) expiringSoon() bool {
	if t.expiry.IsZero() {
		return true
	}
	return time.Now().Add(tokenRefreshThreshold).After(t.expiry)
}

// getAccessToken returns the cached anonymous token, fetching a fresh one
// when missing or near expiry.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.token.mu.RLock()
	if c.token.value != "" && !c.token.expiringSoon() {
		defer c.token.mu.RUnlock()
		return c.token.value, nil
	}
	c.token.mu.RUnlock()

	return c.refreshAccessToken(ctx)
}

func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	c.token.mu.Lock()
	defer c.token.mu.Unlock()

	// Double-check after acquiring the write lock
	if c.token.value != "" && !c.token.expiringSoon() {
		return c.token.value, nil
	}

	log.Infof("%s Refreshing anonymous access token...", logcolors.LogToken)

	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		return "", err
	}

	expiry := time.UnixMilli(token.AccessTokenExpirationTimestampMs)
	if token.AccessTokenExpirationTimestampMs == 0 {
		// No expiry in the payload; assume the usual one hour
		expiry = time.Now().Add(time.Hour)
	}

	c.token.value = token.AccessToken
	c.token.expiry = expiry

	log.Infof("%s Token refreshed (anonymous: %v), expires in %v",
		logcolors.LogToken, token.IsAnonymous, time.Until(expiry).Round(time.Second))

	return token.AccessToken, nil
}

// invalidateToken drops the cached token so the next request fetches a new one
func (c *Client) invalidateToken() {
	c.token.mu.Lock()
	defer c.token.mu.Unlock()
	c.token.value = ""
	c.token.expiry = time.Time{}
}

func (c *Client) fetchAccessToken(ctx context.Context) (*accessToken, error) {
	url := c.tokenURL + "?reason=transport&productType=web_player"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Operation: "get_access_token", Message: "failed to create request", Err: err}
	}
	setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Operation: "get_access_token", Message: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Operation:  "get_access_token",
			StatusCode: resp.StatusCode,
			Message:    "token endpoint returned non-success",
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: "get_access_token", Message: "failed to read token response", Err: err}
	}

	var token accessToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &UpstreamError{Operation: "get_access_token", Message: "unparsable token response", Err: err}
	}
	if token.AccessToken == "" {
		return nil, &UpstreamError{Operation: "get_access_token", Message: "token response missing accessToken"}
	}

	return &token, nil
}

// TokenStatus reports the cached token's expiry for /health
func (c *Client) TokenStatus() (expiry time.Time, remaining time.Duration, needsRefresh bool) {
	c.token.mu.RLock()
	defer c.token.mu.RUnlock()

	if c.token.expiry.IsZero() {
		return time.Time{}, 0, true
	}
	return c.token.expiry, time.Until(c.token.expiry), c.token.expiringSoon()
}

// setBrowserHeaders mimics a regular web player session
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Origin", "https://open.spotify.com")
	req.Header.Set("Referer", "https://open.spotify.com/")
	req.Header.Set("App-Platform", "WebPlayer")
}
