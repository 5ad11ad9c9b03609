package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"spotapi-go/circuitbreaker"
	"spotapi-go/config"
	"spotapi-go/logcolors"
	"spotapi-go/stats"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client talks to Spotify's browser-facing endpoints: the anonymous token
// handout on open.spotify.com and the pathfinder GraphQL API behind the web
// player. No API credentials are involved.
type Client struct {
	httpClient   *http.Client
	partnerURL   string
	tokenURL     string
	webPlayerURL string
	hashes       *hashTable
	token        tokenState
	breaker      *circuitbreaker.CircuitBreaker
}

// New builds a Client from the environment configuration
func New() *Client {
	conf := config.Get()

	c := &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(conf.Configuration.UpstreamTimeoutInSeconds) * time.Second,
		},
		partnerURL:   conf.Configuration.SpotifyPartnerAPIURL,
		tokenURL:     conf.Configuration.SpotifyTokenURL,
		webPlayerURL: conf.Configuration.SpotifyWebPlayerURL,
		hashes: newHashTable(map[string]string{
			opGetTrack:      conf.Configuration.TrackQueryHash,
			opGetAlbum:      conf.Configuration.AlbumQueryHash,
			opFetchPlaylist: conf.Configuration.PlaylistQueryHash,
		}),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      "Spotify-Pathfinder",
			Threshold: conf.Configuration.CircuitBreakerThreshold,
			Cooldown:  time.Duration(conf.Configuration.CircuitBreakerCooldownSecs) * time.Second,
		}),
	}

	if conf.FeatureFlags.ScrapeQueryHashes {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := c.RefreshQueryHashes(ctx); err != nil {
				log.Warnf("%s Bundle scrape failed, keeping shipped hashes: %v", logcolors.LogHashes, err)
			}
		}()
	}

	return c
}

// query issues one pathfinder request and returns the raw `data` payload.
// The circuit breaker wraps the whole exchange including the token fetch.
func (c *Client) query(ctx context.Context, operation string, variables map[string]interface{}) (json.RawMessage, error) {
	if !c.breaker.Allow() {
		return nil, circuitbreaker.ErrCircuitOpen
	}

	data, err := c.queryOnce(ctx, operation, variables)
	if err != nil {
		c.breaker.RecordFailure()
		stats.Get().RecordUpstream(true)
		return nil, err
	}

	c.breaker.RecordSuccess()
	stats.Get().RecordUpstream(false)
	return data, nil
}

func (c *Client) queryOnce(ctx context.Context, operation string, variables map[string]interface{}) (json.RawMessage, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := c.hashes.get(operation)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "missing query hash", Err: err}
	}

	variablesJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "failed to encode variables", Err: err}
	}
	extensionsJSON, err := json.Marshal(map[string]interface{}{
		"persistedQuery": map[string]interface{}{
			"version":    1,
			"sha256Hash": hash,
		},
	})
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "failed to encode extensions", Err: err}
	}

	params := url.Values{}
	params.Set("operationName", operation)
	params.Set("variables", string(variablesJSON))
	params.Set("extensions", string(extensionsJSON))

	requestURL := c.partnerURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "failed to create request", Err: err}
	}
	setBrowserHeaders(req)
	req.Header.Set("Authorization", "Bearer "+token)

	log.Debugf("%s %s %s", logcolors.LogUpstream, operation, variables["uri"])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "pathfinder unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Token went stale; drop it so the next request fetches a new one
		c.invalidateToken()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "pathfinder returned non-success",
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "failed to read response", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{Operation: operation, Message: "unparsable response", Err: err}
	}
	if len(env.Errors) > 0 {
		return nil, &UpstreamError{Operation: operation, Message: "pathfinder error: " + env.Errors[0].Message}
	}
	if len(env.Data) == 0 {
		return nil, &UpstreamError{Operation: operation, Message: "response missing data"}
	}

	return env.Data, nil
}
