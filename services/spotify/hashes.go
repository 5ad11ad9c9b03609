package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"

	log "github.com/sirupsen/logrus"

	"spotapi-go/logcolors"
)

// Pathfinder operations served by the gateway
const (
	opGetTrack      = "getTrack"
	opGetAlbum      = "getAlbum"
	opFetchPlaylist = "fetchPlaylist"
)

// Persisted-query hashes shipped with the gateway. The web player pins one
// sha256 per operation; these go stale when Spotify redeploys, at which
// point the bundle scraper (FF_SCRAPE_QUERY_HASHES) or the
// SPOTIFY_*_QUERY_HASH env overrides take over.
var defaultQueryHashes = map[string]string{
	opGetTrack:      "26cd58ab86ebba80196c41c3d48a4324c619e9a9d7df26ecca22417e0c50c6a4",
	opGetAlbum:      "46ae954ef2d2fe7732b4b2b4022157b2e18b7ea84f70591ceb164e4de1b5d5d3",
	opFetchPlaylist: "b39f62e9b566aa849b1780927de1450f47e02c54abf1e66e513f96e849591e41",
}

type hashTable struct {
	mu    sync.RWMutex
	table map[string]string
}

func newHashTable(overrides map[string]string) *hashTable {
	table := make(map[string]string, len(defaultQueryHashes))
	for op, hash := range defaultQueryHashes {
		table[op] = hash
	}
	for op, hash := range overrides {
		if hash != "" {
			table[op] = hash
		}
	}
	return &hashTable{table: table}
}

func (h *hashTable) get(operation string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hash, ok := h.table[operation]
	if !ok {
		return "", fmt.Errorf("no persisted query hash for operation %s", operation)
	}
	return hash, nil
}

func (h *hashTable) set(operation, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.table[operation] = hash
}

var (
	bundleLinkRe = regexp.MustCompile(`https://open\.spotifycdn\.com/cdn/build/web-player/[\w.-]+\.js`)
	// e.g. "getTrack","query","26cd58ab..."  inside the web-player bundle
	queryHashRe = regexp.MustCompile(`"(getTrack|getAlbum|fetchPlaylist)"\s*,\s*"query"\s*,\s*"([0-9a-f]{64})"`)
)

// RefreshQueryHashes scrapes current persisted-query hashes out of the
// web-player JS bundles, the same place the browser gets them from.
// Defaults stay in place for any operation the scrape does not find.
func (c *Client) RefreshQueryHashes(ctx context.Context) error {
	page, err := c.fetchText(ctx, c.webPlayerURL+"/")
	if err != nil {
		return err
	}

	links := bundleLinkRe.FindAllString(page, -1)
	if len(links) == 0 {
		return &UpstreamError{Operation: "scrape_hashes", Message: "no web-player bundles found"}
	}

	found := 0
	for _, link := range links {
		bundle, err := c.fetchText(ctx, link)
		if err != nil {
			log.Warnf("%s Failed to fetch bundle %s: %v", logcolors.LogHashes, link, err)
			continue
		}

		for _, match := range queryHashRe.FindAllStringSubmatch(bundle, -1) {
			operation, hash := match[1], match[2]
			c.hashes.set(operation, hash)
			found++
			log.Infof("%s Updated %s hash from bundle", logcolors.LogHashes, operation)
		}
	}

	if found == 0 {
		return &UpstreamError{Operation: "scrape_hashes", Message: "no persisted query hashes found in bundles"}
	}
	return nil
}

func (c *Client) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &UpstreamError{Operation: "scrape_hashes", Message: "failed to create request", Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Operation: "scrape_hashes", Message: "fetch failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Operation: "scrape_hashes", StatusCode: resp.StatusCode, Message: "non-success fetching " + url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Operation: "scrape_hashes", Message: "failed to read body", Err: err}
	}
	return string(body), nil
}
