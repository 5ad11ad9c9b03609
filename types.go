package main

import (
	"context"
	"sync"
	"time"

	"spotapi-go/cache"
	"spotapi-go/services/spotify"
)

type contextKey string

const rateLimitTypeKey contextKey = "rateLimitType"

// metadataGateway is the upstream surface the handlers talk to. Satisfied by
// *spotify.Client in production and by stubs in tests.
type metadataGateway interface {
	GetTrack(ctx context.Context, id string) (*spotify.Track, error)
	GetAlbum(ctx context.Context, id string, limit, offset int) (*spotify.Album, error)
	GetPlaylist(ctx context.Context, id string, limit, offset int) (*spotify.Playlist, error)
	GetFullAlbum(ctx context.Context, id string) (*spotify.Album, error)
	GetFullPlaylist(ctx context.Context, id string) (*spotify.Playlist, error)
	BreakerStats() (state string, failures int, timeUntilRetry time.Duration)
	ResetBreaker()
	SimulateFailure()
	TokenStatus() (expiry time.Time, remaining time.Duration, needsRefresh bool)
}

// CacheDump represents the full cache contents
type CacheDump map[string]cache.CacheEntry

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	NegativeHits int64   `json:"negative_hits"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	NumberOfKeys int              `json:"number_of_keys"`
	SizeInKB     int              `json:"size_kb"`
	SizeInMB     float64          `json:"size_mb"`
	Performance  CachePerformance `json:"performance"`
	Cache        CacheDump        `json:"cache"`
}

// InFlightRequest tracks concurrent requests for the same resource
type InFlightRequest struct {
	wg     sync.WaitGroup
	result string
	err    error
}

// NegativeCacheEntry stores info about known-missing resources
type NegativeCacheEntry struct {
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}
