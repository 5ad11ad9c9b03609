package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                               string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond                 int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit                int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		CacheInvalidationIntervalInSeconds int    `envconfig:"CACHE_INVALIDATION_INTERVAL_IN_SECONDS" default:"3600"`
		MetadataCacheTTLInSeconds          int    `envconfig:"METADATA_CACHE_TTL_IN_SECONDS" default:"3600"`
		MemoryCacheMaxEntries              int    `envconfig:"MEMORY_CACHE_MAX_ENTRIES" default:"100"`
		NegativeCacheTTLInSeconds          int    `envconfig:"NEGATIVE_CACHE_TTL_IN_SECONDS" default:"600"`
		CacheDBPath                        string `envconfig:"CACHE_DB_PATH" default:"data/metadata_cache.db"`
		CacheBackupPath                    string `envconfig:"CACHE_BACKUP_PATH" default:"data/backups"`
		AdminAccessToken                   string `envconfig:"ADMIN_ACCESS_TOKEN" default:""`

		// Spotify web endpoints. Overridable so tests can point the
		// gateway at a local server.
		SpotifyWebPlayerURL  string `envconfig:"SPOTIFY_WEB_PLAYER_URL" default:"https://open.spotify.com"`
		SpotifyTokenURL      string `envconfig:"SPOTIFY_TOKEN_URL" default:"https://open.spotify.com/get_access_token"`
		SpotifyPartnerAPIURL string `envconfig:"SPOTIFY_PARTNER_API_URL" default:"https://api-partner.spotify.com/pathfinder/v1/query"`

		// Persisted query hashes. Empty means use the shipped defaults
		// (or whatever the bundle scraper finds).
		TrackQueryHash    string `envconfig:"SPOTIFY_TRACK_QUERY_HASH" default:""`
		AlbumQueryHash    string `envconfig:"SPOTIFY_ALBUM_QUERY_HASH" default:""`
		PlaylistQueryHash string `envconfig:"SPOTIFY_PLAYLIST_QUERY_HASH" default:""`

		UpstreamTimeoutInSeconds   int `envconfig:"UPSTREAM_TIMEOUT_IN_SECONDS" default:"10"`
		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"`
	}

	FeatureFlags struct {
		CacheCompression  bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		ScrapeQueryHashes bool `envconfig:"FF_SCRAPE_QUERY_HASHES" default:"false"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// Reload re-reads the environment into the package-level config.
// Only used by tests that tweak endpoint URLs.
func Reload() {
	conf = mustLoad()
}
