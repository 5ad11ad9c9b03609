package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"spotapi-go/cache"
	"spotapi-go/logcolors"
	"spotapi-go/middleware"
	"spotapi-go/stats"
)

func initPersistentCache() {
	var err error
	persistentCache, err = cache.NewPersistentCache(
		conf.Configuration.CacheDBPath,
		conf.Configuration.CacheBackupPath,
		conf.Configuration.MemoryCacheMaxEntries,
		time.Duration(conf.Configuration.MetadataCacheTTLInSeconds)*time.Second,
		conf.FeatureFlags.CacheCompression,
	)
	if err != nil {
		log.Fatalf("%s Failed to open persistent cache: %v", logcolors.LogCacheInit, err)
	}

	numKeys, sizeKB := persistentCache.Stats()
	log.Infof("%s Persistent cache ready: %d keys, %d KB", logcolors.LogCacheInit, numKeys, sizeKB)
}

func initStatsStore() {
	dbPath := filepath.Join(filepath.Dir(conf.Configuration.CacheDBPath), "server_stats.db")

	store, err := stats.NewStore(dbPath)
	if err != nil {
		log.Warnf("%s Stats persistence disabled: %v", logcolors.LogStats, err)
		return
	}
	statsStore = store

	if err := statsStore.Load(); err != nil {
		log.Warnf("%s Failed to restore stats: %v", logcolors.LogStats, err)
	}
	statsStore.StartPeriodicSave(5 * time.Minute)
}

// startCacheSweeper deletes expired disk entries on a fixed interval so the
// database does not grow unbounded between restarts.
func startCacheSweeper() {
	interval := time.Duration(conf.Configuration.CacheInvalidationIntervalInSeconds) * time.Second
	log.Infof("%s Starting cache sweeper, interval %v", logcolors.LogCacheSweep, interval)

	go func() {
		for {
			time.Sleep(interval)
			deleted, err := persistentCache.Sweep()
			if err != nil {
				log.Errorf("%s Sweep failed: %v", logcolors.LogCacheSweep, err)
				continue
			}
			if deleted > 0 {
				log.Infof("%s Deleted %d expired entries", logcolors.LogCacheSweep, deleted)
			}
		}
	}()
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := middleware.ClientIP(r)
		l := limiter.GetLimiter(ip)

		if !l.Allow() {
			stats.Get().RecordRateLimitExceeded()
			log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, ip)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Burst()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
