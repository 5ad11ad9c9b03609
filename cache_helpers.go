package main

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"spotapi-go/logcolors"
	"spotapi-go/services/spotify"
)

// Cache key builders

// metadataCacheKey identifies one page of a resource. Different limit/offset
// combinations cache separately so partial listings never shadow each other.
func metadataCacheKey(kind spotify.Kind, id string, limit, offset int) string {
	if limit == 0 && offset == 0 {
		return fmt.Sprintf("metadata:%s:%s", kind, id)
	}
	return fmt.Sprintf("metadata:%s:%s:l%d:o%d", kind, id, limit, offset)
}

func fullMetadataCacheKey(kind spotify.Kind, id string) string {
	return fmt.Sprintf("metadata:%s:%s:full", kind, id)
}

// Metadata cache operations

func getCachedMetadata(key string) (string, bool) {
	return persistentCache.Get(key)
}

func setCachedMetadata(key, value string) {
	if err := persistentCache.Set(key, value); err != nil {
		log.Errorf("%s Error setting cache value: %v", logcolors.LogCache, err)
	}
}

// Negative cache operations

// getNegativeCache checks if a resource is known to be missing.
// Returns the reason and true if found and not expired.
func getNegativeCache(key string) (string, bool) {
	negativeKey := "not_found:" + key
	cached, ok := persistentCache.Get(negativeKey)
	if !ok {
		return "", false
	}

	var entry NegativeCacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		return "", false
	}

	ttl := time.Duration(conf.Configuration.NegativeCacheTTLInSeconds) * time.Second
	if time.Now().Unix() > entry.Timestamp+int64(ttl.Seconds()) {
		persistentCache.Delete(negativeKey)
		return "", false
	}

	return entry.Reason, true
}

// setNegativeCache records a resource as missing so repeat lookups skip
// the upstream round trip.
func setNegativeCache(key, reason string) {
	negativeKey := "not_found:" + key
	entry := NegativeCacheEntry{
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("%s Error marshaling negative cache entry: %v", logcolors.LogCacheNegative, err)
		return
	}
	ttl := time.Duration(conf.Configuration.NegativeCacheTTLInSeconds) * time.Second
	if err := persistentCache.SetWithTTL(negativeKey, string(data), ttl); err != nil {
		log.Errorf("%s Error setting negative cache: %v", logcolors.LogCacheNegative, err)
	}
	log.Infof("%s Cached 'not found' for key: %s", logcolors.LogCacheNegative, key)
}
