package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"spotapi-go/cache"
	"spotapi-go/circuitbreaker"
	"spotapi-go/logcolors"
	"spotapi-go/services/spotify"
	"spotapi-go/stats"
)

var inFlightReqs sync.Map

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token := conf.Configuration.AdminAccessToken
	if token == "" || r.Header.Get("Authorization") != token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// Metadata handlers

func getTrackHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("track")
	serveResource(w, r, spotify.KindTrack, mux.Vars(r)["id"], false)
}

func getAlbumHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("album")
	serveResource(w, r, spotify.KindAlbum, mux.Vars(r)["id"], false)
}

func getPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("playlist")
	serveResource(w, r, spotify.KindPlaylist, mux.Vars(r)["id"], false)
}

func getFullAlbumHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("album")
	serveResource(w, r, spotify.KindAlbum, mux.Vars(r)["id"], true)
}

func getFullPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("playlist")
	serveResource(w, r, spotify.KindPlaylist, mux.Vars(r)["id"], true)
}

// resolveURLHandler serves a pasted open.spotify.com URL used directly as the
// request path, e.g. /https://open.spotify.com/track/{id}.
func resolveURLHandler(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	// Path cleaning may have collapsed the scheme's double slash
	raw = strings.TrimPrefix(raw, "https:")
	raw = strings.TrimPrefix(raw, "http:")
	raw = strings.TrimLeft(raw, "/")

	kind, id, err := spotify.ParseOpenURL(raw)
	if err != nil {
		stats.Get().RecordRequest("other")
		Respond(w, r).Error(http.StatusBadRequest, map[string]interface{}{
			"error": "Not a recognized endpoint or open.spotify.com URL. See / for usage.",
			"kind":  "client_error",
		})
		return
	}

	stats.Get().RecordRequest(string(kind))
	serveResource(w, r, kind, id, false)
}

// serveResource is the shared cache-then-upstream path for all metadata
// endpoints. Identical concurrent misses share one upstream fetch.
func serveResource(w http.ResponseWriter, r *http.Request, kind spotify.Kind, identifier string, full bool) {
	resp := Respond(w, r)

	id, err := spotify.ParseResource(kind, identifier)
	if err != nil {
		resp.Error(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
			"kind":  "client_error",
		})
		return
	}

	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	cacheKey := metadataCacheKey(kind, id, limit, offset)
	if full {
		cacheKey = fullMetadataCacheKey(kind, id)
	}

	if cached, ok := getCachedMetadata(cacheKey); ok {
		stats.Get().RecordCacheHit()
		log.Infof("%s Found cached %s metadata", logcolors.LogCacheMeta, kind)
		resp.SetCacheStatus("HIT").RawJSON(cached)
		return
	}

	if reason, found := getNegativeCache(cacheKey); found {
		stats.Get().RecordNegativeCacheHit()
		log.Infof("%s Returning cached 'not found' for %s %s", logcolors.LogCacheNegative, kind, id)
		resp.SetCacheStatus("NEGATIVE_HIT").Error(http.StatusNotFound, map[string]interface{}{
			"error": reason,
			"kind":  "client_error",
		})
		return
	}

	// The WaitGroup must be armed before the entry is published, or a
	// concurrent waiter could pass Wait() before the fetch finishes.
	fresh := &InFlightRequest{}
	fresh.wg.Add(1)
	inFlight, loaded := inFlightReqs.LoadOrStore(cacheKey, fresh)
	req := inFlight.(*InFlightRequest)

	if loaded {
		log.Infof("%s Waiting for in-flight %s request", logcolors.LogGateway, kind)
		req.wg.Wait()

		if req.err != nil {
			writeGatewayError(resp, kind, req.err)
			return
		}
		resp.SetCacheStatus("HIT").RawJSON(req.result)
		return
	}

	defer func() {
		req.wg.Done()
		time.AfterFunc(1*time.Second, func() {
			inFlightReqs.Delete(cacheKey)
		})
	}()

	body, err := fetchResource(r.Context(), kind, id, limit, offset, full)
	req.err = err
	if err != nil {
		stats.Get().RecordCacheMiss()
		if errors.Is(err, spotify.ErrNotFound) {
			setNegativeCache(cacheKey, fmt.Sprintf("%s not found", kind))
		}
		writeGatewayError(resp, kind, err)
		return
	}
	req.result = body

	stats.Get().RecordCacheMiss()
	log.Infof("%s Caching %s metadata for: %s", logcolors.LogCacheMeta, kind, id)
	setCachedMetadata(cacheKey, body)

	resp.SetCacheStatus("MISS").RawJSON(body)
}

func fetchResource(ctx context.Context, kind spotify.Kind, id string, limit, offset int, full bool) (string, error) {
	var (
		result interface{}
		err    error
	)

	switch {
	case kind == spotify.KindTrack:
		result, err = gateway.GetTrack(ctx, id)
	case kind == spotify.KindAlbum && full:
		result, err = gateway.GetFullAlbum(ctx, id)
	case kind == spotify.KindAlbum:
		result, err = gateway.GetAlbum(ctx, id, limit, offset)
	case kind == spotify.KindPlaylist && full:
		result, err = gateway.GetFullPlaylist(ctx, id)
	default:
		result, err = gateway.GetPlaylist(ctx, id, limit, offset)
	}
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// writeGatewayError maps gateway errors onto HTTP statuses: bad input is 400,
// a missing resource is 404, an open circuit is 503, everything else
// upstream-shaped is 502.
func writeGatewayError(resp *APIResponse, kind spotify.Kind, err error) {
	switch {
	case spotify.IsInvalidID(err):
		resp.Error(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
			"kind":  "client_error",
		})

	case errors.Is(err, spotify.ErrNotFound):
		resp.Error(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("%s not found", kind),
			"kind":  "client_error",
		})

	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		state, _, retryIn := gateway.BreakerStats()
		resp.w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryIn.Seconds())+1))
		resp.Error(http.StatusServiceUnavailable, map[string]interface{}{
			"error":           "Upstream temporarily unavailable",
			"kind":            "upstream_error",
			"circuit_breaker": state,
			"retry_in":        retryIn.String(),
		})

	default:
		log.Errorf("%s Error fetching %s metadata: %v", logcolors.LogGateway, kind, err)
		resp.Error(http.StatusBadGateway, map[string]interface{}{
			"error": err.Error(),
			"kind":  "upstream_error",
		})
	}
}

// Stats and cache admin handlers

func getStats(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("stats")
	if !requireAdmin(w, r) {
		return
	}

	s := stats.Get()
	snapshot := s.Snapshot()

	numKeys, sizeInKB := persistentCache.Stats()
	snapshot["cache_storage"] = map[string]interface{}{
		"keys":    numKeys,
		"size_kb": sizeInKB,
		"size_mb": float64(sizeInKB) / 1024,
	}

	cbState, failures, retryIn := gateway.BreakerStats()
	snapshot["circuit_breaker"] = map[string]interface{}{
		"state":            cbState,
		"failures":         failures,
		"time_until_retry": retryIn.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("cache")
	if !requireAdmin(w, r) {
		return
	}

	cacheDump := CacheDump{}
	persistentCache.Range(func(key string, entry cache.CacheEntry) bool {
		cacheDump[key] = entry
		return true
	})

	numKeys, sizeInKB := persistentCache.Stats()
	s := stats.Get()

	cacheDumpResponse := CacheDumpResponse{
		NumberOfKeys: numKeys,
		SizeInKB:     sizeInKB,
		SizeInMB:     float64(sizeInKB) / 1024,
		Performance: CachePerformance{
			Hits:         s.CacheHits.Load(),
			Misses:       s.CacheMisses.Load(),
			NegativeHits: s.NegativeCacheHits.Load(),
			HitRate:      s.CacheHitRate(),
		},
		Cache: cacheDump,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cacheDumpResponse)
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("cache")
	if !requireAdmin(w, r) {
		return
	}

	backupPath, err := persistentCache.Backup()
	if err != nil {
		log.Errorf("%s Failed to create backup: %v", logcolors.LogCacheBackup, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to create backup: %v", err),
		})
		return
	}

	log.Infof("%s Backup created successfully at: %s", logcolors.LogCacheBackup, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Backup created successfully",
		"backup_path": backupPath,
	})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("cache")
	if !requireAdmin(w, r) {
		return
	}

	backupPath, err := persistentCache.BackupAndClear()
	if err != nil {
		log.Errorf("%s Failed to backup and clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to backup and clear cache: %v", err),
		})
		return
	}

	log.Infof("%s Cache cleared successfully, backup at: %s", logcolors.LogCacheClear, backupPath)
	Respond(w, r).JSON(map[string]interface{}{
		"message":     "Cache cleared successfully",
		"backup_path": backupPath,
	})
}

func listBackups(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("cache")
	if !requireAdmin(w, r) {
		return
	}

	backups, err := persistentCache.ListBackups()
	if err != nil {
		log.Errorf("%s Failed to list backups: %v", logcolors.LogCacheBackups, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to list backups: %v", err),
		})
		return
	}

	Respond(w, r).JSON(map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func restoreCache(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("cache")
	if !requireAdmin(w, r) {
		return
	}

	backupFileName := r.URL.Query().Get("backup")
	if backupFileName == "" {
		Respond(w, r).Error(http.StatusBadRequest, map[string]interface{}{
			"error": "Missing 'backup' query parameter. Use /cache/backups to list available backups.",
		})
		return
	}

	if err := persistentCache.RestoreFromBackup(backupFileName); err != nil {
		log.Errorf("%s Failed to restore from backup %s: %v", logcolors.LogCacheRestore, backupFileName, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to restore from backup: %v", err),
		})
		return
	}

	numKeys, sizeKB := persistentCache.Stats()

	log.Infof("%s Cache restored from backup: %s", logcolors.LogCacheRestore, backupFileName)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": backupFileName,
		"keys_restored": numKeys,
		"size_kb":       sizeKB,
	})
}

// Health and circuit breaker handlers

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("health")

	cbState, cbFailures, cbRetryIn := gateway.BreakerStats()

	health := map[string]interface{}{
		"status":          "ok",
		"circuit_breaker": cbState,
	}

	if cbState == "OPEN" {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = cbRetryIn.String()
	}

	// Authenticated callers get token details on top
	if conf.Configuration.AdminAccessToken != "" && r.Header.Get("Authorization") == conf.Configuration.AdminAccessToken {
		expiry, remaining, needsRefresh := gateway.TokenStatus()
		tokenStatus := map[string]interface{}{
			"needs_refresh": needsRefresh,
		}
		if !expiry.IsZero() {
			tokenStatus["expires"] = expiry.Format(time.RFC3339)
			tokenStatus["remaining"] = remaining.Round(time.Second).String()
		}
		health["token"] = tokenStatus
		health["circuit_breaker_failures"] = cbFailures
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	state, failures, retryIn := gateway.BreakerStats()

	Respond(w, r).JSON(map[string]interface{}{
		"state":            state,
		"failures":         failures,
		"time_until_retry": retryIn.String(),
		"config": map[string]interface{}{
			"threshold":    conf.Configuration.CircuitBreakerThreshold,
			"cooldown_sec": conf.Configuration.CircuitBreakerCooldownSecs,
		},
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	gateway.ResetBreaker()

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

func simulateCircuitBreakerFailure(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	gateway.SimulateFailure()
	state, failures, retryIn := gateway.BreakerStats()

	Respond(w, r).JSON(map[string]interface{}{
		"message":          "Simulated a failure",
		"state":            state,
		"failures":         failures,
		"time_until_retry": retryIn.String(),
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	stats.Get().RecordRequest("other")
	Respond(w, r).JSON(map[string]interface{}{
		"endpoints": map[string]string{
			"/track/{id}":         "Track metadata. {id} accepts a bare ID, spotify: URI, or open.spotify.com URL.",
			"/album/{id}":         "Album metadata with one page of tracks. Optional limit and offset query parameters.",
			"/album/{id}/full":    "Album metadata with the complete track listing.",
			"/playlist/{id}":      "Playlist metadata with one page of content. Optional limit and offset query parameters.",
			"/playlist/{id}/full": "Playlist metadata with the complete content listing.",
			"/{open_spotify_url}": "A pasted open.spotify.com URL resolves to the matching endpoint.",
			"/health":             "Service health and circuit breaker state.",
		},
		"example": "/track/6rqhFgbbKwnb9MLmUQDhG6",
	})
}
