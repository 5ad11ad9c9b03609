package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Metadata endpoints - {id} accepts a bare ID, a spotify: URI, or a full
	// open.spotify.com URL
	router.HandleFunc("/track/{id}", getTrackHandler)
	router.HandleFunc("/album/{id}", getAlbumHandler)
	router.HandleFunc("/playlist/{id}", getPlaylistHandler)

	// Full listings - pages through the whole track list upstream
	router.HandleFunc("/album/{id}/full", getFullAlbumHandler)
	router.HandleFunc("/playlist/{id}/full", getFullPlaylistHandler)

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheDump)
	router.HandleFunc("/cache/backup", backupCache)
	router.HandleFunc("/cache/backups", listBackups)
	router.HandleFunc("/cache/restore", restoreCache)
	router.HandleFunc("/cache/clear", clearCache)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker)
	router.HandleFunc("/circuit-breaker/simulate-failure", simulateCircuitBreakerFailure)

	// Help endpoint
	router.HandleFunc("/", helpHandler)

	// Catch-all: a pasted open.spotify.com URL as the path resolves to the
	// matching resource endpoint
	router.PathPrefix("/").HandlerFunc(resolveURLHandler)
}
