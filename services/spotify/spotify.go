// Package spotify fetches public track, album and playlist metadata from
// Spotify's web-player endpoints without API credentials.
package spotify

import (
	"context"
	"time"
)

// Page sizes honored by pathfinder; larger requests get clamped upstream.
const (
	defaultPageLimit  = 25
	albumPageLimit    = 50
	playlistPageLimit = 343
)

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > max {
		return max
	}
	return limit
}

// GetTrack fetches public metadata for one track
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	data, err := c.query(ctx, opGetTrack, map[string]interface{}{
		"uri": URI(KindTrack, id),
	})
	if err != nil {
		return nil, err
	}
	return parseTrack(data)
}

// GetAlbum fetches public metadata for one album, with one page of tracks
func (c *Client) GetAlbum(ctx context.Context, id string, limit, offset int) (*Album, error) {
	data, err := c.query(ctx, opGetAlbum, map[string]interface{}{
		"uri":    URI(KindAlbum, id),
		"offset": offset,
		"limit":  clampLimit(limit, albumPageLimit),
		"locale": "en",
	})
	if err != nil {
		return nil, err
	}
	return parseAlbum(data)
}

// GetPlaylist fetches public metadata for one playlist, with one page of content
func (c *Client) GetPlaylist(ctx context.Context, id string, limit, offset int) (*Playlist, error) {
	data, err := c.query(ctx, opFetchPlaylist, map[string]interface{}{
		"uri":    URI(KindPlaylist, id),
		"offset": offset,
		"limit":  clampLimit(limit, playlistPageLimit),
	})
	if err != nil {
		return nil, err
	}
	return parsePlaylist(data)
}

// GetFullAlbum fetches an album and pages through its entire track listing
func (c *Client) GetFullAlbum(ctx context.Context, id string) (*Album, error) {
	album, err := c.GetAlbum(ctx, id, albumPageLimit, 0)
	if err != nil {
		return nil, err
	}

	for offset := albumPageLimit; offset < album.TotalTracks; offset += albumPageLimit {
		data, err := c.query(ctx, opGetAlbum, map[string]interface{}{
			"uri":    URI(KindAlbum, id),
			"offset": offset,
			"limit":  albumPageLimit,
			"locale": "en",
		})
		if err != nil {
			return nil, err
		}
		page, err := parseAlbumPage(data)
		if err != nil {
			return nil, err
		}
		album.Tracks = append(album.Tracks, albumTracks(page)...)
	}

	return album, nil
}

// GetFullPlaylist fetches a playlist and pages through its entire content
func (c *Client) GetFullPlaylist(ctx context.Context, id string) (*Playlist, error) {
	playlist, err := c.GetPlaylist(ctx, id, playlistPageLimit, 0)
	if err != nil {
		return nil, err
	}

	for offset := playlistPageLimit; offset < playlist.TotalTracks; offset += playlistPageLimit {
		data, err := c.query(ctx, opFetchPlaylist, map[string]interface{}{
			"uri":    URI(KindPlaylist, id),
			"offset": offset,
			"limit":  playlistPageLimit,
		})
		if err != nil {
			return nil, err
		}
		page, err := parsePlaylistPage(data)
		if err != nil {
			return nil, err
		}
		playlist.Tracks = append(playlist.Tracks, playlistTracks(page)...)
	}

	return playlist, nil
}

// BreakerStats exposes circuit breaker state for /health and /circuit-breaker
func (c *Client) BreakerStats() (state string, failures int, timeUntilRetry time.Duration) {
	s, f, _ := c.breaker.Stats()
	return s.String(), f, c.breaker.TimeUntilRetry()
}

// ResetBreaker manually closes the circuit (admin use)
func (c *Client) ResetBreaker() {
	c.breaker.Reset()
}

// SimulateFailure records one upstream failure, for testing the breaker
func (c *Client) SimulateFailure() {
	c.breaker.RecordFailure()
}
