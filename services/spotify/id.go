package spotify

import (
	"net/url"
	"strings"
)

// Kind is a resource kind: track, album, or playlist
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
)

// Valid reports whether the kind is one the gateway serves
func (k Kind) Valid() bool {
	switch k {
	case KindTrack, KindAlbum, KindPlaylist:
		return true
	}
	return false
}

// Spotify IDs are 22 base62 characters
const idLength = 22

func isBase62(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

// validID reports whether s has the shape of a Spotify resource ID
func validID(s string) bool {
	return len(s) == idLength && isBase62(s)
}

// ParseResource resolves an identifier for a known kind down to a bare,
// validated resource ID. Accepted forms:
//
//	6rqhFgbbKwnb9MLmUQDhG6
//	https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6?si=...
//	https://open.spotify.com/intl-pt/track/6rqhFgbbKwnb9MLmUQDhG6
//	spotify:track:6rqhFgbbKwnb9MLmUQDhG6
func ParseResource(kind Kind, identifier string) (string, error) {
	if !kind.Valid() {
		return "", &InvalidIDError{Input: string(kind)}
	}

	raw := strings.TrimSpace(identifier)
	if raw == "" {
		return "", &InvalidIDError{Input: identifier}
	}

	switch {
	case strings.HasPrefix(raw, "spotify:"):
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[1] != string(kind) {
			return "", &InvalidIDError{Input: identifier}
		}
		raw = parts[2]

	case strings.Contains(raw, "open.spotify.com"):
		parsedKind, id, err := ParseOpenURL(raw)
		if err != nil {
			return "", err
		}
		if parsedKind != kind {
			return "", &InvalidIDError{Input: identifier}
		}
		return id, nil
	}

	if !validID(raw) {
		return "", &InvalidIDError{Input: identifier}
	}
	return raw, nil
}

// ParseOpenURL extracts the kind and ID from a full open.spotify.com URL.
// Locale segments like /intl-pt/ are skipped; query strings are ignored.
func ParseOpenURL(rawURL string) (Kind, string, error) {
	candidate := strings.TrimSpace(rawURL)
	if !strings.Contains(candidate, "open.spotify.com") {
		return "", "", &InvalidIDError{Input: rawURL}
	}
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", "", &InvalidIDError{Input: rawURL}
	}

	segments := []string{}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" || strings.HasPrefix(seg, "intl-") {
			continue
		}
		segments = append(segments, seg)
	}

	if len(segments) < 2 {
		return "", "", &InvalidIDError{Input: rawURL}
	}

	kind := Kind(segments[0])
	id := segments[1]
	if !kind.Valid() || !validID(id) {
		return "", "", &InvalidIDError{Input: rawURL}
	}

	return kind, id, nil
}

// OpenURL returns the canonical open.spotify.com link for a resource
func OpenURL(kind Kind, id string) string {
	return "https://open.spotify.com/" + string(kind) + "/" + id
}

// URI returns the spotify: URI for a resource
func URI(kind Kind, id string) string {
	return "spotify:" + string(kind) + ":" + id
}
