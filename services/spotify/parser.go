package spotify

import (
	"encoding/json"
	"strings"
)

// Pathfinder reports missing resources inside a 200 response via the union
// typename rather than an HTTP status. Prefix match covers per-kind variants
// like NotFoundTrack.
const notFoundTypename = "NotFound"

func isNotFound(typename string) bool {
	return strings.HasPrefix(typename, notFoundTypename)
}

func idFromURI(uri string) string {
	idx := strings.LastIndex(uri, ":")
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}

func imagesFromCoverArt(art wireCoverArt) []Image {
	images := make([]Image, 0, len(art.Sources))
	for _, src := range art.Sources {
		images = append(images, Image{URL: src.URL, Width: src.Width, Height: src.Height})
	}
	return images
}

func artistRefs(groups ...wireArtists) []ArtistRef {
	var refs []ArtistRef
	for _, group := range groups {
		for _, item := range group.Items {
			refs = append(refs, ArtistRef{
				ID:   item.ID,
				Name: item.Profile.Name,
				URI:  item.URI,
			})
		}
	}
	return refs
}

// parseTrack reshapes a getTrack payload into the normalized Track
func parseTrack(data []byte) (*Track, error) {
	var payload trackData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &UpstreamError{Operation: opGetTrack, Message: "unparsable track payload", Err: err}
	}

	union := payload.TrackUnion
	if isNotFound(union.Typename) {
		return nil, ErrNotFound
	}
	if union.ID == "" && union.URI == "" {
		return nil, &UpstreamError{Operation: opGetTrack, Message: "empty track payload"}
	}

	id := union.ID
	if id == "" {
		id = idFromURI(union.URI)
	}

	return &Track{
		Kind:        string(KindTrack),
		ID:          id,
		URI:         union.URI,
		Name:        union.Name,
		DurationMs:  union.Duration.TotalMilliseconds,
		Explicit:    union.ContentRating.Label == "EXPLICIT",
		TrackNumber: union.TrackNumber,
		DiscNumber:  union.DiscNumber,
		Playcount:   union.Playcount,
		Artists:     artistRefs(union.FirstArtist, union.OtherArtists),
		Album: AlbumRef{
			ID:          idFromURI(union.AlbumOfTrack.URI),
			URI:         union.AlbumOfTrack.URI,
			Name:        union.AlbumOfTrack.Name,
			ReleaseDate: union.AlbumOfTrack.Date.ISOString,
			Images:      imagesFromCoverArt(union.AlbumOfTrack.CoverArt),
		},
	}, nil
}

// parseAlbum reshapes a getAlbum payload into the normalized Album
func parseAlbum(data []byte) (*Album, error) {
	var payload albumData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &UpstreamError{Operation: opGetAlbum, Message: "unparsable album payload", Err: err}
	}

	union := payload.AlbumUnion
	if isNotFound(union.Typename) {
		return nil, ErrNotFound
	}
	if union.URI == "" {
		return nil, &UpstreamError{Operation: opGetAlbum, Message: "empty album payload"}
	}

	album := &Album{
		Kind:        string(KindAlbum),
		ID:          idFromURI(union.URI),
		URI:         union.URI,
		Name:        union.Name,
		ReleaseDate: union.Date.ISOString,
		Label:       union.Label,
		Artists:     artistRefs(union.Artists),
		Images:      imagesFromCoverArt(union.CoverArt),
		TotalTracks: union.Tracks.TotalCount,
		Tracks:      albumTracks(union),
	}
	return album, nil
}

func albumTracks(union wireAlbum) []AlbumTrack {
	tracks := make([]AlbumTrack, 0, len(union.Tracks.Items))
	for _, item := range union.Tracks.Items {
		t := item.Track
		tracks = append(tracks, AlbumTrack{
			ID:          idFromURI(t.URI),
			URI:         t.URI,
			Name:        t.Name,
			DurationMs:  t.Duration.TotalMilliseconds,
			TrackNumber: t.TrackNumber,
			Playcount:   t.Playcount,
			Artists:     artistRefs(t.Artists),
		})
	}
	return tracks
}

// parsePlaylist reshapes a fetchPlaylist payload into the normalized Playlist
func parsePlaylist(data []byte) (*Playlist, error) {
	var payload playlistData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &UpstreamError{Operation: opFetchPlaylist, Message: "unparsable playlist payload", Err: err}
	}

	union := payload.PlaylistV2
	if isNotFound(union.Typename) {
		return nil, ErrNotFound
	}
	if union.URI == "" {
		return nil, &UpstreamError{Operation: opFetchPlaylist, Message: "empty playlist payload"}
	}

	var images []Image
	for _, item := range union.Images.Items {
		images = append(images, imagesFromCoverArt(item)...)
	}

	return &Playlist{
		Kind:        string(KindPlaylist),
		ID:          idFromURI(union.URI),
		URI:         union.URI,
		Name:        union.Name,
		Description: union.Description,
		Owner:       union.OwnerV2.Data.Name,
		Followers:   union.Followers,
		Images:      images,
		TotalTracks: union.Content.TotalCount,
		Tracks:      playlistTracks(union.Content),
	}, nil
}

func playlistTracks(content wirePlaylistContent) []PlaylistTrack {
	tracks := make([]PlaylistTrack, 0, len(content.Items))
	for _, item := range content.Items {
		data := item.ItemV2.Data
		if data.URI == "" {
			continue // local files carry no URI
		}
		track := PlaylistTrack{
			URI:        data.URI,
			Name:       data.Name,
			DurationMs: data.TrackDuration.TotalMilliseconds,
			AlbumName:  data.AlbumOfTrack.Name,
			Artists:    artistRefs(data.Artists),
		}
		if strings.HasPrefix(data.URI, "spotify:track:") {
			track.ID = idFromURI(data.URI)
		}
		tracks = append(tracks, track)
	}
	return tracks
}

// parsePlaylistPage extracts just the content block of a fetchPlaylist page,
// used when paginating past the first page.
func parsePlaylistPage(data []byte) (wirePlaylistContent, error) {
	var payload playlistData
	if err := json.Unmarshal(data, &payload); err != nil {
		return wirePlaylistContent{}, &UpstreamError{Operation: opFetchPlaylist, Message: "unparsable playlist page", Err: err}
	}
	return payload.PlaylistV2.Content, nil
}

// parseAlbumPage extracts just the album track block of a getAlbum page
func parseAlbumPage(data []byte) (wireAlbum, error) {
	var payload albumData
	if err := json.Unmarshal(data, &payload); err != nil {
		return wireAlbum{}, &UpstreamError{Operation: opGetAlbum, Message: "unparsable album page", Err: err}
	}
	return payload.AlbumUnion, nil
}
