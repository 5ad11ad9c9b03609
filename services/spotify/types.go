package spotify

import "encoding/json"

// ---------------------------------------------------------------------------
// Normalized responses returned to API callers
// ---------------------------------------------------------------------------

// Image is an artwork source at one resolution
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ArtistRef identifies an artist credited on a resource
type ArtistRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// AlbumRef is the album summary embedded in a track response
type AlbumRef struct {
	ID          string  `json:"id"`
	URI         string  `json:"uri"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// Track is the normalized track metadata response
type Track struct {
	Kind        string      `json:"kind"`
	ID          string      `json:"id"`
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	DurationMs  int         `json:"durationMs"`
	Explicit    bool        `json:"explicit"`
	TrackNumber int         `json:"trackNumber,omitempty"`
	DiscNumber  int         `json:"discNumber,omitempty"`
	Playcount   string      `json:"playcount,omitempty"`
	Artists     []ArtistRef `json:"artists"`
	Album       AlbumRef    `json:"album"`
}

// AlbumTrack is one row of an album's track listing
type AlbumTrack struct {
	ID          string      `json:"id"`
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	DurationMs  int         `json:"durationMs"`
	TrackNumber int         `json:"trackNumber,omitempty"`
	Playcount   string      `json:"playcount,omitempty"`
	Artists     []ArtistRef `json:"artists"`
}

// Album is the normalized album metadata response
type Album struct {
	Kind        string       `json:"kind"`
	ID          string       `json:"id"`
	URI         string       `json:"uri"`
	Name        string       `json:"name"`
	ReleaseDate string       `json:"releaseDate,omitempty"`
	Label       string       `json:"label,omitempty"`
	Artists     []ArtistRef  `json:"artists"`
	Images      []Image      `json:"images,omitempty"`
	TotalTracks int          `json:"totalTracks"`
	Tracks      []AlbumTrack `json:"tracks"`
}

// PlaylistTrack is one row of a playlist's content
type PlaylistTrack struct {
	ID         string      `json:"id,omitempty"`
	URI        string      `json:"uri"`
	Name       string      `json:"name"`
	DurationMs int         `json:"durationMs,omitempty"`
	AlbumName  string      `json:"albumName,omitempty"`
	Artists    []ArtistRef `json:"artists,omitempty"`
}

// Playlist is the normalized playlist metadata response
type Playlist struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id"`
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	Followers   int             `json:"followers,omitempty"`
	Images      []Image         `json:"images,omitempty"`
	TotalTracks int             `json:"totalTracks"`
	Tracks      []PlaylistTrack `json:"tracks"`
}

// ---------------------------------------------------------------------------
// Pathfinder wire types (api-partner.spotify.com/pathfinder/v1/query)
// ---------------------------------------------------------------------------

// envelope is the outer GraphQL response shape
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type wireCoverArt struct {
	Sources []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"sources"`
}

type wireArtistItem struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type wireArtists struct {
	Items []wireArtistItem `json:"items"`
}

type wireDuration struct {
	TotalMilliseconds int `json:"totalMilliseconds"`
}

// trackUnion payload of the getTrack operation
type wireTrack struct {
	Typename      string       `json:"__typename"`
	ID            string       `json:"id"`
	URI           string       `json:"uri"`
	Name          string       `json:"name"`
	Duration      wireDuration `json:"duration"`
	TrackNumber   int          `json:"trackNumber"`
	DiscNumber    int          `json:"discNumber"`
	Playcount     string       `json:"playcount"`
	ContentRating struct {
		Label string `json:"label"`
	} `json:"contentRating"`
	FirstArtist  wireArtists `json:"firstArtist"`
	OtherArtists wireArtists `json:"otherArtists"`
	AlbumOfTrack struct {
		URI  string `json:"uri"`
		Name string `json:"name"`
		Date struct {
			ISOString string `json:"isoString"`
		} `json:"date"`
		CoverArt wireCoverArt `json:"coverArt"`
	} `json:"albumOfTrack"`
}

type trackData struct {
	TrackUnion wireTrack `json:"trackUnion"`
}

// albumUnion payload of the getAlbum operation
type wireAlbum struct {
	Typename string       `json:"__typename"`
	URI      string       `json:"uri"`
	Name     string       `json:"name"`
	Label    string       `json:"label"`
	Artists  wireArtists  `json:"artists"`
	CoverArt wireCoverArt `json:"coverArt"`
	Date     struct {
		ISOString string `json:"isoString"`
	} `json:"date"`
	Tracks struct {
		TotalCount int `json:"totalCount"`
		Items      []struct {
			Track struct {
				URI         string       `json:"uri"`
				Name        string       `json:"name"`
				Duration    wireDuration `json:"duration"`
				TrackNumber int          `json:"trackNumber"`
				Playcount   string       `json:"playcount"`
				Artists     wireArtists  `json:"artists"`
			} `json:"track"`
		} `json:"items"`
	} `json:"tracks"`
}

type albumData struct {
	AlbumUnion wireAlbum `json:"albumUnion"`
}

// playlistV2 payload of the fetchPlaylist operation
type wirePlaylist struct {
	Typename    string `json:"__typename"`
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerV2     struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	} `json:"ownerV2"`
	Followers int `json:"followers"`
	Images    struct {
		Items []wireCoverArt `json:"items"`
	} `json:"images"`
	Content wirePlaylistContent `json:"content"`
}

type wirePlaylistContent struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		ItemV2 struct {
			Data struct {
				Typename      string       `json:"__typename"`
				URI           string       `json:"uri"`
				Name          string       `json:"name"`
				TrackDuration wireDuration `json:"trackDuration"`
				Artists       wireArtists  `json:"artists"`
				AlbumOfTrack  struct {
					URI  string `json:"uri"`
					Name string `json:"name"`
				} `json:"albumOfTrack"`
			} `json:"data"`
		} `json:"itemV2"`
	} `json:"items"`
}

type playlistData struct {
	PlaylistV2 wirePlaylist `json:"playlistV2"`
}
