package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spotapi-go/circuitbreaker"
)

// upstreamFixture is a fake token endpoint plus pathfinder endpoint
type upstreamFixture struct {
	server      *httptest.Server
	tokenCalls  atomic.Int64
	queryCalls  atomic.Int64
	tokenExpiry time.Time
	handleQuery func(w http.ResponseWriter, r *http.Request)
}

func newUpstreamFixture(t *testing.T) *upstreamFixture {
	t.Helper()

	f := &upstreamFixture{tokenExpiry: time.Now().Add(time.Hour)}

	mux := http.NewServeMux()
	mux.HandleFunc("/get_access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken":                      "test-token",
			"accessTokenExpirationTimestampMs": f.tokenExpiry.UnixMilli(),
			"clientId":                         "test-client",
			"isAnonymous":                      true,
		})
	})
	mux.HandleFunc("/pathfinder/v1/query", func(w http.ResponseWriter, r *http.Request) {
		f.queryCalls.Add(1)
		if f.handleQuery != nil {
			f.handleQuery(w, r)
			return
		}
		fmt.Fprintf(w, `{"data": %s}`, trackPayload)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *upstreamFixture) client() *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		partnerURL:   f.server.URL + "/pathfinder/v1/query",
		tokenURL:     f.server.URL + "/get_access_token",
		webPlayerURL: f.server.URL,
		hashes:       newHashTable(nil),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      "test",
			Threshold: 3,
			Cooldown:  time.Minute,
		}),
	}
}

func TestGetTrack(t *testing.T) {
	fixture := newUpstreamFixture(t)
	client := fixture.client()

	track, err := client.GetTrack(context.Background(), testTrackID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if track.ID != testTrackID {
		t.Errorf("Expected ID %q, got %q", testTrackID, track.ID)
	}
	if track.Name != "Breathe (In the Air)" {
		t.Errorf("Unexpected name %q", track.Name)
	}
}

func TestQuerySendsPersistedQuery(t *testing.T) {
	fixture := newUpstreamFixture(t)

	var gotOperation, gotExtensions, gotAuth string
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		gotOperation = r.URL.Query().Get("operationName")
		gotExtensions = r.URL.Query().Get("extensions")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprintf(w, `{"data": %s}`, trackPayload)
	}

	client := fixture.client()
	if _, err := client.GetTrack(context.Background(), testTrackID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotOperation != opGetTrack {
		t.Errorf("Expected operation %q, got %q", opGetTrack, gotOperation)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Expected bearer token header, got %q", gotAuth)
	}
	if !strings.Contains(gotExtensions, `"sha256Hash"`) || !strings.Contains(gotExtensions, defaultQueryHashes[opGetTrack]) {
		t.Errorf("Extensions missing persisted query hash: %s", gotExtensions)
	}
}

func TestTokenReuseAcrossQueries(t *testing.T) {
	fixture := newUpstreamFixture(t)
	client := fixture.client()

	for i := 0; i < 3; i++ {
		if _, err := client.GetTrack(context.Background(), testTrackID); err != nil {
			t.Fatalf("Query %d failed: %v", i, err)
		}
	}

	if calls := fixture.tokenCalls.Load(); calls != 1 {
		t.Errorf("Expected 1 token fetch, got %d", calls)
	}
	if calls := fixture.queryCalls.Load(); calls != 3 {
		t.Errorf("Expected 3 queries, got %d", calls)
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	fixture := newUpstreamFixture(t)

	var fail atomic.Bool
	fail.Store(true)
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"data": %s}`, trackPayload)
	}

	client := fixture.client()

	_, err := client.GetTrack(context.Background(), testTrackID)
	if !IsUpstream(err) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}

	// The stale token was dropped, so the next attempt fetches a new one
	fail.Store(false)
	if _, err := client.GetTrack(context.Background(), testTrackID); err != nil {
		t.Fatalf("Unexpected error after recovery: %v", err)
	}
	if calls := fixture.tokenCalls.Load(); calls != 2 {
		t.Errorf("Expected 2 token fetches, got %d", calls)
	}
}

func TestUpstreamErrorCarriesStatus(t *testing.T) {
	fixture := newUpstreamFixture(t)
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	client := fixture.client()

	_, err := client.GetTrack(context.Background(), testTrackID)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", upstream.StatusCode)
	}
}

func TestEnvelopeErrorsSurface(t *testing.T) {
	fixture := newUpstreamFixture(t)
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "PersistedQueryNotFound"}]}`)
	}

	client := fixture.client()

	_, err := client.GetTrack(context.Background(), testTrackID)
	if !IsUpstream(err) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if !strings.Contains(err.Error(), "PersistedQueryNotFound") {
		t.Errorf("Expected envelope message in error, got %q", err.Error())
	}
}

func TestNotFoundFromUpstream(t *testing.T) {
	fixture := newUpstreamFixture(t)
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"trackUnion": {"__typename": "NotFound"}}}`)
	}

	client := fixture.client()

	_, err := client.GetTrack(context.Background(), testTrackID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	fixture := newUpstreamFixture(t)
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	client := fixture.client()

	for i := 0; i < 3; i++ {
		if _, err := client.GetTrack(context.Background(), testTrackID); err == nil {
			t.Fatalf("Expected failure on attempt %d", i)
		}
	}

	// Threshold reached; the next call is rejected without touching upstream
	before := fixture.queryCalls.Load()
	_, err := client.GetTrack(context.Background(), testTrackID)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got %v", err)
	}
	if fixture.queryCalls.Load() != before {
		t.Error("Open circuit still reached upstream")
	}

	client.ResetBreaker()
	if state, _, _ := client.BreakerStats(); state != "CLOSED" {
		t.Errorf("Expected CLOSED after reset, got %q", state)
	}
}

func TestGetAlbumPagination(t *testing.T) {
	fixture := newUpstreamFixture(t)

	// 120 tracks total: full listing needs pages at offsets 0, 50 and 100
	fixture.handleQuery = func(w http.ResponseWriter, r *http.Request) {
		var variables struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
		}
		if err := json.Unmarshal([]byte(r.URL.Query().Get("variables")), &variables); err != nil {
			t.Errorf("Unparsable variables: %v", err)
		}
		if variables.Limit != albumPageLimit {
			t.Errorf("Expected limit %d, got %d", albumPageLimit, variables.Limit)
		}

		count := albumPageLimit
		if variables.Offset+count > 120 {
			count = 120 - variables.Offset
		}
		items := make([]string, 0, count)
		for i := 0; i < count; i++ {
			items = append(items, fmt.Sprintf(
				`{"track": {"uri": "spotify:track:%022d", "name": "Track %d", "duration": {"totalMilliseconds": 200000}, "trackNumber": %d}}`,
				variables.Offset+i+1, variables.Offset+i+1, variables.Offset+i+1))
		}
		fmt.Fprintf(w, `{"data": {"albumUnion": {
			"__typename": "Album",
			"uri": "spotify:album:%s",
			"name": "Big Album",
			"tracks": {"totalCount": 120, "items": [%s]}
		}}}`, testAlbumID, strings.Join(items, ","))
	}

	client := fixture.client()

	album, err := client.GetFullAlbum(context.Background(), testAlbumID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(album.Tracks) != 120 {
		t.Errorf("Expected 120 tracks, got %d", len(album.Tracks))
	}
	if calls := fixture.queryCalls.Load(); calls != 3 {
		t.Errorf("Expected 3 page fetches, got %d", calls)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit    int
		max      int
		expected int
	}{
		{0, albumPageLimit, defaultPageLimit},
		{-5, albumPageLimit, defaultPageLimit},
		{10, albumPageLimit, 10},
		{999, albumPageLimit, albumPageLimit},
		{999, playlistPageLimit, playlistPageLimit},
	}

	for _, tt := range tests {
		if got := clampLimit(tt.limit, tt.max); got != tt.expected {
			t.Errorf("clampLimit(%d, %d) = %d, expected %d", tt.limit, tt.max, got, tt.expected)
		}
	}
}
