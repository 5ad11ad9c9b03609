package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"spotapi-go/logcolors"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store persists counters across restarts so /stats survives a redeploy.
type Store struct {
	db       *bolt.DB
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// PersistedStats is the on-disk shape of the cumulative counters
type PersistedStats struct {
	TotalRequests     int64 `json:"total_requests"`
	TrackRequests     int64 `json:"track_requests"`
	AlbumRequests     int64 `json:"album_requests"`
	PlaylistRequests  int64 `json:"playlist_requests"`
	CacheRequests     int64 `json:"cache_requests"`
	StatsRequests     int64 `json:"stats_requests"`
	HealthRequests    int64 `json:"health_requests"`
	OtherRequests     int64 `json:"other_requests"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	NegativeCacheHits int64 `json:"negative_cache_hits"`
	RateLimitExceeded int64 `json:"rate_limit_exceeded"`
	UpstreamRequests  int64 `json:"upstream_requests"`
	UpstreamFailures  int64 `json:"upstream_failures"`
	Status2xx         int64 `json:"status_2xx"`
	Status4xx         int64 `json:"status_4xx"`
	Status5xx         int64 `json:"status_5xx"`
}

// NewStore opens (or creates) the stats database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %v", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %v", err)
	}

	return &Store{
		db:       db,
		stopChan: make(chan struct{}),
	}, nil
}

// Load restores persisted counters into the global stats instance
func (st *Store) Load() error {
	var persisted PersistedStats

	err := st.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(statsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return err
	}

	s := Get()
	s.TotalRequests.Store(persisted.TotalRequests)
	s.TrackRequests.Store(persisted.TrackRequests)
	s.AlbumRequests.Store(persisted.AlbumRequests)
	s.PlaylistRequests.Store(persisted.PlaylistRequests)
	s.CacheRequests.Store(persisted.CacheRequests)
	s.StatsRequests.Store(persisted.StatsRequests)
	s.HealthRequests.Store(persisted.HealthRequests)
	s.OtherRequests.Store(persisted.OtherRequests)
	s.CacheHits.Store(persisted.CacheHits)
	s.CacheMisses.Store(persisted.CacheMisses)
	s.NegativeCacheHits.Store(persisted.NegativeCacheHits)
	s.RateLimitExceeded.Store(persisted.RateLimitExceeded)
	s.UpstreamRequests.Store(persisted.UpstreamRequests)
	s.UpstreamFailures.Store(persisted.UpstreamFailures)
	s.Status2xx.Store(persisted.Status2xx)
	s.Status4xx.Store(persisted.Status4xx)
	s.Status5xx.Store(persisted.Status5xx)

	log.Infof("%s Restored persisted counters (%d total requests)", logcolors.LogStats, persisted.TotalRequests)
	return nil
}

// Save writes the current counters to disk
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := Get()
	persisted := PersistedStats{
		TotalRequests:     s.TotalRequests.Load(),
		TrackRequests:     s.TrackRequests.Load(),
		AlbumRequests:     s.AlbumRequests.Load(),
		PlaylistRequests:  s.PlaylistRequests.Load(),
		CacheRequests:     s.CacheRequests.Load(),
		StatsRequests:     s.StatsRequests.Load(),
		HealthRequests:    s.HealthRequests.Load(),
		OtherRequests:     s.OtherRequests.Load(),
		CacheHits:         s.CacheHits.Load(),
		CacheMisses:       s.CacheMisses.Load(),
		NegativeCacheHits: s.NegativeCacheHits.Load(),
		RateLimitExceeded: s.RateLimitExceeded.Load(),
		UpstreamRequests:  s.UpstreamRequests.Load(),
		UpstreamFailures:  s.UpstreamFailures.Load(),
		Status2xx:         s.Status2xx.Load(),
		Status4xx:         s.Status4xx.Load(),
		Status5xx:         s.Status5xx.Load(),
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return err
	}

	return st.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return fmt.Errorf("stats bucket not found")
		}
		return b.Put([]byte(statsKey), data)
	})
}

// StartPeriodicSave saves counters in the background every interval
func (st *Store) StartPeriodicSave(interval time.Duration) {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Save(); err != nil {
					log.Warnf("%s Failed to persist counters: %v", logcolors.LogStats, err)
				}
			case <-st.stopChan:
				return
			}
		}
	}()
}

// Close saves one last time and shuts the store down
func (st *Store) Close() error {
	close(st.stopChan)
	st.wg.Wait()

	if err := st.Save(); err != nil {
		log.Warnf("%s Failed to persist counters on shutdown: %v", logcolors.LogStats, err)
	}
	return st.db.Close()
}
