package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "metadata"

// PersistentCache wraps BoltDB with a bounded expirable LRU in front of it.
// Entries carry an absolute expiration honored on every read; a background
// sweep (see Sweep) clears expired entries from disk.
type PersistentCache struct {
	db                 *bolt.DB
	memCache           *expirable.LRU[string, CacheEntry]
	dbPath             string
	backupPath         string
	ttl                time.Duration
	compressionEnabled bool
}

// CacheEntry represents a cached value (possibly compressed) with its expiry
type CacheEntry struct {
	Value      string `json:"value"`
	Expiration int64  `json:"expiration"` // unix nanoseconds, 0 means no expiry
}

func (e CacheEntry) expired() bool {
	return e.Expiration > 0 && time.Now().UnixNano() > e.Expiration
}

// NewPersistentCache creates a new persistent cache. maxEntries bounds the
// in-memory layer only; the disk layer keeps everything until it expires.
func NewPersistentCache(dbPath, backupPath string, maxEntries int, ttl time.Duration, compressionEnabled bool) (*PersistentCache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %v", err)
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %v", err)
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("[Cache:Init] Found existing database file at: %s (size: %d bytes)", dbPath, info.Size())
	} else {
		log.Infof("[Cache:Init] Creating new database file at: %s", dbPath)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %v", err)
	}

	if maxEntries <= 0 {
		maxEntries = 100
	}

	pc := &PersistentCache{
		db:                 db,
		memCache:           expirable.NewLRU[string, CacheEntry](maxEntries, nil, ttl),
		dbPath:             dbPath,
		backupPath:         backupPath,
		ttl:                ttl,
		compressionEnabled: compressionEnabled,
	}

	if err := pc.loadToMemory(); err != nil {
		log.Warnf("[Cache] Failed to preload cache to memory: %v", err)
	}

	log.Infof("[Cache] Persistent cache initialized at %s (ttl: %v, mem entries: %d, compression: %v)",
		dbPath, ttl, maxEntries, compressionEnabled)
	return pc, nil
}

// loadToMemory warms the LRU with unexpired entries from disk
func (pc *PersistentCache) loadToMemory() error {
	count := 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("[Cache] Failed to unmarshal cache entry for key %s: %v", string(k), err)
				return nil // continue to next entry
			}
			if entry.expired() {
				return nil
			}
			pc.memCache.Add(string(k), entry)
			count++
			return nil
		})
	})

	if err != nil {
		return err
	}

	log.Infof("[Cache] Warmed memory cache with %d entries from disk", count)
	return nil
}

// Get retrieves a value from cache (memory first, then disk).
// Expired entries are deleted on read.
func (pc *PersistentCache) Get(key string) (string, bool) {
	if entry, ok := pc.memCache.Get(key); ok {
		if entry.expired() {
			pc.Delete(key)
			return "", false
		}
		return pc.decode(key, entry.Value)
	}

	var entry CacheEntry
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key not found")
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false
	}

	if entry.expired() {
		pc.Delete(key)
		return "", false
	}

	pc.memCache.Add(key, entry)
	return pc.decode(key, entry.Value)
}

func (pc *PersistentCache) decode(key, value string) (string, bool) {
	if !pc.compressionEnabled {
		return value, true
	}
	decompressed, err := decompressString(value)
	if err != nil {
		log.Errorf("[Cache] Error decompressing cache value for key %s: %v", key, err)
		return "", false
	}
	return decompressed, true
}

// Set stores a value with the cache's default TTL
func (pc *PersistentCache) Set(key, value string) error {
	return pc.SetWithTTL(key, value, pc.ttl)
}

// SetWithTTL stores a value with an explicit TTL (both memory and disk)
func (pc *PersistentCache) SetWithTTL(key, value string, ttl time.Duration) error {
	finalValue := value
	if pc.compressionEnabled {
		compressed, err := compressString(value)
		if err != nil {
			log.Errorf("[Cache] Error compressing cache value for key %s: %v", key, err)
			return err
		}
		finalValue = compressed
	}

	entry := CacheEntry{Value: finalValue}
	if ttl > 0 {
		entry.Expiration = time.Now().Add(ttl).UnixNano()
	}

	pc.memCache.Add(key, entry)

	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return b.Put([]byte(key), data)
	})
}

// Delete removes a key from cache
func (pc *PersistentCache) Delete(key string) error {
	pc.memCache.Remove(key)

	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes all entries from cache
func (pc *PersistentCache) Clear() error {
	pc.memCache.Purge()

	return pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Range iterates over all unexpired disk entries
func (pc *PersistentCache) Range(fn func(key string, entry CacheEntry) bool) {
	pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			if entry.expired() {
				return nil
			}
			if !fn(string(k), entry) {
				return fmt.Errorf("stop")
			}
			return nil
		})
	})
}

// Stats returns the number of unexpired keys and their size on disk
func (pc *PersistentCache) Stats() (numKeys int, sizeInKB int) {
	pc.Range(func(key string, entry CacheEntry) bool {
		numKeys++
		sizeInKB += len(key) + len(entry.Value)
		return true
	})
	sizeInKB = sizeInKB / 1024
	return
}

// Sweep deletes expired entries from disk and returns how many were removed
func (pc *PersistentCache) Sweep() (int, error) {
	var expiredKeys []string

	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				// Unreadable entries are swept too
				expiredKeys = append(expiredKeys, string(k))
				return nil
			}
			if entry.expired() {
				expiredKeys = append(expiredKeys, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	for _, key := range expiredKeys {
		if err := pc.Delete(key); err != nil {
			return 0, err
		}
	}

	return len(expiredKeys), nil
}

// Backup creates a backup of the cache database file.
// Returns the backup file path.
func (pc *PersistentCache) Backup() (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	backupFileName := fmt.Sprintf("cache_backup_%s.db", timestamp)
	backupFilePath := filepath.Join(pc.backupPath, backupFileName)

	log.Infof("[Cache:Backup] Creating backup at: %s", backupFilePath)

	// Close the database temporarily to ensure all data is flushed
	if err := pc.db.Close(); err != nil {
		return "", fmt.Errorf("failed to close database for backup: %v", err)
	}

	if err := copyFile(pc.dbPath, backupFilePath); err != nil {
		// Try to reopen the database even if the copy failed
		pc.reopenDatabase()
		return "", fmt.Errorf("failed to copy database file: %v", err)
	}

	if err := pc.reopenDatabase(); err != nil {
		return "", fmt.Errorf("failed to reopen database after backup: %v", err)
	}

	log.Infof("[Cache:Backup] Backup created successfully: %s", backupFilePath)
	return backupFilePath, nil
}

// BackupAndClear creates a backup of the cache and then clears it
func (pc *PersistentCache) BackupAndClear() (string, error) {
	backupPath, err := pc.Backup()
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %v", err)
	}

	if err := pc.Clear(); err != nil {
		return backupPath, fmt.Errorf("backup created but failed to clear cache: %v", err)
	}

	log.Infof("[Cache:Clear] Cache cleared successfully (backup: %s)", backupPath)
	return backupPath, nil
}

func (pc *PersistentCache) reopenDatabase() error {
	db, err := bolt.Open(pc.dbPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %v", err)
	}
	pc.db = db

	pc.memCache.Purge()
	if err := pc.loadToMemory(); err != nil {
		log.Warnf("[Cache] Failed to reload cache to memory: %v", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// Close closes the database connection
func (pc *PersistentCache) Close() error {
	if pc.db != nil {
		return pc.db.Close()
	}
	return nil
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns a list of all available backup files
func (pc *PersistentCache) ListBackups() ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(pc.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("[Cache:Backups] Failed to get info for %s: %v", entry.Name(), err)
			continue
		}

		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(pc.backupPath, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return backups, nil
}

// RestoreFromBackup replaces the current cache database with a backup.
// The current database is closed, the file replaced, and the cache reopened.
func (pc *PersistentCache) RestoreFromBackup(backupFileName string) error {
	// The name comes from an HTTP query parameter and must stay inside the
	// backup directory
	if backupFileName == "" || backupFileName != filepath.Base(backupFileName) {
		return fmt.Errorf("invalid backup file name: %s", backupFileName)
	}
	backupFilePath := filepath.Join(pc.backupPath, backupFileName)

	if _, err := os.Stat(backupFilePath); err != nil {
		return fmt.Errorf("backup file not found: %s", backupFileName)
	}

	if err := pc.db.Close(); err != nil {
		return fmt.Errorf("failed to close database for restore: %v", err)
	}

	if err := copyFile(backupFilePath, pc.dbPath); err != nil {
		pc.reopenDatabase()
		return fmt.Errorf("failed to copy backup file: %v", err)
	}

	if err := pc.reopenDatabase(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %v", err)
	}

	log.Infof("[Cache:Restore] Restored cache from backup: %s", backupFileName)
	return nil
}
