package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestCache creates a temporary cache for testing
func setupTestCache(t *testing.T, compression bool) (*PersistentCache, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	cache, err := NewPersistentCache(dbPath, backupPath, 100, time.Hour, compression)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}

	cleanup := func() {
		cache.Close()
	}

	return cache, tmpDir, cleanup
}

func TestNewPersistentCache(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	cache, err := NewPersistentCache(dbPath, backupPath, 50, time.Hour, true)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	if cache.db == nil {
		t.Error("Expected database to be initialized")
	}
	if cache.dbPath != dbPath {
		t.Errorf("Expected dbPath %q, got %q", dbPath, cache.dbPath)
	}
	if !cache.compressionEnabled {
		t.Error("Expected compression to be enabled")
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Error("Expected backup directory to be created")
	}
}

func TestSetAndGet(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	key := "track:6rqhFgbbKwnb9MLmUQDhG6"
	value := `{"id":"6rqhFgbbKwnb9MLmUQDhG6","name":"Bohemian Rhapsody"}`

	if err := cache.Set(key, value); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Expected value to be found")
	}
	if got != value {
		t.Errorf("Expected value %q, got %q", value, got)
	}
}

func TestSetAndGet_WithCompression(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, true)
	defer cleanup()

	key := "album:2noRn2Aes5aoNVsU6iWThc"
	value := `{"id":"2noRn2Aes5aoNVsU6iWThc","name":"Discovery","tracks":[]}`

	if err := cache.Set(key, value); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Expected value to be found")
	}
	if got != value {
		t.Errorf("Expected round-tripped value %q, got %q", value, got)
	}
}

func TestGet_Missing(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	if _, ok := cache.Get("does-not-exist"); ok {
		t.Error("Expected miss for unknown key")
	}
}

func TestExpiration(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	key := "track:expired"
	if err := cache.SetWithTTL(key, "stale", 10*time.Millisecond); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	if _, ok := cache.Get(key); !ok {
		t.Fatal("Expected fresh entry to be found")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get(key); ok {
		t.Error("Expected expired entry to be a miss")
	}
}

func TestDelete(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	cache.Set("key1", "value1")
	if err := cache.Delete("key1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	if _, ok := cache.Get("key1"); ok {
		t.Error("Expected deleted key to be a miss")
	}
}

func TestClear(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")

	if err := cache.Clear(); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}

	numKeys, _ := cache.Stats()
	if numKeys != 0 {
		t.Errorf("Expected 0 keys after clear, got %d", numKeys)
	}
}

func TestSweep(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	cache.SetWithTTL("short", "gone soon", 10*time.Millisecond)
	cache.Set("long", "still here")

	time.Sleep(20 * time.Millisecond)

	removed, err := cache.Sweep()
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 swept entry, got %d", removed)
	}

	if _, ok := cache.Get("long"); !ok {
		t.Error("Expected unexpired entry to survive sweep")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	cache, err := NewPersistentCache(dbPath, backupPath, 100, time.Hour, false)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	cache.Set("playlist:37i9dQZF1DXcBWIGoYBM5M", "persisted")
	cache.Close()

	reopened, err := NewPersistentCache(dbPath, backupPath, 100, time.Hour, false)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("playlist:37i9dQZF1DXcBWIGoYBM5M")
	if !ok {
		t.Fatal("Expected value to survive reopen")
	}
	if got != "persisted" {
		t.Errorf("Expected %q, got %q", "persisted", got)
	}
}

func TestMemoryLayerBound(t *testing.T) {
	tmpDir := t.TempDir()
	cache, err := NewPersistentCache(
		filepath.Join(tmpDir, "cache.db"),
		filepath.Join(tmpDir, "backups"),
		2, time.Hour, false)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Set("c", "3") // evicts "a" from memory

	if cache.memCache.Len() > 2 {
		t.Errorf("Expected memory layer bounded at 2, got %d", cache.memCache.Len())
	}

	// Evicted key still readable from disk
	if got, ok := cache.Get("a"); !ok || got != "1" {
		t.Errorf("Expected evicted key to fall back to disk, got %q (found: %v)", got, ok)
	}
}

func TestBackupAndRestore(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	cache.Set("keep", "me")

	backupFile, err := cache.Backup()
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	backups, err := cache.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}

	cache.Clear()
	if _, ok := cache.Get("keep"); ok {
		t.Fatal("Expected cleared cache to miss")
	}

	if err := cache.RestoreFromBackup(filepath.Base(backupFile)); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if got, ok := cache.Get("keep"); !ok || got != "me" {
		t.Errorf("Expected restored value %q, got %q (found: %v)", "me", got, ok)
	}
}

func TestRestoreFromBackup_Missing(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	if err := cache.RestoreFromBackup("no_such_backup.db"); err == nil {
		t.Error("Expected error restoring from missing backup")
	}
}

func TestRestoreFromBackup_RejectsEscapingNames(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	// test_cache.db exists one level above the backup directory, so a
	// traversing name would resolve to a real file
	names := []string{
		"../test_cache.db",
		"nested/../../test_cache.db",
		"/etc/passwd",
		"",
	}
	for _, name := range names {
		if err := cache.RestoreFromBackup(name); err == nil {
			t.Errorf("Expected error for backup name %q", name)
		}
	}
}

func TestBackupAndClear(t *testing.T) {
	cache, _, cleanup := setupTestCache(t, false)
	defer cleanup()

	cache.Set("key", "value")

	backupPath, err := cache.BackupAndClear()
	if err != nil {
		t.Fatalf("BackupAndClear failed: %v", err)
	}
	if backupPath == "" {
		t.Error("Expected a backup path")
	}

	numKeys, _ := cache.Stats()
	if numKeys != 0 {
		t.Errorf("Expected empty cache after BackupAndClear, got %d keys", numKeys)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "x"},
		{"json", `{"kind":"track","id":"6rqhFgbbKwnb9MLmUQDhG6"}`},
		{"unicode", "Sigur Rós — Ágætis byrjun"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := compressString(tt.input)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			decompressed, err := decompressString(compressed)
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}
			if decompressed != tt.input {
				t.Errorf("Round trip mismatch: got %q, want %q", decompressed, tt.input)
			}
		})
	}
}

func TestDecompressString_InvalidInput(t *testing.T) {
	if _, err := decompressString("not base64!!!"); err == nil {
		t.Error("Expected error for invalid base64 input")
	}
	if _, err := decompressString("aGVsbG8="); err == nil {
		t.Error("Expected error for non-gzip input")
	}
}
