package client

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// CacheEntry records the validator of a downloaded workbook.
type CacheEntry struct {
	ETag  string `json:"etag"`
	Bytes int64  `json:"bytes"`
	Blob  string `json:"blob"`
}

// cacheData is the on-disk JSON index.
type cacheData struct {
	Version int                   `json:"v"`
	Entries map[string]CacheEntry `json:"entries"`
}

// FileCache keeps downloaded workbooks keyed by URL.
// If no writable directory is found, it operates in-memory only.
type FileCache struct {
	mu       sync.Mutex
	dir      string // empty string = in-memory only
	data     cacheData
	inMemory map[string]CacheEntry
	blobs    map[string][]byte
}

// NewFileCache probes for a writable cache directory using the cascade:
//  1. $TMPDIR/sheetview/ (or os.TempDir()/sheetview/)
//  2. .sheetview/ in cwd
//  3. in-memory only (no persistence)
func NewFileCache() *FileCache {
	fc := newMemoryCache()

	if dir := filepath.Join(os.TempDir(), "sheetview"); probeWritable(dir) {
		fc.dir = dir
		fc.load()
		return fc
	}

	if cwd, err := os.Getwd(); err == nil {
		if dir := filepath.Join(cwd, ".sheetview"); probeWritable(dir) {
			fc.dir = dir
			fc.load()
			return fc
		}
	}

	return fc
}

func newMemoryCache() *FileCache {
	return &FileCache{
		inMemory: make(map[string]CacheEntry),
		blobs:    make(map[string][]byte),
	}
}

// Get looks up the entry for a URL.
func (fc *FileCache) Get(key string) (CacheEntry, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.dir != "" {
		e, ok := fc.data.Entries[key]
		return e, ok
	}
	e, ok := fc.inMemory[key]
	return e, ok
}

// Blob returns the cached body for a URL.
func (fc *FileCache) Blob(key string) ([]byte, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.dir == "" {
		b, ok := fc.blobs[key]
		return b, ok
	}
	e, ok := fc.data.Entries[key]
	if !ok {
		return nil, false
	}
	b, err := os.ReadFile(filepath.Join(fc.dir, "blobs", e.Blob))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put stores an entry with its body and persists to disk if possible.
func (fc *FileCache) Put(key string, entry CacheEntry, body []byte) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entry.Blob = BlobName(key)
	if fc.dir == "" {
		fc.inMemory[key] = entry
		fc.blobs[key] = body
		return
	}
	blobs := filepath.Join(fc.dir, "blobs")
	if err := os.MkdirAll(blobs, 0o755); err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(blobs, entry.Blob), body, 0o644); err != nil {
		return
	}
	fc.data.Entries[key] = entry
	fc.save()
}

// Evict removes an entry (e.g. after a 404).
func (fc *FileCache) Evict(key string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.dir == "" {
		delete(fc.inMemory, key)
		delete(fc.blobs, key)
		return
	}
	if e, ok := fc.data.Entries[key]; ok {
		_ = os.Remove(filepath.Join(fc.dir, "blobs", e.Blob))
		delete(fc.data.Entries, key)
		fc.save()
	}
}

// BlobName is the on-disk file name for a URL: "sha256-<hex>".
func BlobName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "sha256-" + hex.EncodeToString(sum[:])
}

func (fc *FileCache) load() {
	fresh := cacheData{Version: 1, Entries: make(map[string]CacheEntry)}
	raw, err := os.ReadFile(filepath.Join(fc.dir, "cache.json"))
	if err != nil {
		fc.data = fresh
		return
	}
	if err := json.Unmarshal(raw, &fc.data); err != nil || fc.data.Version != 1 {
		fc.data = fresh
		return
	}
	if fc.data.Entries == nil {
		fc.data.Entries = make(map[string]CacheEntry)
	}
}

func (fc *FileCache) save() {
	if fc.dir == "" {
		return
	}
	_ = os.MkdirAll(fc.dir, 0o755)
	raw, err := json.MarshalIndent(fc.data, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(fc.dir, "cache.json"), raw, 0o644)
}

// probeWritable tries to create the directory and write a probe file.
func probeWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
