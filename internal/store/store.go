package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// TimedLine is one line of the on-disk lyrics record. Seconds is the
// authoritative offset; Time is the formatted mm:ss.ss form kept for
// readability of the files.
type TimedLine struct {
	Time    string  `json:"time"`
	Seconds float64 `json:"seconds"`
	Text    string  `json:"line"`
}

// Record is the canonical lyrics cache record, one JSON file per track.
type Record struct {
	Artist      string      `json:"artist"`
	Title       string      `json:"title"`
	HasTimed    bool        `json:"has_timed"`
	TimedLyrics []TimedLine `json:"timed_lyrics"`
	PlainLyrics string      `json:"plain_lyrics"`
}

// Cache is a disk-backed lyrics store with an in-memory front map.
// Files are named by a sanitized "artist - title" key so they stay
// shareable with other tools reading the same format.
type Cache struct {
	basePath string
	mu       sync.RWMutex
	mem      map[string]*Record
}

func NewCache(basePath string) (*Cache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		basePath: basePath,
		mem:      make(map[string]*Record),
	}, nil
}

func (c *Cache) Path() string {
	return c.basePath
}

// sanitizeKey keeps letters, digits, spaces and safe punctuation only.
func sanitizeKey(s string) string {
	const keep = "-_.()[] "
	var b strings.Builder
	for _, r := range s {
		if r == utf8ReplacementRune {
			continue
		}
		if isAlnum(r) || strings.ContainsRune(keep, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

const utf8ReplacementRune = '�'

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r > 127 // keep non-ascii letters so international titles stay readable
}

func cacheKey(artist, title string) string {
	return sanitizeKey(artist + " - " + title)
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.basePath, key+".json")
}

// Get returns ErrCacheMiss for absent entries and ErrCacheCorrupt for
// unreadable ones; callers treat both as "fetch again".
func (c *Cache) Get(artist, title string) (*Record, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := cacheKey(artist, title)

	c.mu.RLock()
	rec, exists := c.mem[key]
	c.mu.RUnlock()
	if exists {
		return rec, nil
	}

	rec, err := c.readFromDisk(c.filePath(key))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.mem[key] = rec
	c.mu.Unlock()

	return rec, nil
}

func (c *Cache) Set(artist, title string, rec *Record) error {
	if artist == "" || title == "" || rec == nil {
		return errors.New("invalid cache entry")
	}

	key := cacheKey(artist, title)

	c.mu.Lock()
	c.mem[key] = rec
	c.mu.Unlock()

	return c.writeToDisk(c.filePath(key), rec)
}

func (c *Cache) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := cacheKey(artist, title)

	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	err := os.Remove(c.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) Clear() error {
	c.mu.Lock()
	c.mem = make(map[string]*Record)
	c.mu.Unlock()

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			_ = os.Remove(filepath.Join(c.basePath, entry.Name()))
		}
	}
	return nil
}

func (c *Cache) List() ([]*Record, error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []*Record
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".json") {
			continue
		}
		rec, err := c.readFromDisk(filepath.Join(c.basePath, dirEntry.Name()))
		if err != nil {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (c *Cache) Stats() (count int, sizeBytes int64, err error) {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		sizeBytes += info.Size()
	}
	return count, sizeBytes, nil
}

func (c *Cache) readFromDisk(filePath string) (*Record, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrCacheCorrupt
	}
	if rec.Artist == "" && rec.Title == "" {
		return nil, ErrCacheCorrupt
	}

	return &rec, nil
}

func (c *Cache) writeToDisk(filePath string, rec *Record) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpPath, filePath)
}
