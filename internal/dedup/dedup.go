package dedup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache remembers detail links that were already scraped in earlier runs.
type Cache interface {
	IsSeen(ctx context.Context, url string) bool
	Add(ctx context.Context, urls []string) error
	Close() error
}

type seenEntry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// JobCache is a Cache persisted as a JSON file. Entries older than ttl are dropped on load.
type JobCache struct {
	mu       sync.Mutex
	filePath string
	ttl      time.Duration
	seen     map[string]int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobCache creates or loads seen_links.json inside cacheDir.
func NewJobCache(cacheDir string, ttl time.Duration, logger *zap.Logger) *JobCache {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logger.Warn("failed to create cache directory", zap.String("dir", cacheDir), zap.Error(err))
	}
	cache := &JobCache{
		filePath: filepath.Join(cacheDir, "seen_links.json"),
		ttl:      ttl,
		seen:     make(map[string]int64),
		logger:   logger,
		now:      time.Now,
	}
	cache.load()
	return cache
}

// IsSeen checks if a link has already been scraped
func (jc *JobCache) IsSeen(_ context.Context, url string) bool {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	_, exists := jc.seen[url]
	return exists
}

// Add records links and rewrites the file when anything changed.
func (jc *JobCache) Add(_ context.Context, urls []string) error {
	jc.mu.Lock()
	defer jc.mu.Unlock()

	now := jc.now().UnixMilli()
	changed := false
	for _, url := range urls {
		if _, exists := jc.seen[url]; !exists {
			jc.seen[url] = now
			changed = true
		}
	}

	if !changed {
		return nil
	}
	return jc.save()
}

func (jc *JobCache) Close() error {
	return nil
}

// load reads the cache from disk into the in-memory map, skipping expired entries
func (jc *JobCache) load() {
	data, err := os.ReadFile(jc.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			jc.logger.Warn("failed to read seen links", zap.String("path", jc.filePath), zap.Error(err))
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		jc.logger.Warn("failed to parse seen links", zap.String("path", jc.filePath), zap.Error(err))
		return
	}

	cutoff := jc.now().Add(-jc.ttl).UnixMilli()
	loaded := 0
	for _, e := range entries {
		if e.Timestamp > cutoff {
			jc.seen[e.URL] = e.Timestamp
			loaded++
		}
	}
	jc.logger.Info("loaded previously seen links",
		zap.Int("loaded", loaded), zap.Int("expired", len(entries)-loaded))
}

// save writes the current cache to disk; callers hold mu
func (jc *JobCache) save() error {
	entries := make([]seenEntry, 0, len(jc.seen))
	for url, ts := range jc.seen {
		entries = append(entries, seenEntry{URL: url, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(jc.filePath, data, 0644); err != nil {
		return err
	}
	jc.logger.Debug("saved seen links", zap.Int("count", len(entries)))
	return nil
}
