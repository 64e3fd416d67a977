package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/fileutil"
)

const (
	filePermissions = 0o600
	// evictionDivisor controls how far an eviction pass shrinks the
	// store: usage is reduced to maxBytes/evictionDivisor.
	evictionDivisor = 2
)

// Store is a content-addressed byte store keyed by fingerprint + format,
// laid out as one file per entry: {dir}/{hexdigest}.{format}. A Store is
// safe for concurrent use by multiple requests; concurrent writers to the
// same key produce byte-identical content, so the overwrite race is
// harmless.
type Store struct {
	dir      string
	maxBytes int64
	enabled  bool
	log      *logger.Logger
}

// NewStore creates the cache store rooted at dir. When enabled is false
// the store reports every key as absent and ignores writes, while Load
// still fails explicitly if attempted.
func NewStore(dir string, maxBytes int64, enabled bool, log *logger.Logger) (*Store, error) {
	if dir == "" {
		dir = fileutil.CacheDir()
	}

	if enabled {
		err := fileutil.EnsureDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare cache directory: %w", err)
		}
	}

	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		enabled:  enabled,
		log:      log,
	}, nil
}

// Exists reports whether an entry is present for the key + format pair.
func (s *Store) Exists(key, format string) bool {
	if !s.enabled {
		return false
	}

	_, err := os.Stat(s.entryPath(key, format))

	return err == nil
}

// Load returns the cached bytes for the key + format pair and refreshes
// the entry's access time for eviction ordering. Absent entries fail
// with core.ErrCacheMiss, as does every load on a disabled store, even
// when the directory holds entries from an earlier enabled run.
func (s *Store) Load(key, format string) ([]byte, error) {
	if !s.enabled {
		return nil, fmt.Errorf("%w: cache disabled", core.ErrCacheMiss)
	}

	path := s.entryPath(key, format)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s.%s", core.ErrCacheMiss, key, format)
		}

		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	now := time.Now()

	touchErr := os.Chtimes(path, now, now)
	if touchErr != nil {
		// Access-time tracking is best-effort; a failed touch only
		// skews eviction ordering.
		s.log.Warn("Failed to update cache access time for %s: %v", path, touchErr)
	}

	return data, nil
}

// Save writes the bytes under the key + format pair. A write that would
// push usage past the configured maximum first evicts least-recently-
// accessed entries until usage falls to half the maximum. Save is a
// no-op when the store is disabled.
func (s *Store) Save(key, format string, data []byte) error {
	if !s.enabled {
		return nil
	}

	s.evictIfNeeded(int64(len(data)))

	path := s.entryPath(key, format)
	tmpPath := path + ".tmp"

	err := os.WriteFile(tmpPath, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to finalize cache entry: %w", err)
	}

	return nil
}

func (s *Store) entryPath(key, format string) string {
	return filepath.Join(s.dir, fileutil.SanitizeFilename(key+"."+format))
}

type entryInfo struct {
	path     string
	size     int64
	accessed time.Time
}

// evictIfNeeded removes least-recently-accessed entries before a write of
// incoming bytes that would exceed the cap. Removal failures are
// swallowed: eviction is best-effort cleanup, not a hard guarantee.
func (s *Store) evictIfNeeded(incoming int64) {
	entries, total := s.scan()
	if total+incoming <= s.maxBytes {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.Before(entries[j].accessed)
	})

	target := s.maxBytes / evictionDivisor

	for _, entry := range entries {
		if total <= target {
			break
		}

		removeErr := os.Remove(entry.path)
		if removeErr != nil {
			s.log.Warn("Failed to evict cache entry %s: %v", entry.path, removeErr)

			continue
		}

		total -= entry.size
	}

	s.log.Info("Cache eviction pass complete: usage now %s of %s cap",
		fileutil.FormatFileSize(total), fileutil.FormatFileSize(s.maxBytes))
}

func (s *Store) scan() ([]entryInfo, int64) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, 0
	}

	var (
		entries []entryInfo
		total   int64
	)

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		info, infoErr := dirEntry.Info()
		if infoErr != nil {
			continue
		}

		entries = append(entries, entryInfo{
			path:     filepath.Join(s.dir, dirEntry.Name()),
			size:     info.Size(),
			accessed: info.ModTime(),
		})
		total += info.Size()
	}

	return entries, total
}
