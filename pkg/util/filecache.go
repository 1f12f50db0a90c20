// FileCache keeps source files memory-mapped between reads.
//
// A generate run reads every file once, but watch and serve modes come back
// to the same files for snippets and rescans. Mapping the file once and
// slicing by byte offset avoids re-reading it each time. Files that cannot be
// mapped are read into memory instead.
//
// A mapped file must be evicted before it is rescanned after a change on
// disk; the mapping would otherwise keep serving the old contents or fault
// on a truncated file.
package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// FileCache provides cached access to source files. Implementations are safe
// for concurrent use.
type FileCache interface {
	// Get returns the cached file, loading it on first access.
	Get(filePath string) (*MappedFile, error)

	// Read returns a copy of the whole file as a string.
	Read(filePath string) (string, error)

	// Snippet returns the bytes in [start, end). end is clamped to the file
	// size; (0, 0) returns the whole file.
	Snippet(filePath string, start, end int) (string, error)

	// Evict drops a file from the cache and releases its mapping. It reports
	// whether the file was cached.
	Evict(filePath string) bool

	// Size returns number of currently cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() FileCacheStats

	// Close unmaps all files and releases resources.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles caps the number of cached files. 0 means unlimited.
	MaxFiles int

	// MaxMemoryMB caps the total size of cached files in MB. This is address
	// space, not resident memory. 0 means unlimited.
	MaxMemoryMB int

	// EnableMetrics turns on hit/miss accounting.
	EnableMetrics bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns limits that fit typical JavaScript projects.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles:      10000,
		MaxMemoryMB:   2048,
		EnableMetrics: true,
	}
}

// UnboundedFileCacheConfig returns a config with no limits. Used in tests.
func UnboundedFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{EnableMetrics: true}
}

// MappedFile is one cached source file.
type MappedFile struct {
	Path string

	// Data is the mapped region, or the file contents when mapping failed.
	// Nil for empty files.
	Data mmap.MMap

	// File is kept open for mapped files and nil otherwise.
	File *os.File

	Size     int64
	MappedAt time.Time

	mapped bool
}

// FileCacheStats tracks cache performance metrics.
type FileCacheStats struct {
	FilesLoaded   int64   `json:"files_loaded"`
	FilesCached   int     `json:"files_cached"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	MmapFailures  int64   `json:"mmap_failures"`
	Evictions     int64   `json:"evictions"`
	TotalMappedMB float64 `json:"total_mapped_mb"`
}

// ErrCacheFull is returned by Get when loading a file would exceed the
// configured limits.
var ErrCacheFull = errors.New("file cache limit reached")

// NewFileCache creates a new FileCache. A nil config uses
// DefaultFileCacheConfig().
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileCache{
		config: config,
		files:  make(map[string]*MappedFile),
		logger: logger,
	}
}

type fileCache struct {
	config *FileCacheConfig
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]*MappedFile
	bytes int64

	statsMu sync.Mutex
	stats   FileCacheStats
}

func (fc *fileCache) Get(filePath string) (*MappedFile, error) {
	fc.mu.RLock()
	mf, ok := fc.files[filePath]
	fc.mu.RUnlock()
	if ok {
		fc.count(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Another goroutine may have loaded it while we waited.
	if mf, ok := fc.files[filePath]; ok {
		fc.count(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}
	fc.count(func(s *FileCacheStats) { s.CacheMisses++ })

	mf, err := fc.load(filePath)
	if err != nil {
		return nil, err
	}
	fc.files[filePath] = mf
	fc.bytes += mf.Size
	fc.count(func(s *FileCacheStats) { s.FilesLoaded++ })

	return mf, nil
}

// load opens and maps filePath. Must be called with mu held.
func (fc *fileCache) load(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", filePath, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", filePath, err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%q is a directory", filePath)
	}

	if err := fc.checkLimits(stat.Size()); err != nil {
		file.Close()
		return nil, err
	}

	mf := &MappedFile{Path: filePath, Size: stat.Size(), MappedAt: time.Now()}
	if stat.Size() == 0 {
		file.Close()
		return mf, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, reading file instead",
			"file", filePath,
			"size", stat.Size(),
			"error", err)
		fc.count(func(s *FileCacheStats) { s.MmapFailures++ })

		buf, readErr := os.ReadFile(filePath)
		file.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %q after mmap error %v: %w", filePath, err, readErr)
		}
		mf.Data = mmap.MMap(buf)
		mf.Size = int64(len(buf))
		return mf, nil
	}

	mf.Data = data
	mf.File = file
	mf.mapped = true
	return mf, nil
}

// checkLimits must be called with mu held.
func (fc *fileCache) checkLimits(size int64) error {
	if fc.config.MaxFiles > 0 && len(fc.files) >= fc.config.MaxFiles {
		return fmt.Errorf("%w: %d files (limit %d)", ErrCacheFull, len(fc.files), fc.config.MaxFiles)
	}
	if fc.config.MaxMemoryMB > 0 {
		limit := int64(fc.config.MaxMemoryMB) * 1024 * 1024
		if fc.bytes+size > limit {
			return fmt.Errorf("%w: %.2f MB + %.2f MB exceeds %d MB",
				ErrCacheFull, toMB(fc.bytes), toMB(size), fc.config.MaxMemoryMB)
		}
	}
	return nil
}

func (fc *fileCache) Read(filePath string) (string, error) {
	return fc.Snippet(filePath, 0, 0)
}

func (fc *fileCache) Snippet(filePath string, start, end int) (string, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return "", err
	}
	size := len(mf.Data)
	if start == 0 && end == 0 {
		end = size
	}
	if end > size {
		end = size
	}
	if start < 0 || start > end {
		return "", fmt.Errorf("invalid byte range [%d, %d) for %q (size %d)", start, end, filePath, size)
	}
	// string() copies, so the result outlives the mapping.
	return string(mf.Data[start:end]), nil
}

func (fc *fileCache) Evict(filePath string) bool {
	fc.mu.Lock()
	mf, ok := fc.files[filePath]
	if ok {
		delete(fc.files, filePath)
		fc.bytes -= mf.Size
	}
	fc.mu.Unlock()

	if !ok {
		return false
	}
	if err := release(mf); err != nil {
		fc.logger.Warn("failed to release evicted file", "file", filePath, "error", err)
	}
	fc.count(func(s *FileCacheStats) { s.Evictions++ })
	return true
}

func (fc *fileCache) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.files)
}

func (fc *fileCache) Stats() FileCacheStats {
	fc.mu.RLock()
	cached, total := len(fc.files), fc.bytes
	fc.mu.RUnlock()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	stats := fc.stats
	stats.FilesCached = cached
	stats.TotalMappedMB = toMB(total)
	return stats
}

func (fc *fileCache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.files {
		if err := release(mf); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	fc.files = make(map[string]*MappedFile)
	fc.bytes = 0

	fc.statsMu.Lock()
	loaded := fc.stats.FilesLoaded
	fc.statsMu.Unlock()
	fc.logger.Debug("File cache closed",
		"files_loaded", loaded,
		"release_errors", len(errs))

	return errors.Join(errs...)
}

func (fc *fileCache) count(update func(*FileCacheStats)) {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	update(&fc.stats)
	fc.statsMu.Unlock()
}

func release(mf *MappedFile) error {
	var errs []error
	if mf.mapped && mf.Data != nil {
		if err := mf.Data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
	}
	if mf.File != nil {
		if err := mf.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func toMB(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
