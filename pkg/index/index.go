// Package index keeps scanned documentation in memory between runs.
//
// Watch mode and the MCP server both need the latest FileResult for every
// file without rescanning the tree. DocIndex holds them in an LRU cache keyed
// by absolute path and remembers each file's content hash so that unchanged
// files are not rescanned.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/jsdocgen/pkg/docscan"
)

// Document is one indexed file.
type Document struct {
	// Path is the absolute path of the file.
	Path string `json:"path"`

	// RelPath is the path relative to the project root.
	RelPath string `json:"rel_path"`

	Result      *docscan.FileResult `json:"result"`
	ContentHash string              `json:"content_hash"`
	IndexedAt   time.Time           `json:"indexed_at"`
}

// Config configures the index.
type Config struct {
	// MaxFiles bounds the number of documents kept. Default: 5000.
	MaxFiles int

	// Debug enables per-file logging.
	Debug bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxFiles: 5000}
}

// Stats describes the current index contents and lookup counters.
type Stats struct {
	Files       int   `json:"files"`
	Documented  int   `json:"documented"`
	Entries     int   `json:"entries"`
	Unprocessed int   `json:"unprocessed"`
	Diagnostics int   `json:"diagnostics"`
	Updates     int64 `json:"updates"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
}

// EntryRef points at one entry inside an indexed document.
type EntryRef struct {
	Doc   *Document
	Index int
	Entry docscan.Entry
}

// DocIndex is a thread-safe, size-bounded store of documents.
type DocIndex struct {
	mu   sync.RWMutex
	docs *lru.Cache[string, *Document]

	updates   atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	config Config
	logger *slog.Logger
}

// New creates a DocIndex. A nil logger falls back to slog.Default().
func New(config Config, logger *slog.Logger) *DocIndex {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultConfig().MaxFiles
	}

	cache, err := lru.NewWithEvict(config.MaxFiles, func(path string, doc *Document) {
		if config.Debug {
			logger.Debug("Dropping document", "path", path, "entries", doc.Result.EntryCount())
		}
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &DocIndex{docs: cache, config: config, logger: logger}
}

// Put stores doc, replacing any previous document for the same path.
func (ix *DocIndex) Put(doc *Document) {
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now()
	}

	ix.mu.Lock()
	evicted := ix.docs.Add(doc.Path, doc)
	ix.mu.Unlock()

	ix.updates.Add(1)
	if evicted {
		ix.evictions.Add(1)
	}
	if ix.config.Debug {
		ix.logger.Debug("Indexed document", "path", doc.Path, "entries", doc.Result.EntryCount())
	}
}

// Get returns the document for an absolute path.
func (ix *DocIndex) Get(path string) (*Document, bool) {
	ix.mu.RLock()
	doc, ok := ix.docs.Get(path)
	ix.mu.RUnlock()

	if ok {
		ix.hits.Add(1)
	} else {
		ix.misses.Add(1)
	}
	return doc, ok
}

// Lookup finds a document by absolute path, relative path, or short name.
// When several files share a short name the one with the smallest relative
// path wins.
func (ix *DocIndex) Lookup(key string) (*Document, bool) {
	if doc, ok := ix.Get(key); ok {
		return doc, true
	}
	for _, doc := range ix.All() {
		if doc.RelPath == key || doc.Result.ShortName == key {
			return doc, true
		}
	}
	return nil, false
}

// Unchanged reports whether path is indexed with the given content hash.
func (ix *DocIndex) Unchanged(path, hash string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.docs.Peek(path)
	return ok && doc.ContentHash == hash
}

// Remove drops the document for path and reports whether it was present.
func (ix *DocIndex) Remove(path string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.docs.Remove(path)
}

// Len returns the number of indexed documents.
func (ix *DocIndex) Len() int {
	return ix.docs.Len()
}

// All returns a snapshot of every document sorted by relative path.
func (ix *DocIndex) All() []*Document {
	ix.mu.RLock()
	keys := ix.docs.Keys()
	docs := make([]*Document, 0, len(keys))
	for _, k := range keys {
		if doc, ok := ix.docs.Peek(k); ok {
			docs = append(docs, doc)
		}
	}
	ix.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].RelPath != docs[j].RelPath {
			return docs[i].RelPath < docs[j].RelPath
		}
		return docs[i].Path < docs[j].Path
	})
	return docs
}

// Documented returns the results of all documents that have at least one
// entry, in relative path order. This is the input the renderer expects.
func (ix *DocIndex) Documented() []*docscan.FileResult {
	var out []*docscan.FileResult
	for _, doc := range ix.All() {
		if doc.Result.EntryCount() > 0 {
			out = append(out, doc.Result)
		}
	}
	return out
}

// FindEntries returns every entry for which match returns true, in document
// and source order.
func (ix *DocIndex) FindEntries(match func(*Document, docscan.Entry) bool) []EntryRef {
	var refs []EntryRef
	for _, doc := range ix.All() {
		for i, e := range doc.Result.Entries {
			if match(doc, e) {
				refs = append(refs, EntryRef{Doc: doc, Index: i, Entry: e})
			}
		}
	}
	return refs
}

// Stats returns current index statistics.
func (ix *DocIndex) Stats() Stats {
	s := Stats{
		Updates:   ix.updates.Load(),
		Hits:      ix.hits.Load(),
		Misses:    ix.misses.Load(),
		Evictions: ix.evictions.Load(),
	}
	for _, doc := range ix.All() {
		s.Files++
		if n := doc.Result.EntryCount(); n > 0 {
			s.Documented++
			s.Entries += n
		}
		s.Unprocessed += doc.Result.Unprocessed
		s.Diagnostics += len(doc.Result.Diagnostics)
	}
	return s
}

// Close drops all documents.
func (ix *DocIndex) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs.Purge()
}

// ComputeContentHash returns the hex SHA-256 of content.
func ComputeContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
