package generator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// matcher decides which root-relative paths take part in a run.
type matcher struct {
	include      []string
	exclude      []string
	excludedDirs map[string]bool
}

func newMatcher(opts RunOptions) (*matcher, error) {
	m := &matcher{
		include:      opts.Include,
		exclude:      append(append([]string{}, DefaultExclude...), opts.Exclude...),
		excludedDirs: make(map[string]bool, len(opts.ExcludedDirectories)),
	}
	if len(m.include) == 0 {
		m.include = DefaultInclude
	}

	for _, pattern := range m.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range m.include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}
	for _, dir := range opts.ExcludedDirectories {
		if dir = strings.Trim(filepath.ToSlash(dir), "/"); dir != "" {
			m.excludedDirs[dir] = true
		}
	}
	return m, nil
}

// excluded reports whether rel (slash separated) is excluded, either by a
// glob or because its first segment is an excluded directory.
func (m *matcher) excluded(rel string) bool {
	first, _, _ := strings.Cut(rel, "/")
	if m.excludedDirs[first] {
		return true
	}
	for _, pattern := range m.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (m *matcher) included(rel string) bool {
	for _, pattern := range m.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// accepts reports whether a file at rel is part of the run.
func (m *matcher) accepts(rel string) bool {
	return !m.excluded(rel) && m.included(rel)
}

// DiscoverFiles walks root and returns the matching files sorted by
// relative path. Unreadable directories are logged and skipped.
func DiscoverFiles(root string, opts RunOptions, logger *slog.Logger) ([]FileJob, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := newMatcher(opts)
	if err != nil {
		return nil, err
	}
	return m.discover(root, logger)
}

func (m *matcher) discover(root string, logger *slog.Logger) ([]FileJob, error) {
	var jobs []FileJob

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Walk error", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if m.accepts(rel) {
			jobs = append(jobs, FileJob{Path: path, RelPath: rel})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RelPath < jobs[j].RelPath })
	for i := range jobs {
		jobs[i].JobID = i
	}
	return jobs, nil
}
