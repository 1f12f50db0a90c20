package generator

import (
	"time"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/config"
	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/index"
	"github.com/gnana997/jsdocgen/pkg/util"
)

// DefaultInclude lists the source files documented when no include globs
// are configured.
var DefaultInclude = []string{
	"**/*.js",
	"**/*.jsx",
	"**/*.mjs",
	"**/*.cjs",
	"**/*.ts",
	"**/*.tsx",
}

// DefaultExclude is always applied in addition to configured excludes.
var DefaultExclude = []string{
	"**/node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"coverage/**",
	"out/**",
	".next/**",
	".vscode/**",
	"**/*.min.js",
}

// Config configures a Generator.
type Config struct {
	// Annotation selects the annotation dialect.
	Annotation annotation.Options

	// SyntaxCheck enables the tree-sitter cross-check.
	SyntaxCheck bool

	// Workers is the scan concurrency. 0 = util.GetOptimalPoolSize().
	Workers int

	// MaxFiles bounds the document index. Default: 50000.
	MaxFiles int

	// Cache overrides the source file cache. Nil creates one with
	// util.DefaultFileCacheConfig; the Generator then owns it.
	Cache util.FileCache
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() Config {
	return Config{
		SyntaxCheck: true,
		MaxFiles:    50000,
	}
}

// RunOptions selects the files of a run.
type RunOptions struct {
	// Include globs, relative to the root. Empty uses DefaultInclude.
	Include []string

	// Exclude globs, applied on top of DefaultExclude.
	Exclude []string

	// ExcludedDirectories are matched against the first segment of the
	// root-relative path.
	ExcludedDirectories []string

	Progress ProgressCallback
}

// ProgressCallback is called after each file is scanned.
type ProgressCallback func(done, total int, relPath string)

// Output describes where a run is rendered.
type Output struct {
	// TemplatePath is an absolute template path. Empty uses the built-in page.
	TemplatePath string

	// OutputPath is the absolute path of the written HTML page.
	OutputPath string

	IgnorePrivate bool
}

// FromConfig derives the generator, run and output settings for a project
// rooted at root.
func FromConfig(cfg *config.Config, root string) (Config, RunOptions, Output) {
	gc := DefaultConfig()
	gc.Annotation = cfg.AnnotationOptions()
	gc.SyntaxCheck = cfg.SyntaxCheckEnabled()
	gc.Workers = cfg.Workers

	opts := RunOptions{
		Include:             cfg.Include,
		Exclude:             cfg.Exclude,
		ExcludedDirectories: cfg.ExcludedDirectories,
	}

	out := Output{
		TemplatePath:  config.ResolvePath(root, cfg.TemplatePath),
		OutputPath:    config.ResolvePath(root, cfg.OutputPath),
		IgnorePrivate: cfg.IgnorePrivate,
	}
	return gc, opts, out
}

// FileJob is one file submitted to the worker pool.
type FileJob struct {
	Path    string
	RelPath string
	JobID   int
}

// JobResult is the scanned document for a job.
type JobResult struct {
	Job FileJob
	Doc *index.Document

	// Reused is set when the file was unchanged since the previous run.
	Reused bool
}

// FileError records a file that could not be scanned.
type FileError struct {
	Path    string `json:"path"`
	RelPath string `json:"rel_path"`
	Err     error  `json:"-"`
}

func (e FileError) Error() string {
	return e.RelPath + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Totals are the counters reported at the end of a run.
type Totals struct {
	FilesTotal      int `json:"files_total"`
	FilesDocumented int `json:"files_documented"`
	Entries         int `json:"entries"`
	Unprocessed     int `json:"unprocessed"`
	Diagnostics     int `json:"diagnostics"`
	FileErrors      int `json:"file_errors"`
	Reused          int `json:"reused"`
	SyntaxErrors    int `json:"syntax_errors"`
}

// Run is the outcome of scanning a project.
type Run struct {
	Root string

	// Documents holds every scanned file sorted by relative path, including
	// files without entries.
	Documents []*index.Document

	Errors []FileError
	Totals Totals

	WorkerCount int
	StartTime   time.Time
	Duration    time.Duration
}

// Documented returns the results with at least one entry, in order. Files
// without entries are counted but never rendered.
func (r *Run) Documented() []*docscan.FileResult {
	var out []*docscan.FileResult
	for _, doc := range r.Documents {
		if doc.Result.EntryCount() > 0 {
			out = append(out, doc.Result)
		}
	}
	return out
}
