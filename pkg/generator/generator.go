// Package generator drives documentation runs over a project tree.
//
// A run discovers source files, scans them on a worker pool, optionally
// cross-checks each file with tree-sitter, and stores the results in a
// DocIndex. Generate renders the documented files into the HTML page.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/index"
	"github.com/gnana997/jsdocgen/pkg/render"
	"github.com/gnana997/jsdocgen/pkg/syntax"
	"github.com/gnana997/jsdocgen/pkg/util"
)

// Generator scans projects and renders their documentation. It is safe for
// concurrent use; renders are serialized.
type Generator struct {
	config    Config
	scanner   *docscan.Scanner
	cache     util.FileCache
	ownsCache bool
	inspector *syntax.Inspector
	index     *index.DocIndex
	logger    *slog.Logger

	renderMu sync.Mutex
}

// New creates a Generator. A nil logger falls back to slog.Default().
func New(config Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	config.Workers = util.GetOptimalPoolSizeWithOverride(config.Workers)
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultConfig().MaxFiles
	}

	g := &Generator{
		config:  config,
		scanner: docscan.NewScanner(config.Annotation),
		cache:   config.Cache,
		index:   index.New(index.Config{MaxFiles: config.MaxFiles}, logger),
		logger:  logger,
	}
	if g.cache == nil {
		cacheConfig := util.DefaultFileCacheConfig()
		cacheConfig.Logger = logger
		g.cache = util.NewFileCache(cacheConfig)
		g.ownsCache = true
	}
	if config.SyntaxCheck {
		// One parser per worker so that no worker waits on the pool.
		g.inspector = syntax.NewInspector(config.Workers, logger)
	}
	return g
}

// Index returns the document index filled by runs.
func (g *Generator) Index() *index.DocIndex {
	return g.index
}

// Cache returns the source file cache.
func (g *Generator) Cache() util.FileCache {
	return g.cache
}

// Inspector returns the syntax inspector, or nil when the check is disabled.
func (g *Generator) Inspector() *syntax.Inspector {
	return g.inspector
}

// Close releases parsers, the index and an owned file cache.
func (g *Generator) Close() error {
	var errs []error
	if g.inspector != nil {
		errs = append(errs, g.inspector.Close())
	}
	g.index.Close()
	if g.ownsCache {
		errs = append(errs, g.cache.Close())
	}
	return errors.Join(errs...)
}

// Run scans the project under root. Files that cannot be read are recorded
// in Run.Errors and do not fail the run. Cancelling ctx stops submission;
// files already queued are still scanned, then ctx.Err() is returned.
func (g *Generator) Run(ctx context.Context, root string, opts RunOptions) (*Run, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", absRoot)
	}

	run := &Run{Root: absRoot, StartTime: time.Now(), WorkerCount: g.config.Workers}
	g.logger.Info("Starting documentation run", "root", absRoot)

	jobs, err := DiscoverFiles(absRoot, opts, g.logger)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	g.logger.Debug("File discovery complete", "files_found", len(jobs))

	if len(jobs) == 0 {
		g.logger.Warn("No source files found", "root", absRoot)
	} else if err := g.scanAll(ctx, jobs, run, opts.Progress); err != nil {
		return nil, err
	}

	sort.Slice(run.Documents, func(i, j int) bool { return run.Documents[i].RelPath < run.Documents[j].RelPath })
	sort.Slice(run.Errors, func(i, j int) bool { return run.Errors[i].RelPath < run.Errors[j].RelPath })

	g.prune(run)
	g.tally(run, len(jobs))
	run.Duration = time.Since(run.StartTime)

	g.logger.Info("Documentation run complete",
		"files_total", run.Totals.FilesTotal,
		"files_documented", run.Totals.FilesDocumented,
		"entries", run.Totals.Entries,
		"unprocessed", run.Totals.Unprocessed,
		"file_errors", run.Totals.FileErrors,
		"duration_ms", run.Duration.Milliseconds())

	return run, nil
}

// scanAll runs jobs through the worker pool and collects the outcome into run.
func (g *Generator) scanAll(ctx context.Context, jobs []FileJob, run *Run, progress ProgressCallback) error {
	pool := NewWorkerPool(g.config.Workers, g.process, g.logger)
	pool.Start()

	// The collector must be running before submission starts, otherwise a
	// full results channel blocks the workers and Submit behind them.
	done := make(chan struct{})
	go func() {
		defer close(done)
		results, errs := pool.Results(), pool.Errors()
		count := 0
		for results != nil || errs != nil {
			select {
			case res, ok := <-results:
				if !ok {
					results = nil
					continue
				}
				run.Documents = append(run.Documents, res.Doc)
				if res.Reused {
					run.Totals.Reused++
				}
				count++
				if progress != nil {
					progress(count, len(jobs), res.Job.RelPath)
				}
			case fileErr, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				g.logger.Warn("Failed to scan file", "file", fileErr.RelPath, "error", fileErr.Err)
				run.Errors = append(run.Errors, fileErr)
				count++
			}
		}
	}()

	var submitErr error
	for _, job := range jobs {
		if err := pool.Submit(ctx, job); err != nil {
			submitErr = err
			break
		}
	}
	pool.Stop()
	<-done

	if submitErr != nil {
		if ctx.Err() != nil {
			g.logger.Info("Documentation run cancelled", "scanned", len(run.Documents), "total", len(jobs))
			return fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to submit jobs: %w", submitErr)
	}
	return nil
}

// process is the worker function: read, scan, cross-check.
func (g *Generator) process(job FileJob) (JobResult, error) {
	// Always read the current contents; the cache may hold an older mapping.
	g.cache.Evict(job.Path)
	content, err := g.read(job.Path)
	if err != nil {
		return JobResult{}, err
	}

	hash := index.ComputeContentHash([]byte(content))
	if prev, ok := g.index.Get(job.Path); ok && prev.ContentHash == hash && prev.RelPath == job.RelPath {
		return JobResult{Doc: prev, Reused: true}, nil
	}

	return JobResult{Doc: g.scan(job, content, hash)}, nil
}

// read returns the file contents through the cache, reading directly when
// the cache is full. Content is converted to UTF-8; binary files are errors.
func (g *Generator) read(path string) (string, error) {
	content, err := g.cache.Read(path)
	if errors.Is(err, util.ErrCacheFull) {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return "", fmt.Errorf("failed to read file: %w", readErr)
		}
		content, err = string(data), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	text, enc, err := util.DecodeSource([]byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to decode file: %w", err)
	}
	if enc != "utf-8" {
		g.logger.Debug("Converted source to UTF-8", "file", path, "encoding", enc)
	}
	return text, nil
}

func (g *Generator) scan(job FileJob, content, hash string) *index.Document {
	res := g.scanner.ScanFile(job.RelPath, content)

	if g.inspector != nil && res.EntryCount()+res.Unprocessed > 0 {
		report, err := g.inspector.Inspect(job.Path, []byte(content))
		if err != nil {
			g.logger.Debug("Syntax check skipped", "file", job.RelPath, "error", err)
		} else {
			report.Annotate(res)
		}
	}

	doc := &index.Document{
		Path:        job.Path,
		RelPath:     job.RelPath,
		Result:      res,
		ContentHash: hash,
	}
	g.index.Put(doc)
	return doc
}

// prune drops index documents under the run root that the run did not see.
func (g *Generator) prune(run *Run) {
	seen := make(map[string]bool, len(run.Documents)+len(run.Errors))
	for _, doc := range run.Documents {
		seen[doc.Path] = true
	}
	for _, fe := range run.Errors {
		seen[fe.Path] = true
	}
	prefix := run.Root + string(filepath.Separator)
	for _, doc := range g.index.All() {
		if !seen[doc.Path] && strings.HasPrefix(doc.Path, prefix) {
			g.index.Remove(doc.Path)
			g.cache.Evict(doc.Path)
		}
	}
}

// tally computes the totals and logs every diagnostic.
func (g *Generator) tally(run *Run, discovered int) {
	t := &run.Totals
	t.FilesTotal = discovered
	t.FileErrors = len(run.Errors)
	for _, doc := range run.Documents {
		res := doc.Result
		if n := res.EntryCount(); n > 0 {
			t.FilesDocumented++
			t.Entries += n
		}
		t.Unprocessed += res.Unprocessed
		t.Diagnostics += len(res.Diagnostics)
		if res.SyntaxErrors {
			t.SyntaxErrors++
		}
		g.logDiagnostics(res)
	}
}

func (g *Generator) logDiagnostics(res *docscan.FileResult) {
	for _, d := range res.Diagnostics {
		g.logger.Warn("Annotation not documented",
			"file", d.File,
			"line", d.Line,
			"first_line", d.FirstLine,
			"reason", string(d.Reason))
	}
}

// UpdateFile rescans a single file under root and stores it in the index.
func (g *Generator) UpdateFile(root, path string) (*index.Document, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	res, err := g.process(FileJob{Path: path, RelPath: filepath.ToSlash(rel)})
	if err != nil {
		return nil, err
	}
	if !res.Reused {
		g.logDiagnostics(res.Doc.Result)
	}
	return res.Doc, nil
}

// RemoveFile drops path from the index and the cache.
func (g *Generator) RemoveFile(path string) bool {
	g.cache.Evict(path)
	return g.index.Remove(path)
}

// Render renders files into the output page and writes it. A template path
// that cannot be read and an unwritable output are errors.
func (g *Generator) Render(files []*docscan.FileResult, out Output) (render.Summary, error) {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()

	page, err := render.LoadTemplate(out.TemplatePath)
	if err != nil {
		return render.Summary{}, err
	}

	renderer := render.NewRenderer(render.Options{IgnorePrivate: out.IgnorePrivate}, g.logger)
	html, sum, err := renderer.Render(files, page)
	if err != nil {
		return sum, err
	}
	if err := render.WriteFile(out.OutputPath, html); err != nil {
		return sum, err
	}

	g.logger.Debug("Wrote documentation", "output", out.OutputPath, "files", sum.Files, "entries", sum.Entries)
	return sum, nil
}

// RenderIndex renders everything currently in the index.
func (g *Generator) RenderIndex(out Output) (render.Summary, error) {
	return g.Render(g.index.Documented(), out)
}

// Generate runs the project and writes the page.
func (g *Generator) Generate(ctx context.Context, root string, opts RunOptions, out Output) (*Run, render.Summary, error) {
	run, err := g.Run(ctx, root, opts)
	if err != nil {
		return nil, render.Summary{}, err
	}
	sum, err := g.Render(run.Documented(), out)
	if err != nil {
		return run, sum, err
	}

	g.logger.Info("Documentation written",
		"output", out.OutputPath,
		"files_documented", run.Totals.FilesDocumented,
		"files_total", run.Totals.FilesTotal,
		"entries", sum.Entries,
		"unprocessed", run.Totals.Unprocessed)
	return run, sum, nil
}

// SummaryLines are the human readable lines printed after a run.
func SummaryLines(run *Run, sum render.Summary) []string {
	lines := []string{
		fmt.Sprintf("%d source files documented out of %d files in total.", run.Totals.FilesDocumented, run.Totals.FilesTotal),
		fmt.Sprintf("%d entries generated.", sum.Entries),
	}
	if run.Totals.Unprocessed > 0 {
		lines = append(lines, fmt.Sprintf("%d entries unprocessed.", run.Totals.Unprocessed))
	}
	if sum.PrivateSkipped > 0 {
		lines = append(lines, fmt.Sprintf("%d private entries skipped.", sum.PrivateSkipped))
	}
	if run.Totals.FileErrors > 0 {
		lines = append(lines, fmt.Sprintf("%d files could not be read.", run.Totals.FileErrors))
	}
	return lines
}
