package generator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/render"
	"github.com/gnana997/jsdocgen/pkg/util"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestGenerator(t *testing.T, syntaxCheck bool) *Generator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SyntaxCheck = syntaxCheck
	cfg.Workers = 2
	g := New(cfg, nil)
	t.Cleanup(func() { g.Close() })
	return g
}

func relPaths(jobs []FileJob) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.RelPath
	}
	return out
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"src/b.ts",
		"src/a.js",
		"src/view.tsx",
		"lib/util.mjs",
		"lib/util.min.js",
		"node_modules/dep/index.js",
		"src/node_modules/nested.js",
		"vendor/jquery.js",
		"dist/bundle.js",
		"README.md",
	} {
		writeFile(t, root, rel, "var x;\n")
	}

	jobs, err := DiscoverFiles(root, RunOptions{ExcludedDirectories: []string{"/vendor/"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/util.mjs", "src/a.js", "src/b.ts", "src/view.tsx"}, relPaths(jobs))
	for i, job := range jobs {
		assert.Equal(t, i, job.JobID)
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(job.RelPath)), job.Path)
	}

	jobs, err = DiscoverFiles(root, RunOptions{Include: []string{"src/**/*.ts"}, Exclude: []string{"lib/**"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.ts"}, relPaths(jobs))
}

func TestDiscoverFiles_ExcludedDirectoryIsTopLevelOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "test/a.js", "")
	writeFile(t, root, "src/test/b.js", "")

	jobs, err := DiscoverFiles(root, RunOptions{ExcludedDirectories: []string{"test"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/test/b.js"}, relPaths(jobs))
}

func TestDiscoverFiles_Errors(t *testing.T) {
	_, err := DiscoverFiles(t.TempDir(), RunOptions{Include: []string{"src/[a"}}, nil)
	assert.ErrorContains(t, err, "invalid include pattern")

	_, err = DiscoverFiles(t.TempDir(), RunOptions{Exclude: []string{"[z"}}, nil)
	assert.ErrorContains(t, err, "invalid exclude pattern")

	_, err = DiscoverFiles(filepath.Join(t.TempDir(), "missing"), RunOptions{}, nil)
	assert.Error(t, err)
}

func TestRun_Totals(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/math.js", "/** Adds two numbers\n@return {number} */\nfunction add(a, b) { return a + b; }\n")
	writeFile(t, root, "src/plain.js", "var nothing = 1;\n")
	writeFile(t, root, "lib/app.js", "/** Version */\nvar VERSION = '1.0';\n/** lost */\n// comment\n")

	var mu sync.Mutex
	var progressed []string
	g := newTestGenerator(t, false)
	run, err := g.Run(context.Background(), root, RunOptions{
		Progress: func(done, total int, rel string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, total)
			progressed = append(progressed, rel)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, Totals{
		FilesTotal:      3,
		FilesDocumented: 2,
		Entries:         2,
		Unprocessed:     1,
		Diagnostics:     1,
	}, run.Totals)
	assert.Len(t, progressed, 3)
	assert.Equal(t, 2, run.WorkerCount)

	require.Len(t, run.Documents, 3)
	assert.Equal(t, "lib/app.js", run.Documents[0].RelPath)
	assert.Equal(t, "src/math.js", run.Documents[1].RelPath)
	assert.Equal(t, "src/plain.js", run.Documents[2].RelPath)

	documented := run.Documented()
	require.Len(t, documented, 2)
	assert.Equal(t, "app", documented[0].ShortName)
	assert.Equal(t, "math", documented[1].ShortName)

	entry := documented[1].Entries[0]
	assert.Equal(t, "add", entry.Name())
	assert.Equal(t, "number", entry.Comment.Returns)
	assert.Equal(t, 1, entry.Line)

	assert.Equal(t, 3, g.Index().Len())
}

func TestRun_EncodingsAndBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "latin.js", "/** Caf\xe9 menu */\nfunction menu() {}\n")
	writeFile(t, root, "blob.js", string(bytes.Repeat([]byte{0, 1, 2, 3}, 64)))

	run, err := newTestGenerator(t, false).Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, run.Totals.FilesTotal)
	assert.Equal(t, 1, run.Totals.FilesDocumented)
	assert.Equal(t, 1, run.Totals.FileErrors)

	require.Len(t, run.Errors, 1)
	assert.Equal(t, "blob.js", run.Errors[0].RelPath)
	assert.ErrorIs(t, run.Errors[0], util.ErrBinary)

	require.Len(t, run.Documents, 1)
	assert.Equal(t, "Café menu", run.Documents[0].Result.Entries[0].Comment.Body)
}

func TestRun_ReusesUnchangedFilesAndPrunes(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.js", "/** A */\nfunction a() {}\n")
	b := writeFile(t, root, "b.js", "/** B */\nfunction b() {}\n")

	g := newTestGenerator(t, false)
	first, err := g.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Totals.Reused)

	writeFile(t, root, "a.js", "/** A */\nfunction a(x) {}\n")
	second, err := g.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Totals.Reused)
	assert.Same(t, first.Documents[1], second.Documents[1])
	assert.Equal(t, "a (x)", second.Documents[0].Result.Entries[0].Code.Signature)

	require.NoError(t, os.Remove(b))
	third, err := g.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, third.Totals.FilesTotal)
	_, ok := g.Index().Get(b)
	assert.False(t, ok)
	_, ok = g.Index().Get(a)
	assert.True(t, ok)
}

func TestRun_SyntaxCheck(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "/** Adds */\nfunction add(a, b) { return a + b; }\n/** Value */\nvar v = 1;\n")
	writeFile(t, root, "broken.js", "/** Broken */\nfunction broken() {\n")

	g := newTestGenerator(t, true)
	require.NotNil(t, g.Inspector())
	run, err := g.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)

	entries := run.Documents[0].Result.Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "function_declaration", entries[0].SyntaxKind)
	assert.Equal(t, "variable_declaration", entries[1].SyntaxKind)
	assert.False(t, run.Documents[0].Result.SyntaxErrors)

	assert.True(t, run.Documents[1].Result.SyntaxErrors)
	assert.Equal(t, 1, run.Totals.SyntaxErrors)
	// A parse error never drops entries.
	assert.Equal(t, 1, run.Documents[1].Result.EntryCount())
}

func TestRun_AnnotationDialect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "/** Thing\n@type {Array.<string>} names */\nfunction names() {}\n")

	cfg := DefaultConfig()
	cfg.SyntaxCheck = false
	cfg.Annotation = annotation.Options{TypeTag: annotation.TypeTagWord}
	g := New(cfg, nil)
	defer g.Close()

	run, err := g.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Array", run.Documents[0].Result.Entries[0].Comment.Returns)
}

func TestRun_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "/** A */\nvar a;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGenerator(t, false).Run(ctx, root, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_EmptyAndInvalidRoot(t *testing.T) {
	g := newTestGenerator(t, false)

	run, err := g.Run(context.Background(), t.TempDir(), RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, run.Documents)
	assert.Equal(t, Totals{}, run.Totals)

	file := writeFile(t, t.TempDir(), "a.js", "")
	_, err = g.Run(context.Background(), file, RunOptions{})
	assert.ErrorContains(t, err, "not a directory")
}

func TestUpdateAndRemoveFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "lib/a.js", "/** A */\nfunction a() {}\n")

	g := newTestGenerator(t, false)
	doc, err := g.UpdateFile(root, path)
	require.NoError(t, err)
	assert.Equal(t, "lib/a.js", doc.RelPath)
	assert.Equal(t, 1, doc.Result.EntryCount())

	_, err = g.UpdateFile(root, filepath.Join(root, "missing.js"))
	assert.Error(t, err)

	assert.True(t, g.RemoveFile(path))
	assert.False(t, g.RemoveFile(path))
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/math.js", "/** Adds */\nfunction add(a, b) {}\n/** Hidden\n@private */\nfunction secret() {}\n")
	writeFile(t, root, "src/empty.js", "var x;\n")
	writeFile(t, root, "tpl.html", "<nav>{menuStr}</nav><main>{mainStr}</main>")

	out := Output{
		TemplatePath:  filepath.Join(root, "tpl.html"),
		OutputPath:    filepath.Join(root, "docs", "index.html"),
		IgnorePrivate: true,
	}
	g := newTestGenerator(t, false)
	run, sum, err := g.Generate(context.Background(), root, RunOptions{}, out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 1, sum.Entries)
	assert.Equal(t, 1, sum.PrivateSkipped)

	page, err := os.ReadFile(out.OutputPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(page), `<nav><li><a href="#math">math</a></li>`))
	assert.Contains(t, string(page), "<h2>add (a, b)</h2>")
	assert.NotContains(t, string(page), "secret")
	assert.NotContains(t, string(page), "empty")

	assert.Equal(t, []string{
		"1 source files documented out of 2 files in total.",
		"1 entries generated.",
		"1 private entries skipped.",
	}, SummaryLines(run, sum))
}

func TestGenerate_MissingTemplate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "/** A */\nvar a;\n")

	_, _, err := newTestGenerator(t, false).Generate(context.Background(), root, RunOptions{}, Output{
		TemplatePath: filepath.Join(root, "nope.html"),
		OutputPath:   filepath.Join(root, "out.html"),
	})
	assert.ErrorContains(t, err, "failed to read template")
	_, statErr := os.Stat(filepath.Join(root, "out.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummaryLines_Unprocessed(t *testing.T) {
	run := &Run{Totals: Totals{FilesTotal: 4, FilesDocumented: 2, Unprocessed: 3, FileErrors: 1}}
	lines := SummaryLines(run, render.Summary{Entries: 5})
	assert.Equal(t, []string{
		"2 source files documented out of 4 files in total.",
		"5 entries generated.",
		"3 entries unprocessed.",
		"1 files could not be read.",
	}, lines)
}

func TestWorkerPool_Errors(t *testing.T) {
	pool := NewWorkerPool(2, func(job FileJob) (JobResult, error) {
		if strings.HasSuffix(job.RelPath, ".bad") {
			return JobResult{}, errors.New("boom")
		}
		return JobResult{Doc: nil}, nil
	}, nil)
	pool.Start()

	var results, failures int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			assert.NotEmpty(t, r.Job.RelPath)
			results++
		}
	}()
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for fe := range pool.Errors() {
			assert.ErrorContains(t, fe, "x.bad: boom")
			failures++
		}
	}()

	for i, rel := range []string{"a.js", "x.bad", "b.js"} {
		require.NoError(t, pool.Submit(context.Background(), FileJob{RelPath: rel, JobID: i}))
	}
	pool.Stop()
	pool.Stop()
	<-done
	<-errDone

	assert.Equal(t, 2, results)
	assert.Equal(t, 1, failures)
	stats := pool.GetStats()
	assert.Equal(t, int64(3), stats.JobsSubmitted)
	assert.Equal(t, int64(2), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsFailed)

	assert.Error(t, pool.Submit(context.Background(), FileJob{}))
}

func TestWatcher_RegeneratesOnChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "/** A */\nfunction alpha() {}\n")
	out := Output{OutputPath: filepath.Join(root, "docs", "index.html")}

	g := newTestGenerator(t, false)
	_, _, err := g.Generate(context.Background(), root, RunOptions{}, out)
	require.NoError(t, err)

	regenerated := make(chan error, 16)
	w, err := NewWatcher(g, root, RunOptions{}, out, WatchOptions{
		Debounce:     20 * time.Millisecond,
		OnRegenerate: func(_ render.Summary, err error) { regenerated <- err },
	}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	assert.True(t, w.GetStats().IsRunning)

	readPage := func() string {
		data, err := os.ReadFile(out.OutputPath)
		require.NoError(t, err)
		return string(data)
	}

	b := writeFile(t, root, "b.js", "/** B */\nfunction beta() {}\n")
	require.Eventually(t, func() bool {
		return strings.Contains(readPage(), "beta ()")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(b))
	require.Eventually(t, func() bool {
		return !strings.Contains(readPage(), "beta ()")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, readPage(), "alpha ()")

	require.NoError(t, w.Stop())
	assert.False(t, w.GetStats().IsRunning)
	assert.Error(t, w.Start())

	close(regenerated)
	for err := range regenerated {
		assert.NoError(t, err)
	}
}

func TestWatcher_IgnoresExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/a.js", "")

	w, err := NewWatcher(newTestGenerator(t, false), root, RunOptions{ExcludedDirectories: []string{"vendor"}}, Output{}, WatchOptions{}, nil)
	require.NoError(t, err)

	rel, ok := w.rel(filepath.Join(root, "vendor", "a.js"))
	require.True(t, ok)
	assert.True(t, w.matcher.excluded(rel))

	_, ok = w.rel(filepath.Join(filepath.Dir(root), "elsewhere.js"))
	assert.False(t, ok)
	_, ok = w.rel(root)
	assert.False(t, ok)
	require.NoError(t, w.Stop())
}
