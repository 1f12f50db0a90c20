package syntax

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/util"
)

// commentQuery captures every comment node. Annotation blocks are picked out
// by their text afterwards, since the grammars do not distinguish them.
const commentQuery = `(comment) @doc.comment`

// Report is the outcome of inspecting one file.
type Report struct {
	Language  Language
	HasErrors bool

	// Targets maps the byte offset of each "/**" comment to the kind of the
	// next named sibling node. The kind is empty when nothing follows.
	Targets map[int]string
}

// Annotate copies the report onto a scan result: each entry whose offset
// matches an annotation comment gets its SyntaxKind, and SyntaxErrors is set
// when the parse had errors.
func (r *Report) Annotate(res *docscan.FileResult) int {
	if r == nil || res == nil {
		return 0
	}
	res.SyntaxErrors = r.HasErrors
	matched := 0
	for i := range res.Entries {
		if kind, ok := r.Targets[res.Entries[i].Offset]; ok {
			res.Entries[i].SyntaxKind = kind
			matched++
		}
	}
	return matched
}

// Stats contains inspector usage statistics.
type Stats struct {
	ParsersCreated int   `json:"parsers_created"`
	FilesInspected int64 `json:"files_inspected"`
	FilesInError   int64 `json:"files_in_error"`
}

// Inspector parses files and reports what follows each annotation comment.
// It is safe for concurrent use and must be closed to free parsers and
// compiled queries.
type Inspector struct {
	poolSize int
	logger   *slog.Logger

	mu      sync.RWMutex
	pools   map[Language]*parserPool
	queries map[Language]*ts.Query
	closed  bool

	inspected atomic.Int64
	inError   atomic.Int64
}

// NewInspector creates an Inspector holding up to poolSize parsers per
// grammar. poolSize <= 0 uses util.GetOptimalPoolSize(); it should match the
// worker count so workers never wait on a parser.
func NewInspector(poolSize int, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{
		poolSize: util.GetOptimalPoolSizeWithOverride(poolSize),
		logger:   logger,
		pools:    make(map[Language]*parserPool),
		queries:  make(map[Language]*ts.Query),
	}
}

// Inspect parses src using the grammar for path.
func (in *Inspector) Inspect(path string, src []byte) (*Report, error) {
	lang := DetectLanguage(path)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}

	pool, query, err := in.resources(lang)
	if err != nil {
		return nil, err
	}

	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}
	tree := parser.Parse(src, nil)
	pool.release(parser)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	report := &Report{
		Language:  lang,
		HasErrors: root.HasError(),
		Targets:   make(map[int]string),
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, root, src)
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, capture := range match.Captures {
			node := capture.Node
			text := node.Utf8Text(src)
			if !isAnnotation(text) {
				continue
			}
			kind := ""
			if next := node.NextNamedSibling(); next != nil {
				kind = next.Kind()
			}
			report.Targets[int(node.StartByte())] = kind
		}
	}

	in.inspected.Add(1)
	if report.HasErrors {
		in.inError.Add(1)
		in.logger.Debug("Parse tree contains errors", "file", path, "language", lang.String())
	}

	return report, nil
}

func isAnnotation(text string) bool {
	return strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/**/")
}

// resources returns the parser pool and compiled query for lang, creating
// them on first use.
func (in *Inspector) resources(lang Language) (*parserPool, *ts.Query, error) {
	in.mu.RLock()
	pool, query, closed := in.pools[lang], in.queries[lang], in.closed
	in.mu.RUnlock()
	if closed {
		return nil, nil, fmt.Errorf("inspector is closed")
	}
	if pool != nil && query != nil {
		return pool, query, nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil, nil, fmt.Errorf("inspector is closed")
	}
	if pool, query := in.pools[lang], in.queries[lang]; pool != nil && query != nil {
		return pool, query, nil
	}

	langPtr, err := grammar(lang)
	if err != nil {
		return nil, nil, err
	}
	query, qerr := ts.NewQuery(ts.NewLanguage(langPtr), commentQuery)
	if qerr != nil {
		return nil, nil, fmt.Errorf("failed to compile comment query for %s: %s", lang, qerr.Message)
	}

	pool = newParserPool(lang, langPtr, in.poolSize, in.logger)
	in.pools[lang] = pool
	in.queries[lang] = query

	in.logger.Debug("Initialized grammar", "language", lang.String(), "max_parsers", in.poolSize)
	return pool, query, nil
}

// Stats returns inspector usage statistics.
func (in *Inspector) Stats() Stats {
	in.mu.RLock()
	created := 0
	for _, p := range in.pools {
		created += p.createdCount()
	}
	in.mu.RUnlock()

	return Stats{
		ParsersCreated: created,
		FilesInspected: in.inspected.Load(),
		FilesInError:   in.inError.Load(),
	}
}

// Close releases parsers and queries. Inspect must not be running.
func (in *Inspector) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true

	closed := 0
	for _, p := range in.pools {
		closed += p.close()
	}
	for _, q := range in.queries {
		q.Close()
	}
	in.pools = nil
	in.queries = nil

	in.logger.Debug("Closed syntax inspector",
		"parsers_closed", closed,
		"files_inspected", in.inspected.Load())
	return nil
}
