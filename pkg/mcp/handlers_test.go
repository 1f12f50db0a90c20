package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/index"
	"github.com/gnana997/jsdocgen/pkg/mcplog"
	"github.com/gnana997/jsdocgen/pkg/util"
)

// --- helpers ---

const mathSrc = "/** Adds two numbers\n@return {number} */\nfunction add(a, b) { return a + b; }\n" +
	"/** Internal helper\n@private */\nfunction clamp(x) {}\n" +
	"/** dropped */\n// just a comment\n"

const shapeSrc = "/** A shape\n@constructor */\nfunction Shape(w, h) {}\n" +
	"/** Computes the area */\nShape.prototype.area = function () {};\n"

type fixture struct {
	server *Server
	root   string
	index  *index.DocIndex
	cache  util.FileCache
}

func newFixture(t *testing.T, logger *mcplog.Logger) *fixture {
	t.Helper()
	root := t.TempDir()
	ix := index.New(index.DefaultConfig(), nil)
	cache := util.NewFileCache(util.UnboundedFileCacheConfig())
	t.Cleanup(func() { cache.Close() })

	scanner := docscan.NewScanner(annotation.Options{})
	for rel, src := range map[string]string{
		"lib/math.js":  mathSrc,
		"lib/shape.js": shapeSrc,
		"lib/empty.js": "var nothing;\n",
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
		ix.Put(&index.Document{
			Path:        path,
			RelPath:     rel,
			Result:      scanner.ScanFile(rel, src),
			ContentHash: index.ComputeContentHash([]byte(src)),
		})
	}

	return &fixture{server: NewServer(ix, cache, logger), root: root, index: ix, cache: cache}
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

	switch req.Params.Name {
	case ToolListFiles:
		handler = s.handleListFiles
	case ToolGetFileDocs:
		handler = s.handleGetFileDocs
	case ToolSearchEntries:
		handler = s.handleSearchEntries
	case ToolGetEntrySource:
		handler = s.handleGetEntrySource
	case ToolGetStats:
		handler = s.handleGetStats
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	assert.False(t, result.IsError, resultText(t, result))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &v))
	return v
}

// --- list_files ---

func TestHandleListFiles(t *testing.T) {
	f := newFixture(t, nil)

	files := decode[[]fileSummary](t, callTool(t, f.server, makeRequest(ToolListFiles, nil)))
	assert.Equal(t, []fileSummary{
		{ShortName: "math", Path: "lib/math.js", Entries: 2, Unprocessed: 1},
		{ShortName: "shape", Path: "lib/shape.js", Entries: 2},
	}, files)

	files = decode[[]fileSummary](t, callTool(t, f.server, makeRequest(ToolListFiles, map[string]any{"documented_only": false})))
	require.Len(t, files, 3)
	assert.Equal(t, "empty", files[0].ShortName)
}

// --- get_file_docs ---

func TestHandleGetFileDocs(t *testing.T) {
	f := newFixture(t, nil)

	docs := decode[fileDocs](t, callTool(t, f.server, makeRequest(ToolGetFileDocs, map[string]any{"file": "math"})))
	assert.Equal(t, "lib/math.js", docs.Path)
	require.Len(t, docs.Entries, 1)
	assert.Equal(t, entryView{
		Index:     0,
		Name:      "add",
		Signature: "add (a, b)",
		Type:      "function",
		Returns:   "number",
		Access:    annotation.AccessPublic,
		Body:      "Adds two numbers\n@return {number}",
		Line:      1,
	}, docs.Entries[0])
	assert.Equal(t, 1, docs.Unprocessed)
	require.Len(t, docs.Diagnostics, 1)
	assert.Equal(t, docscan.ReasonComment, docs.Diagnostics[0].Reason)

	docs = decode[fileDocs](t, callTool(t, f.server, makeRequest(ToolGetFileDocs, map[string]any{
		"file":            "lib/math.js",
		"include_private": true,
	})))
	require.Len(t, docs.Entries, 2)
	assert.Equal(t, 1, docs.Entries[1].Index)
	assert.Equal(t, annotation.AccessPrivate, docs.Entries[1].Access)
}

func TestHandleGetFileDocs_Errors(t *testing.T) {
	f := newFixture(t, nil)

	result := callTool(t, f.server, makeRequest(ToolGetFileDocs, nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "file is required")

	result = callTool(t, f.server, makeRequest(ToolGetFileDocs, map[string]any{"file": "nope"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), `file "nope" not found`)
}

// --- search_entries ---

func TestHandleSearchEntries(t *testing.T) {
	f := newFixture(t, nil)

	hits := decode[[]searchHit](t, callTool(t, f.server, makeRequest(ToolSearchEntries, map[string]any{"query": "AREA"})))
	require.Len(t, hits, 1)
	assert.Equal(t, "lib/shape.js", hits[0].File)
	assert.Equal(t, "Shape.prototype.area()", hits[0].Signature)
	assert.Equal(t, 1, hits[0].Index)

	hits = decode[[]searchHit](t, callTool(t, f.server, makeRequest(ToolSearchEntries, map[string]any{
		"query": "a",
		"type":  "function",
	})))
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}
	assert.Equal(t, []string{"add", "clamp", "Shape"}, names)
	assert.True(t, hits[2].IsClass)

	hits = decode[[]searchHit](t, callTool(t, f.server, makeRequest(ToolSearchEntries, map[string]any{
		"query": "a",
		"limit": float64(2),
	})))
	assert.Len(t, hits, 2)

	hits = decode[[]searchHit](t, callTool(t, f.server, makeRequest(ToolSearchEntries, map[string]any{"query": "zzz"})))
	assert.Empty(t, hits)

	result := callTool(t, f.server, makeRequest(ToolSearchEntries, map[string]any{"query": "  "}))
	assert.True(t, result.IsError)
}

// --- get_entry_source ---

func TestHandleGetEntrySource(t *testing.T) {
	f := newFixture(t, nil)

	src := decode[entrySource](t, callTool(t, f.server, makeRequest(ToolGetEntrySource, map[string]any{
		"file":  "shape",
		"index": float64(1),
	})))
	assert.Equal(t, entrySource{
		File:       "lib/shape.js",
		Index:      1,
		Line:       4,
		Annotation: "/** Computes the area */",
		FirstLine:  "Shape.prototype.area = function () {};",
		Signature:  "Shape.prototype.area()",
	}, src)
	assert.Equal(t, int64(1), f.cache.Stats().FilesLoaded)
}

func TestHandleGetEntrySource_Errors(t *testing.T) {
	f := newFixture(t, nil)

	result := callTool(t, f.server, makeRequest(ToolGetEntrySource, map[string]any{"file": "shape"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "index is required")

	result = callTool(t, f.server, makeRequest(ToolGetEntrySource, map[string]any{"file": "shape", "index": float64(7)}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "out of range")

	// Rewrite the file so the indexed offsets no longer point at the annotation.
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lib", "shape.js"), []byte("// "+strings.Repeat("x", 200)+"\n"), 0o644))
	result = callTool(t, f.server, makeRequest(ToolGetEntrySource, map[string]any{"file": "shape", "index": float64(1)}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "changed since it was indexed")
}

// --- get_stats ---

func TestHandleGetStats(t *testing.T) {
	f := newFixture(t, nil)

	stats := decode[statsView](t, callTool(t, f.server, makeRequest(ToolGetStats, nil)))
	assert.Equal(t, 3, stats.Index.Files)
	assert.Equal(t, 2, stats.Index.Documented)
	assert.Equal(t, 4, stats.Index.Entries)
	assert.Equal(t, 1, stats.Index.Unprocessed)
	assert.Equal(t, int64(0), stats.Cache.FilesLoaded)
}

// --- server wiring ---

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		name     string
		required []string
	}{
		{tool: listFilesTool(), name: ToolListFiles},
		{tool: getFileDocsTool(), name: ToolGetFileDocs, required: []string{"file"}},
		{tool: searchEntriesTool(), name: ToolSearchEntries, required: []string{"query"}},
		{tool: getEntrySourceTool(), name: ToolGetEntrySource, required: []string{"file", "index"}},
		{tool: getStatsTool(), name: ToolGetStats},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.tool.Name)
			assert.NotEmpty(t, tc.tool.Description)
			assert.ElementsMatch(t, tc.required, tc.tool.InputSchema.Required)
		})
	}
	assert.NotContains(t, constructTypes(), "unrecognized")
	assert.Contains(t, constructTypes(), "prototype-method")
}

func TestLoggingMiddleware(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	logger, err := mcplog.NewLogger(path)
	require.NoError(t, err)

	f := newFixture(t, logger)
	handler := f.server.loggingMiddleware()(f.server.handleGetFileDocs)

	result, err := handler(context.Background(), makeRequest(ToolGetFileDocs, map[string]any{"file": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	require.NoError(t, logger.Close())

	entries, err := mcplog.ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ToolGetFileDocs, entries[0].Tool)
	assert.Equal(t, "missing", entries[0].Params["file"])
	assert.True(t, entries[0].IsError)
	assert.Greater(t, entries[0].ResponseBytes, 0)
}
