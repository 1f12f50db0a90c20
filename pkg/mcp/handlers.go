package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/index"
	"github.com/gnana997/jsdocgen/pkg/util"
)

const defaultSearchLimit = 50

type fileSummary struct {
	ShortName    string `json:"short_name"`
	Path         string `json:"path"`
	Entries      int    `json:"entries"`
	Unprocessed  int    `json:"unprocessed"`
	SyntaxErrors bool   `json:"syntax_errors,omitempty"`
}

type entryView struct {
	Index      int               `json:"index"`
	Name       string            `json:"name"`
	Signature  string            `json:"signature"`
	Type       string            `json:"type"`
	Returns    string            `json:"returns"`
	Access     annotation.Access `json:"access"`
	IsClass    bool              `json:"is_class,omitempty"`
	Body       string            `json:"body"`
	Line       int               `json:"line"`
	SyntaxKind string            `json:"syntax_kind,omitempty"`
}

type fileDocs struct {
	ShortName   string               `json:"short_name"`
	Path        string               `json:"path"`
	Desc        string               `json:"desc,omitempty"`
	Entries     []entryView          `json:"entries"`
	Unprocessed int                  `json:"unprocessed"`
	Diagnostics []docscan.Diagnostic `json:"diagnostics,omitempty"`
}

type searchHit struct {
	File      string `json:"file"`
	ShortName string `json:"short_name"`
	entryView
}

type entrySource struct {
	File       string `json:"file"`
	Index      int    `json:"index"`
	Line       int    `json:"line"`
	Annotation string `json:"annotation"`
	FirstLine  string `json:"first_line"`
	Signature  string `json:"signature"`
}

type statsView struct {
	Index index.Stats          `json:"index"`
	Cache util.FileCacheStats `json:"cache"`
}

func viewOf(i int, e docscan.Entry) entryView {
	return entryView{
		Index:      i,
		Name:       e.Name(),
		Signature:  e.Code.Signature,
		Type:       string(e.Code.Type),
		Returns:    e.Comment.Returns,
		Access:     e.Comment.Access,
		IsClass:    e.Comment.IsClass,
		Body:       e.Comment.Body,
		Line:       e.Line,
		SyntaxKind: e.SyntaxKind,
	}
}

func (s *Server) handleListFiles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentedOnly := boolArg(req, "documented_only", true)

	files := []fileSummary{}
	for _, doc := range s.index.All() {
		n := doc.Result.EntryCount()
		if documentedOnly && n == 0 {
			continue
		}
		files = append(files, fileSummary{
			ShortName:    doc.Result.ShortName,
			Path:         doc.RelPath,
			Entries:      n,
			Unprocessed:  doc.Result.Unprocessed,
			SyntaxErrors: doc.Result.SyntaxErrors,
		})
	}
	return jsonResult(files)
}

func (s *Server) handleGetFileDocs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := s.lookup(req)
	if errResult != nil {
		return errResult, nil
	}
	includePrivate := boolArg(req, "include_private", false)

	res := doc.Result
	out := fileDocs{
		ShortName:   res.ShortName,
		Path:        doc.RelPath,
		Desc:        res.Desc,
		Entries:     []entryView{},
		Unprocessed: res.Unprocessed,
		Diagnostics: res.Diagnostics,
	}
	for i, e := range res.Entries {
		if !includePrivate && e.Comment.Access == annotation.AccessPrivate {
			continue
		}
		out.Entries = append(out.Entries, viewOf(i, e))
	}
	return jsonResult(out)
}

func (s *Server) handleSearchEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.ToLower(strings.TrimSpace(stringArg(req, "query")))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	typ := stringArg(req, "type")
	limit := intArg(req, "limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	refs := s.index.FindEntries(func(_ *index.Document, e docscan.Entry) bool {
		if typ != "" && string(e.Code.Type) != typ {
			return false
		}
		return strings.Contains(strings.ToLower(e.Name()), query) ||
			strings.Contains(strings.ToLower(e.Code.Signature), query) ||
			strings.Contains(strings.ToLower(e.Comment.Body), query)
	})

	hits := []searchHit{}
	for _, ref := range refs {
		if len(hits) == limit {
			break
		}
		hits = append(hits, searchHit{
			File:      ref.Doc.RelPath,
			ShortName: ref.Doc.Result.ShortName,
			entryView: viewOf(ref.Index, ref.Entry),
		})
	}
	return jsonResult(hits)
}

func (s *Server) handleGetEntrySource(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := s.lookup(req)
	if errResult != nil {
		return errResult, nil
	}
	if _, ok := req.GetArguments()["index"]; !ok {
		return mcp.NewToolResultError("index is required"), nil
	}
	i := intArg(req, "index", -1)
	if i < 0 || i >= len(doc.Result.Entries) {
		return mcp.NewToolResultError(fmt.Sprintf("index %d out of range: %s has %d entries", i, doc.RelPath, len(doc.Result.Entries))), nil
	}
	e := doc.Result.Entries[i]

	text, err := s.cache.Snippet(doc.Path, e.Offset, e.EndOffset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", doc.RelPath, err)), nil
	}
	if !strings.HasPrefix(text, "/**") || !strings.HasSuffix(text, "*/") {
		return mcp.NewToolResultError(fmt.Sprintf("%s changed since it was indexed", doc.RelPath)), nil
	}

	return jsonResult(entrySource{
		File:       doc.RelPath,
		Index:      i,
		Line:       e.Line,
		Annotation: text,
		FirstLine:  e.Code.FirstLine,
		Signature:  e.Code.Signature,
	})
}

func (s *Server) handleGetStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(statsView{
		Index: s.index.Stats(),
		Cache: s.cache.Stats(),
	})
}

// lookup resolves the "file" argument. A non-nil result is the error to
// return to the client.
func (s *Server) lookup(req mcp.CallToolRequest) (*index.Document, *mcp.CallToolResult) {
	file := strings.TrimSpace(stringArg(req, "file"))
	if file == "" {
		return nil, mcp.NewToolResultError("file is required")
	}
	doc, ok := s.index.Lookup(file)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("file %q not found", file))
	}
	return doc, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(req mcp.CallToolRequest, key string) string {
	s, _ := req.GetArguments()[key].(string)
	return s
}

func boolArg(req mcp.CallToolRequest, key string, def bool) bool {
	if b, ok := req.GetArguments()[key].(bool); ok {
		return b
	}
	return def
}

// intArg accepts JSON numbers, which decode as float64.
func intArg(req mcp.CallToolRequest, key string, def int) int {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
