package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/jsdocgen/pkg/construct"
)

// Tool names.
const (
	ToolListFiles      = "list_files"
	ToolGetFileDocs    = "get_file_docs"
	ToolSearchEntries  = "search_entries"
	ToolGetEntrySource = "get_entry_source"
	ToolGetStats       = "get_stats"
)

func listFilesTool() mcp.Tool {
	return mcp.NewTool(ToolListFiles,
		mcp.WithDescription("Lists scanned source files with their short name, path, entry count and unprocessed annotation count."),
		mcp.WithBoolean("documented_only",
			mcp.Description("Only list files with at least one entry. Default: true."),
		),
	)
}

func getFileDocsTool() mcp.Tool {
	return mcp.NewTool(ToolGetFileDocs,
		mcp.WithDescription("Returns the documentation entries of one file, in source order, with its diagnostics."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Short name (file name without extension), project-relative path, or absolute path."),
		),
		mcp.WithBoolean("include_private",
			mcp.Description("Include entries marked @private. Default: false."),
		),
	)
}

func searchEntriesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchEntries,
		mcp.WithDescription("Case-insensitive substring search over entry names, signatures and annotation bodies."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for."),
		),
		mcp.WithString("type",
			mcp.Description("Restrict results to one construct type."),
			mcp.Enum(constructTypes()...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results. Default: 50."),
		),
	)
}

func getEntrySourceTool() mcp.Tool {
	return mcp.NewTool(ToolGetEntrySource,
		mcp.WithDescription("Returns the raw annotation text and the first code line of one entry."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Short name, project-relative path, or absolute path."),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Zero-based entry index as returned by get_file_docs or search_entries."),
		),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Returns index totals (files, entries, unprocessed annotations) and cache statistics."),
	)
}

func constructTypes() []string {
	types := []construct.Type{
		construct.TypeFunction,
		construct.TypeModule,
		construct.TypeIIFE,
		construct.TypeFunctionExpr,
		construct.TypeFunctionInline,
		construct.TypePrototypeMethod,
		construct.TypePrototypeProperty,
		construct.TypeMethod,
		construct.TypeProperty,
		construct.TypeVarDeclInit,
		construct.TypeVarDecl,
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
