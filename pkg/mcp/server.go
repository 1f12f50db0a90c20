// Package mcp serves generated documentation to MCP clients over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/jsdocgen/pkg/index"
	"github.com/gnana997/jsdocgen/pkg/mcplog"
	"github.com/gnana997/jsdocgen/pkg/util"
)

const serverVersion = "0.1.0-dev"

// Server exposes a DocIndex as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	index     *index.DocIndex
	cache     util.FileCache
	logger    *mcplog.Logger // nil disables call logging
}

// NewServer creates a server over ix. cache supplies annotation source for
// get_entry_source; logger may be nil.
func NewServer(ix *index.DocIndex, cache util.FileCache, logger *mcplog.Logger) *Server {
	s := &Server{index: ix, cache: cache, logger: logger}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if logger != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("jsdocgen", serverVersion, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: listFilesTool(), Handler: s.handleListFiles},
		server.ServerTool{Tool: getFileDocsTool(), Handler: s.handleGetFileDocs},
		server.ServerTool{Tool: searchEntriesTool(), Handler: s.handleSearchEntries},
		server.ServerTool{Tool: getEntrySourceTool(), Handler: s.handleGetEntrySource},
		server.ServerTool{Tool: getStatsTool(), Handler: s.handleGetStats},
	)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
