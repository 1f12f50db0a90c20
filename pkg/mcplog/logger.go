// Package mcplog records MCP tool calls as JSON lines.
//
// One line is written per call. Long string arguments are replaced by their
// length so that search queries and file contents never end up in the log.
package mcplog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// MaxParamLen is the longest string argument logged verbatim.
const MaxParamLen = 64

// Entry is one logged tool call.
type Entry struct {
	Time          time.Time      `json:"ts"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	TokensEst     int            `json:"tokens_est"`

	// IsError is set when the tool returned an error result.
	IsError bool `json:"is_error,omitempty"`

	// Error is the handler error, if any.
	Error *string `json:"error"`
}

// NewEntry builds the entry for a finished call.
func NewEntry(tool string, args map[string]any, start time.Time, result *mcp.CallToolResult, err error) Entry {
	size := ResponseBytes(result)
	e := Entry{
		Time:          start.UTC(),
		Tool:          tool,
		Params:        SanitizeParams(args),
		DurationMs:    Now().Sub(start).Milliseconds(),
		ResponseBytes: size,
		TokensEst:     size / 4,
		IsError:       result != nil && result.IsError,
	}
	if err != nil {
		msg := err.Error()
		e.Error = &msg
	}
	return e
}

// Logger appends entries to a file. It is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	f      *os.File
	enc    *json.Encoder
	closed bool
}

// NewLogger opens path for appending, creating parent directories. An empty
// path returns a nil Logger, which callers treat as disabled.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mcplog: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mcplog: open log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one entry. Callers ignore the error so that logging never
// changes a tool result.
func (l *Logger) Write(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("mcplog: logger closed")
	}
	return l.enc.Encode(e)
}

// Close closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// ReadEntries reads every entry in the log at path.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mcplog: open log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return entries, fmt.Errorf("mcplog: line %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// SanitizeParams copies args, replacing string values longer than
// MaxParamLen with a "<key>_len" entry holding their length.
func SanitizeParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > MaxParamLen {
			out[k+"_len"] = len(s)
		} else {
			out[k] = v
		}
	}
	return out
}

// ResponseBytes returns the JSON size of the result content, or 0.
func ResponseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}

// Now is the clock used for durations. Tests replace it.
var Now = time.Now
