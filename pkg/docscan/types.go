// Package docscan walks JavaScript-family source text, extracts every
// /** ... */ annotation block together with the code that follows it, and
// pairs the classified annotation with the classified construct.
package docscan

import (
	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/construct"
)

// Entry is one documented construct: the annotation and the code it precedes.
type Entry struct {
	Comment   annotation.Record `json:"comment"`
	Code      construct.Record  `json:"code"`
	Offset    int               `json:"offset"` // byte offset of the opening "/**"
	EndOffset int               `json:"end_offset"`
	Line      int               `json:"line"` // 1-based line of the opening "/**"

	// SyntaxKind is the tree-sitter node kind that follows the annotation,
	// when a syntax cross-check ran. Empty otherwise.
	SyntaxKind string `json:"syntax_kind,omitempty"`
}

// Name returns the construct name, falling back to its signature.
func (e Entry) Name() string {
	if e.Code.Name != "" {
		return e.Code.Name
	}
	return e.Code.Signature
}

// IsModule reports whether the entry documents a module declaration.
func (e Entry) IsModule() bool {
	return e.Code.Type == construct.TypeModule
}

// DiagnosticReason says why an annotation produced no entry.
type DiagnosticReason string

const (
	// ReasonUnrecognized means no construct rule matched the following code.
	ReasonUnrecognized DiagnosticReason = "unrecognized"
	// ReasonComment means the annotation was directly followed by another comment.
	ReasonComment DiagnosticReason = "comment"
)

// Diagnostic records one annotation that could not be documented.
type Diagnostic struct {
	File      string           `json:"file"`
	Line      int              `json:"line"`
	FirstLine string           `json:"first_line"`
	Reason    DiagnosticReason `json:"reason"`
}

// FileResult is the scan outcome for one source file.
type FileResult struct {
	Path        string       `json:"path"`
	FileName    string       `json:"file_name"`
	ShortName   string       `json:"short_name"`
	Desc        string       `json:"desc,omitempty"`
	Entries     []Entry      `json:"entries"`
	Unprocessed int          `json:"unprocessed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// SyntaxErrors is set when a syntax cross-check found parse errors.
	SyntaxErrors bool `json:"syntax_errors,omitempty"`
}

// EntryCount returns the number of documented entries.
func (f *FileResult) EntryCount() int {
	return len(f.Entries)
}
