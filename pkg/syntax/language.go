// Package syntax cross-checks scanned annotations against a real parse tree.
//
// The heuristic scanner never parses code. When enabled, the Inspector parses
// each file with tree-sitter, finds every /** comment node, and records the
// kind of the named node that follows it. The result is attached to the
// matching entries so that misclassifications can be spotted, and files that
// do not parse cleanly are flagged.
package syntax

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language is a grammar the Inspector can parse with.
type Language int

const (
	LanguageUnknown Language = iota
	LanguageJavaScript
	LanguageTypeScript
	LanguageTSX
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageJavaScript:
		return "javascript"
	case LanguageTypeScript:
		return "typescript"
	case LanguageTSX:
		return "tsx"
	default:
		return "unknown"
	}
}

// DetectLanguage picks the grammar for filePath from its extension.
// JSX files use the JavaScript grammar, which understands JSX.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	default:
		return LanguageUnknown
	}
}

// grammar returns the tree-sitter language pointer for l.
func grammar(l Language) (unsafe.Pointer, error) {
	switch l {
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	case LanguageTypeScript:
		return ts_typescript.LanguageTypescript(), nil
	case LanguageTSX:
		return ts_typescript.LanguageTSX(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
}
