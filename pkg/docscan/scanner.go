package docscan

import (
	"path/filepath"
	"strings"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/construct"
)

// Scanner extracts documentation entries from source text. It holds no
// mutable state and is safe for concurrent use; every call builds its own
// FileResult.
type Scanner struct {
	classifier *annotation.Classifier
}

// NewScanner creates a scanner that classifies annotations with opts.
func NewScanner(opts annotation.Options) *Scanner {
	return &Scanner{classifier: annotation.NewClassifier(opts)}
}

var defaultScanner = NewScanner(annotation.Options{})

// Scan scans src with the canonical annotation dialect.
func Scan(src string) *FileResult {
	return defaultScanner.Scan(src)
}

// Scan scans src without file metadata.
func (s *Scanner) Scan(src string) *FileResult {
	return s.ScanFile("", src)
}

// ScanFile scans src and labels the result with relPath. relPath is only
// echoed back and used in diagnostics.
func (s *Scanner) ScanFile(relPath, src string) *FileResult {
	res := &FileResult{
		Path:    relPath,
		Entries: []Entry{},
	}
	if relPath != "" {
		res.FileName = filepath.Base(relPath)
		res.ShortName = ShortName(res.FileName)
	}

	inComment := false
	open, start := 0, 0
	line, counted := 1, 0

	for i := 0; i < len(src); {
		if !inComment {
			if src[i] == '/' && i+2 < len(src) && src[i+1] == '*' && src[i+2] == '*' {
				// "/**/" is an empty ordinary comment.
				if i+3 < len(src) && src[i+3] == '/' {
					i += 4
					continue
				}
				open, start = i, i+3
				inComment = true
				i += 3
				continue
			}
			i++
			continue
		}

		if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
			text := src[start:i]
			i += 2
			inComment = false

			line += strings.Count(src[counted:open], "\n")
			counted = open

			s.handle(res, text, open, i, line, src[i:])
			continue
		}
		i++
	}

	return res
}

// handle classifies one closed annotation and the code that follows it.
func (s *Scanner) handle(res *FileResult, text string, open, end, line int, rest string) {
	fragment := stripLeading(rest)

	if construct.IsComment(fragment) {
		res.skip(line, fragment, ReasonComment)
		return
	}

	code := construct.Classify(fragment)
	if code == nil {
		res.skip(line, fragment, ReasonUnrecognized)
		return
	}

	entry := Entry{
		Comment:   s.classifier.Classify(text),
		Code:      *code,
		Offset:    open,
		EndOffset: end,
		Line:      line,
	}
	if code.Type == construct.TypeModule {
		res.Desc = entry.Comment.Body
	}
	res.Entries = append(res.Entries, entry)
}

func (res *FileResult) skip(line int, fragment string, reason DiagnosticReason) {
	res.Unprocessed++
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		File:      res.FileName,
		Line:      line,
		FirstLine: leadingLine(fragment),
		Reason:    reason,
	})
}

// stripLeading removes the indentation after a closing "*/" up to and
// including the first line terminator.
func stripLeading(s string) string {
	s = strings.TrimLeft(s, " \t")
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}

func leadingLine(fragment string) string {
	frag := strings.TrimLeft(fragment, " \t\r\n")
	if i := strings.IndexByte(frag, '\n'); i >= 0 {
		frag = frag[:i]
	}
	return strings.TrimRight(frag, "\r")
}

// ShortName returns fileName without its extension.
func ShortName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
