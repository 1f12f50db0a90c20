package construct

import (
	"regexp"
	"strings"
)

// MaxFragmentBytes bounds how much of the text after an annotation is
// examined. Every rule only looks at the leading statement, so the window
// keeps classification cost constant per annotation.
const MaxFragmentBytes = 4096

// Fragments shared by the rule patterns.
const (
	ident    = `[$\w]+`
	path     = `[$\w.]+`
	exported = `(?:export\s+(?:default\s+)?)?`
	varKw    = `(?:var|let|const)`
	// funcLit matches "function name? (params)" and captures params.
	funcLit = `(?:async\s+)?function\b\s*\*?\s*[$\w]*\s*\(([^)]*)\)`
	// arrowLit matches "(params) =>" and captures params.
	arrowLit = `(?:async\s*)?\(([^)]*)\)\s*=>`
)

// rule is one entry of the ordered rule table. build receives the submatches
// of the first pattern that matched and the whole fragment; it may return nil
// to reject the match, in which case the next rule is tried.
type rule struct {
	kind     Type
	patterns []*regexp.Regexp
	build    func(m []string, frag string) *Record
}

func re(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

// rules is evaluated top to bottom. More specific shapes precede the general
// ones that would also match a prefix of the same text: prototype paths come
// before arbitrary dotted paths, and function assignments come before plain
// assignments.
var rules = []rule{
	{
		kind:     TypeFunction,
		patterns: []*regexp.Regexp{re(`^` + exported + `(?:async\s+)?function\b\s*\*?\s*(` + ident + `)\s*\(([^)]*)\)`)},
		build: func(m []string, _ string) *Record {
			return &Record{Name: m[1], Params: m[2], Signature: m[1] + " (" + m[2] + ")"}
		},
	},
	{
		kind:     TypeModule,
		patterns: []*regexp.Regexp{re(`^define\s*\(`)},
		build: func(_ []string, _ string) *Record {
			return &Record{Signature: "define"}
		},
	},
	{
		kind: TypeIIFE,
		patterns: []*regexp.Regexp{
			re(`^;?\s*(?:[!+~-]|\()\s*` + funcLit),
			re(`^;?\s*\(\s*` + arrowLit),
		},
		build: func(m []string, _ string) *Record {
			return &Record{Params: m[1], Signature: "function (" + m[1] + ")"}
		},
	},
	{
		kind: TypeFunctionExpr,
		patterns: []*regexp.Regexp{
			re(`^` + exported + `(?:` + varKw + `\s+)?(` + ident + `)\s*=\s*` + funcLit),
			re(`^` + exported + `(?:` + varKw + `\s+)?(` + ident + `)\s*=\s*` + arrowLit),
		},
		build: func(m []string, _ string) *Record {
			return &Record{Name: m[1], Params: m[2], Signature: m[1] + " (" + m[2] + ")"}
		},
	},
	{
		kind: TypeFunctionInline,
		patterns: []*regexp.Regexp{
			re(`^(` + ident + `)\s*:\s*` + funcLit),
			re(`^(` + ident + `)\s*:\s*` + arrowLit),
		},
		build: func(m []string, _ string) *Record {
			return &Record{Name: m[1], Params: m[2], Signature: m[1] + " (" + m[2] + ")"}
		},
	},
	{
		kind: TypePrototypeMethod,
		patterns: []*regexp.Regexp{
			re(`^(` + ident + `)\.prototype\.(` + ident + `)\s*=\s*` + funcLit),
			re(`^(` + ident + `)\.prototype\.(` + ident + `)\s*=\s*` + arrowLit),
		},
		build: func(m []string, _ string) *Record {
			return &Record{
				Constructor: m[1],
				Name:        m[2],
				Params:      m[3],
				Signature:   m[1] + ".prototype." + m[2] + "(" + m[3] + ")",
			}
		},
	},
	{
		kind:     TypePrototypeProperty,
		patterns: []*regexp.Regexp{re(`^(` + ident + `)\.prototype\.(` + ident + `)\s*=`)},
		build: func(m []string, frag string) *Record {
			value, ok := assignedValue(frag, len(m[0]))
			if !ok {
				return nil
			}
			return &Record{
				Constructor: m[1],
				Name:        m[2],
				Value:       value,
				Signature:   m[1] + ".prototype." + m[2],
			}
		},
	},
	{
		kind: TypeMethod,
		patterns: []*regexp.Regexp{
			re(`^(` + path + `)\.(` + ident + `)\s*=\s*` + funcLit),
			re(`^(` + path + `)\.(` + ident + `)\s*=\s*` + arrowLit),
		},
		build: func(m []string, _ string) *Record {
			return &Record{
				Receiver:  m[1],
				Name:      m[2],
				Params:    m[3],
				Signature: m[1] + "." + m[2] + "(" + m[3] + ")",
			}
		},
	},
	{
		kind:     TypeProperty,
		patterns: []*regexp.Regexp{re(`^(` + path + `)\.(` + ident + `)\s*=`)},
		build: func(m []string, frag string) *Record {
			value, ok := assignedValue(frag, len(m[0]))
			if !ok {
				return nil
			}
			return &Record{
				Receiver:  m[1],
				Name:      m[2],
				Value:     value,
				Signature: m[1] + "." + m[2],
			}
		},
	},
	{
		kind:     TypeVarDeclInit,
		patterns: []*regexp.Regexp{re(`^` + exported + varKw + `\s+(` + ident + `)\s*=`)},
		build: func(m []string, frag string) *Record {
			value, ok := assignedValue(frag, len(m[0]))
			if !ok {
				return nil
			}
			return &Record{Name: m[1], Value: value, Signature: m[1]}
		},
	},
	{
		kind:     TypeVarDecl,
		patterns: []*regexp.Regexp{re(`^` + exported + `(?:var|let)\s+(` + ident + `)\s*;`)},
		build: func(m []string, _ string) *Record {
			return &Record{Name: m[1], Value: "null", Signature: m[1]}
		},
	},
	{
		kind:     TypeComment,
		patterns: []*regexp.Regexp{re(`^(?://|/\*)`)},
		build: func(_ []string, frag string) *Record {
			return &Record{Signature: firstLine(frag)}
		},
	},
}

// Classify returns the Record for the leading construct of fragment, or nil
// when no rule recognizes it. Leading whitespace is ignored.
func Classify(fragment string) *Record {
	frag := strings.TrimLeft(fragment, " \t\r\n\f\v")
	if len(frag) > MaxFragmentBytes {
		frag = frag[:MaxFragmentBytes]
	}
	if frag == "" {
		return nil
	}

	for i := range rules {
		r := &rules[i]
		for _, p := range r.patterns {
			m := p.FindStringSubmatch(frag)
			if m == nil {
				continue
			}
			rec := r.build(m, frag)
			if rec == nil {
				break
			}
			rec.Type = r.kind
			rec.FirstLine = firstLine(frag)
			return rec
		}
	}
	return nil
}

// IsComment reports whether fragment starts with a line or block comment
// opener once leading whitespace is skipped.
func IsComment(fragment string) bool {
	frag := strings.TrimLeft(fragment, " \t\r\n\f\v")
	return strings.HasPrefix(frag, "//") || strings.HasPrefix(frag, "/*")
}

// RuleOrder returns the construct types in evaluation order.
func RuleOrder() []Type {
	order := make([]Type, len(rules))
	for i, r := range rules {
		order[i] = r.kind
	}
	return order
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}

// assignedValue reads the right-hand side that starts at offset in frag,
// which sits just after an "=" sign. It rejects comparison operators and
// empty values.
func assignedValue(frag string, offset int) (string, bool) {
	rest := frag[offset:]
	if strings.HasPrefix(rest, "=") {
		return "", false
	}
	value := Value(rest)
	return value, value != ""
}
