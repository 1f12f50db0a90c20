// Package annotation classifies the text of a single /** ... */ block into
// a structured record (cleaned body, access, constructor flag, return type).
//
// Classification is a pure function of the annotation text. No knowledge of
// the code that follows the block is needed.
package annotation

import (
	"regexp"
	"strings"
)

// Access is the declared visibility of a documented construct.
type Access string

const (
	AccessPublic  Access = "public"
	AccessPrivate Access = "private"
)

// DefaultReturns is the return type reported when no tag declares one.
const DefaultReturns = "void"

// Fixed tag markers.
const (
	PrivateTag     = "@private"
	ConstructorTag = "@constructor"
)

// Record is the result of classifying one annotation block.
type Record struct {
	Body    string `json:"body"`
	IsClass bool   `json:"is_class"`
	Access  Access `json:"access"`
	Returns string `json:"returns"`
}

// TypeTagMode selects how much of a @type tag is captured.
type TypeTagMode string

const (
	// TypeTagPermissive captures any run of non-brace characters.
	TypeTagPermissive TypeTagMode = "permissive"
	// TypeTagWord captures a single identifier-like word.
	TypeTagWord TypeTagMode = "word"
)

// TagSource selects which text the @private / @constructor checks look at.
type TagSource string

const (
	// TagSourceRaw checks the annotation text as written.
	TagSourceRaw TagSource = "raw"
	// TagSourceBody checks the cleaned body.
	TagSourceBody TagSource = "body"
)

// Options captures the two dialect differences between historical variants
// of the annotation syntax. The zero value is the canonical dialect.
type Options struct {
	TypeTag   TypeTagMode
	TagSource TagSource
}

var (
	continuationRe    = regexp.MustCompile(`\n\s*\* ?`)
	leadingBlankRe    = regexp.MustCompile(`^[ \t]*\n`)
	returnTagRe       = regexp.MustCompile(`@returns? \{([^}\n]*)\}`)
	typeTagRe         = regexp.MustCompile(`@type \{?([^}\n]*)\}?`)
	typeTagWordRe     = regexp.MustCompile(`@type \{?(\w+)\}?`)
	trailingHorizWsRe = regexp.MustCompile(`[ \t]+$`)
)

// Classifier turns annotation text into Records. A Classifier is immutable
// and safe for concurrent use.
type Classifier struct {
	opts Options
}

// NewClassifier returns a classifier for the given dialect.
func NewClassifier(opts Options) *Classifier {
	if opts.TypeTag == "" {
		opts.TypeTag = TypeTagPermissive
	}
	if opts.TagSource == "" {
		opts.TagSource = TagSourceRaw
	}
	return &Classifier{opts: opts}
}

var canonical = NewClassifier(Options{})

// Classify classifies text with the canonical dialect.
func Classify(text string) Record {
	return canonical.Classify(text)
}

// Classify builds the Record for one annotation. It never fails; absent tags
// leave the defaults in place.
func (c *Classifier) Classify(text string) Record {
	rec := Record{
		Body:    CleanBody(text),
		Access:  AccessPublic,
		Returns: DefaultReturns,
	}

	tagText := text
	if c.opts.TagSource == TagSourceBody {
		tagText = rec.Body
	}
	if strings.Contains(tagText, PrivateTag) {
		rec.Access = AccessPrivate
	}
	if strings.Contains(tagText, ConstructorTag) {
		rec.IsClass = true
	}

	// Two independent checks: a @type tag overwrites whatever @return set.
	if m := returnTagRe.FindStringSubmatch(text); m != nil {
		rec.Returns = strings.TrimSpace(m[1])
	}
	typeRe := typeTagRe
	if c.opts.TypeTag == TypeTagWord {
		typeRe = typeTagWordRe
	}
	if m := typeRe.FindStringSubmatch(text); m != nil {
		rec.Returns = strings.TrimSpace(m[1])
	}

	return rec
}

// CleanBody strips the leading "*" continuation marker from every line after
// the first, drops one leading blank line and trims horizontal whitespace at
// both ends.
func CleanBody(text string) string {
	body := continuationRe.ReplaceAllString(text, "\n")
	body = leadingBlankRe.ReplaceAllString(body, "")
	body = strings.TrimLeft(body, " \t")
	return trailingHorizWsRe.ReplaceAllString(body, "")
}
