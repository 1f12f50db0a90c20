package docscan

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/construct"
)

func TestScan_NoAnnotations(t *testing.T) {
	for _, src := range []string{
		"",
		"function f() {}\n",
		"/* plain block */\nvar x = 1;\n// line\n",
		"/**/\nfunction g() {}\n",
	} {
		res := Scan(src)
		assert.Empty(t, res.Entries, "source %q", src)
		assert.Equal(t, 0, res.Unprocessed, "source %q", src)
	}
}

func TestScan_FunctionEndToEnd(t *testing.T) {
	src := "/**\n * Adds two numbers\n * @return {number}\n */\nfunction add(a, b) { return a+b; }"

	res := Scan(src)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 0, res.Unprocessed)

	e := res.Entries[0]
	assert.Equal(t, construct.TypeFunction, e.Code.Type)
	assert.Equal(t, "add", e.Code.Name)
	assert.Equal(t, "a, b", e.Code.Params)
	assert.Equal(t, "number", e.Comment.Returns)
	assert.Equal(t, annotation.AccessPublic, e.Comment.Access)
	assert.Equal(t, "Adds two numbers\n@return {number}\n", e.Comment.Body)
	assert.Equal(t, 0, e.Offset)
	assert.Equal(t, strings.Index(src, "*/")+2, e.EndOffset)
	assert.Equal(t, 1, e.Line)
	assert.Equal(t, "add", e.Name())
}

func TestScan_AnnotationBeforeComment(t *testing.T) {
	res := Scan("/** doc */ // not real code\nfunction f(){}")

	assert.Empty(t, res.Entries)
	assert.Equal(t, 1, res.Unprocessed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, ReasonComment, res.Diagnostics[0].Reason)
	assert.Equal(t, "// not real code", res.Diagnostics[0].FirstLine)
}

func TestScan_UnrecognizedConstruct(t *testing.T) {
	res := Scan("/** note */\nif (ready) { start(); }\n/** ok */\nvar n = 1;\n")

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "n", res.Entries[0].Code.Name)
	assert.Equal(t, 1, res.Unprocessed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, ReasonUnrecognized, res.Diagnostics[0].Reason)
	assert.Equal(t, 1, res.Diagnostics[0].Line)
	assert.Equal(t, "if (ready) { start(); }", res.Diagnostics[0].FirstLine)
}

func TestScan_AnnotationAtEndOfInput(t *testing.T) {
	res := Scan("var a = 1;\n/** trailing */")
	assert.Empty(t, res.Entries)
	assert.Equal(t, 1, res.Unprocessed)

	// An unterminated annotation is never closed and produces nothing.
	res = Scan("/** open forever\nfunction f() {}")
	assert.Empty(t, res.Entries)
	assert.Equal(t, 0, res.Unprocessed)
}

func TestScan_EntriesInSourceOrder(t *testing.T) {
	src := strings.Join([]string{
		"/** First */",
		"function one() {}",
		"",
		"/**",
		" * Second",
		" * @private",
		" */",
		"Thing.prototype.two = function (x) {};",
		"",
		"/** Third @type {string} */",
		"Thing.prototype.label = 'x';",
	}, "\n")

	res := Scan(src)
	require.Len(t, res.Entries, 3)

	assert.Equal(t, []construct.Type{
		construct.TypeFunction,
		construct.TypePrototypeMethod,
		construct.TypePrototypeProperty,
	}, []construct.Type{res.Entries[0].Code.Type, res.Entries[1].Code.Type, res.Entries[2].Code.Type})

	assert.Equal(t, []int{1, 4, 10}, []int{res.Entries[0].Line, res.Entries[1].Line, res.Entries[2].Line})
	assert.Equal(t, annotation.AccessPrivate, res.Entries[1].Comment.Access)
	assert.Equal(t, "string", res.Entries[2].Comment.Returns)
	assert.Equal(t, "'x'", res.Entries[2].Code.Value)

	for i := 1; i < len(res.Entries); i++ {
		assert.Less(t, res.Entries[i-1].Offset, res.Entries[i].Offset)
	}
}

func TestScan_SameLineCode(t *testing.T) {
	res := Scan("/** inline */ var x = 5;")
	require.Len(t, res.Entries, 1)
	assert.Equal(t, construct.TypeVarDeclInit, res.Entries[0].Code.Type)
	assert.Equal(t, "5", res.Entries[0].Code.Value)
}

func TestScan_CRLF(t *testing.T) {
	res := Scan("/**\r\n * Windows\r\n */\r\nfunction w() {}\r\n")
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "w", res.Entries[0].Code.Name)
	assert.Equal(t, "function w() {}", res.Entries[0].Code.FirstLine)
}

func TestScan_ModuleDescription(t *testing.T) {
	src := "/**\n * Utilities for strings.\n */\ndefine(function (require, exports, module) {\n\n/** Pad */\nfunction pad(s) {}\n});"

	res := Scan(src)
	require.Len(t, res.Entries, 2)
	assert.True(t, res.Entries[0].IsModule())
	assert.Equal(t, "define", res.Entries[0].Name())
	assert.Equal(t, "Utilities for strings.\n", res.Desc)
	assert.False(t, res.Entries[1].IsModule())
}

func TestScan_Idempotent(t *testing.T) {
	src := "/** A */\nfunction a(x) {}\n/** B */\n// c\n/** D */\nA.b = 3;\n"

	first := Scan(src)
	second := Scan(src)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Scan not idempotent (-first +second):\n%s", diff)
	}
}

func TestScan_Concurrent(t *testing.T) {
	src := "/** A */\nfunction a(x) {}\n/** B */\nvar b = 2;\n"
	want := Scan(src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Empty(t, cmp.Diff(want, Scan(src)))
		}()
	}
	wg.Wait()
}

func TestScanFile_Metadata(t *testing.T) {
	s := NewScanner(annotation.Options{})
	res := s.ScanFile("src/lib/widget.js", "/** Broken */\n???\n")

	assert.Equal(t, "src/lib/widget.js", res.Path)
	assert.Equal(t, "widget.js", res.FileName)
	assert.Equal(t, "widget", res.ShortName)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "widget.js", res.Diagnostics[0].File)
	assert.Equal(t, 0, res.EntryCount())
}

func TestScanner_Options(t *testing.T) {
	src := "/** @type {Array.<string>} */\nvar names = [];\n"

	assert.Equal(t, "Array.<string>", Scan(src).Entries[0].Comment.Returns)

	word := NewScanner(annotation.Options{TypeTag: annotation.TypeTagWord})
	assert.Equal(t, "Array", word.Scan(src).Entries[0].Comment.Returns)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "main", ShortName("main.js"))
	assert.Equal(t, "jquery.min", ShortName("jquery.min.js"))
	assert.Equal(t, "README", ShortName("README"))
}
