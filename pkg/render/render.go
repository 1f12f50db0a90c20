// Package render turns scanned files into a single HTML page.
//
// A page template is plain text holding two placeholders: {menuStr} receives
// one navigation item per file and {mainStr} receives one article per file.
// Only the first occurrence of each placeholder is replaced.
package render

import (
	_ "embed"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/docscan"
)

const (
	MenuPlaceholder = "{menuStr}"
	MainPlaceholder = "{mainStr}"
)

// DefaultTemplate is used when no template path is configured.
//
//go:embed template.html
var DefaultTemplate string

const articleTemplate = `<a name="{{esc .ShortName}}"></a><article>
<p class="path">{{esc .Path}}</p>
{{if .Module}}<h1>{{esc .ShortName}}</h1>
<p>{{toHTML .Desc}}</p>
<hr>
{{end}}{{range .Entries}}<pre><code><h2>{{esc .Title}}</h2></code></pre><p><strong>return type: </strong><code>{{toHTML .Returns}}</code></p>
<p><strong>access: </strong><code>{{.Access}}</code></p>
<p>{{toHTML .Body}}</p>
<hr>
{{end}}</article>
<hr>
<hr>
`

const menuItemTemplate = `<li><a href="#{{esc .}}">{{esc .}}</a></li>
`

// Options controls which entries are rendered.
type Options struct {
	// IgnorePrivate drops entries whose annotation carries the private tag.
	IgnorePrivate bool
}

// Summary counts what a render call emitted.
type Summary struct {
	Files          int `json:"files"`
	Entries        int `json:"entries"`
	PrivateSkipped int `json:"private_skipped"`
}

// Renderer renders file results with a fixed set of options. It is safe for
// concurrent use.
type Renderer struct {
	opts    Options
	article *template.Template
	menu    *template.Template
	logger  *slog.Logger
}

type articleData struct {
	ShortName string
	Path      string
	Module    bool
	Desc      string
	Entries   []entryData
}

type entryData struct {
	Title   string
	Returns string
	Access  annotation.Access
	Body    string
}

// NewRenderer creates a Renderer. A nil logger falls back to slog.Default().
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	funcs := template.FuncMap{
		"esc":    html.EscapeString,
		"toHTML": ToHTML,
	}
	return &Renderer{
		opts:    opts,
		article: template.Must(template.New("article").Funcs(funcs).Parse(articleTemplate)),
		menu:    template.Must(template.New("menu").Funcs(funcs).Parse(menuItemTemplate)),
		logger:  logger,
	}
}

// Render renders files into page with default options.
func Render(files []*docscan.FileResult, page string, opts Options) (string, Summary, error) {
	return NewRenderer(opts, nil).Render(files, page)
}

// Render substitutes the navigation list and the articles for files into page.
func (r *Renderer) Render(files []*docscan.FileResult, page string) (string, Summary, error) {
	var menu, articles strings.Builder
	var sum Summary

	for _, f := range files {
		data := r.articleFor(f, &sum)
		if err := r.article.Execute(&articles, data); err != nil {
			return "", sum, fmt.Errorf("failed to render %s: %w", f.Path, err)
		}
		if err := r.menu.Execute(&menu, f.ShortName); err != nil {
			return "", sum, fmt.Errorf("failed to render menu item for %s: %w", f.Path, err)
		}
		sum.Files++
	}

	out := strings.Replace(page, MenuPlaceholder, menu.String(), 1)
	out = strings.Replace(out, MainPlaceholder, articles.String(), 1)

	r.logger.Debug("Rendered documentation",
		"files", sum.Files,
		"entries", sum.Entries,
		"private_skipped", sum.PrivateSkipped)

	return out, sum, nil
}

func (r *Renderer) articleFor(f *docscan.FileResult, sum *Summary) articleData {
	data := articleData{
		ShortName: f.ShortName,
		Path:      f.Path,
		Desc:      f.Desc,
	}
	for _, e := range f.Entries {
		if e.IsModule() {
			data.Module = true
			continue
		}
		if r.opts.IgnorePrivate && e.Comment.Access == annotation.AccessPrivate {
			sum.PrivateSkipped++
			continue
		}
		data.Entries = append(data.Entries, entryData{
			Title:   Title(e),
			Returns: e.Comment.Returns,
			Access:  e.Comment.Access,
			Body:    e.Comment.Body,
		})
		sum.Entries++
	}
	return data
}

// Title is the heading shown for an entry: the construct signature, or the
// construct name followed by " Class" when the annotation marks a constructor.
func Title(e docscan.Entry) string {
	if e.Comment.IsClass {
		return e.Name() + " Class"
	}
	return e.Code.Signature
}

// ToHTML decodes character entities in s, escapes the result for HTML, and
// turns line breaks into <br> elements.
func ToHTML(s string) string {
	if s == "" {
		return ""
	}
	s = html.EscapeString(html.UnescapeString(s))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// LoadTemplate reads the page template at path. An empty path yields
// DefaultTemplate.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return DefaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

// WriteFile writes a rendered page to path, creating parent directories.
func WriteFile(path, page string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
