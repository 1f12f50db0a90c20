// Package config loads project settings for the documentation generator.
//
// Settings live in .jsdocgen.yaml at the project root. The older config.json
// format (camelCase keys templatePath, outputPath, ignorePrivate,
// excludedDirectories) is still read. Values given on the command line
// override file values, which override the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/jsdocgen/pkg/annotation"
)

// FileNames are the config files looked up in the project root, in order.
var FileNames = []string{".jsdocgen.yaml", ".jsdocgen.yml", "config.json"}

// Config holds the generator settings.
type Config struct {
	// TemplatePath is the page template, relative to the project root.
	// Empty uses the built-in template.
	TemplatePath string `yaml:"template_path"`

	// OutputPath is where the HTML page is written, relative to the root.
	OutputPath string `yaml:"output_path" validate:"required"`

	IgnorePrivate bool `yaml:"ignore_private"`

	// ExcludedDirectories are top-level directory names skipped entirely.
	ExcludedDirectories []string `yaml:"excluded_directories" validate:"dive,required,excludesall=/"`

	// Include and Exclude are doublestar globs relative to the root. An
	// empty Include uses the default JavaScript and TypeScript extensions.
	Include []string `yaml:"include" validate:"dive,required"`
	Exclude []string `yaml:"exclude" validate:"dive,required"`

	// Workers is the scan concurrency. 0 picks a value from the CPU count.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`

	// SyntaxCheck enables the tree-sitter cross-check. Defaults to true.
	SyntaxCheck *bool `yaml:"syntax_check"`

	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=json text auto"`

	// MCPLogPath enables the JSONL tool call log in serve mode.
	MCPLogPath string `yaml:"mcp_log_path"`

	TypeTagMode string `yaml:"type_tag_mode" validate:"omitempty,oneof=permissive word"`
	TagSource   string `yaml:"tag_source" validate:"omitempty,oneof=raw body"`

	// DebounceMs delays regeneration after a file change in watch mode.
	DebounceMs int `yaml:"debounce_ms" validate:"gte=0,lte=60000"`
}

// legacyConfig is the config.json layout.
type legacyConfig struct {
	TemplatePath        string   `yaml:"templatePath"`
	OutputPath          string   `yaml:"outputPath"`
	IgnorePrivate       bool     `yaml:"ignorePrivate"`
	ExcludedDirectories []string `yaml:"excludedDirectories"`
}

const (
	DefaultOutputPath = "docs/index.html"
	DefaultDebounceMs = 200
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	enabled := true
	return &Config{
		OutputPath:  DefaultOutputPath,
		SyntaxCheck: &enabled,
		LogLevel:    "info",
		LogFormat:   "auto",
		TypeTagMode: string(annotation.TypeTagPermissive),
		TagSource:   string(annotation.TagSourceRaw),
		DebounceMs:  DefaultDebounceMs,
	}
}

// Load reads the config file at path on top of the defaults. Files with a
// .json extension are read in the legacy layout.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var legacy legacyConfig
		// JSON is a subset of YAML.
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.mergeLegacy(legacy)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Find returns the first config file present in root.
func Find(root string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadForRoot loads the config for a project. An explicit path must exist;
// otherwise the root is searched and the defaults are used when nothing is
// found. The returned path is empty when no file was read.
func LoadForRoot(root, explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		found, ok := Find(root)
		if !ok {
			return Default(), "", nil
		}
		path = found
	} else if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(root, path)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// mergeLegacy copies legacy values. Legacy paths were appended to the
// project root, so a leading slash still means root-relative.
func (c *Config) mergeLegacy(l legacyConfig) {
	if l.TemplatePath != "" {
		c.TemplatePath = strings.TrimPrefix(l.TemplatePath, "/")
	}
	if l.OutputPath != "" {
		c.OutputPath = strings.TrimPrefix(l.OutputPath, "/")
	}
	c.IgnorePrivate = l.IgnorePrivate
	c.ExcludedDirectories = l.ExcludedDirectories
}

// fillDefaults restores defaults for keys set to empty values in the file.
func (c *Config) fillDefaults() {
	d := Default()
	if c.OutputPath == "" {
		c.OutputPath = d.OutputPath
	}
	if c.SyntaxCheck == nil {
		c.SyntaxCheck = d.SyntaxCheck
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.TypeTagMode == "" {
		c.TypeTagMode = d.TypeTagMode
	}
	if c.TagSource == "" {
		c.TagSource = d.TagSource
	}
	if c.DebounceMs == 0 {
		c.DebounceMs = d.DebounceMs
	}
	// Legacy entries were written with leading or trailing slashes.
	for i, dir := range c.ExcludedDirectories {
		c.ExcludedDirectories[i] = strings.Trim(dir, "/")
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "excludesall":
		return fmt.Sprintf("%s must be a single directory name, got %q", field, fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// SyntaxCheckEnabled reports whether the tree-sitter cross-check should run.
func (c *Config) SyntaxCheckEnabled() bool {
	return c.SyntaxCheck == nil || *c.SyntaxCheck
}

// SetSyntaxCheck overrides the syntax check setting.
func (c *Config) SetSyntaxCheck(enabled bool) {
	c.SyntaxCheck = &enabled
}

// AnnotationOptions returns the annotation dialect selected by the config.
func (c *Config) AnnotationOptions() annotation.Options {
	return annotation.Options{
		TypeTag:   annotation.TypeTagMode(c.TypeTagMode),
		TagSource: annotation.TagSource(c.TagSource),
	}
}

// ResolvePath makes p absolute against root. Empty stays empty.
func ResolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
