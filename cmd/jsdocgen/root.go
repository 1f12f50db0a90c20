package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/jsdocgen/pkg/config"
	"github.com/gnana997/jsdocgen/pkg/generator"
	"github.com/gnana997/jsdocgen/pkg/util"
)

// globalFlags are shared by every command. Values given here override the
// project config file.
type globalFlags struct {
	root          string
	configPath    string
	template      string
	output        string
	ignorePrivate bool
	workers       int
	noSyntaxCheck bool
	logLevel      string
}

// project is the resolved configuration for one invocation.
type project struct {
	root       string
	configPath string // empty when no file was read
	config     *config.Config
	generator  generator.Config
	runOptions generator.RunOptions
	output     generator.Output
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "jsdocgen",
		Short: "Generate an HTML reference page from JavaScript doc annotations",
		Long: `jsdocgen scans a project for /** */ annotations, pairs each one with the
code that follows it, and writes a single HTML page listing every documented
file. Running jsdocgen without a command is the same as jsdocgen generate.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.root, "root", ".", "Project root to scan")
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: .jsdocgen.yaml or config.json in the root)")
	pf.StringVar(&flags.template, "template", "", "HTML template with {menuStr} and {mainStr} placeholders")
	pf.StringVar(&flags.output, "output", "", "Output HTML file (default: docs/index.html in the root)")
	pf.BoolVar(&flags.ignorePrivate, "ignore-private", false, "Leave @private entries out of the page")
	pf.IntVar(&flags.workers, "workers", 0, "Scan workers (0 picks from the CPU count)")
	pf.BoolVar(&flags.noSyntaxCheck, "no-syntax-check", false, "Skip the tree-sitter syntax cross-check")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newGenerateCommand(flags),
		newInspectCommand(flags),
		newWatchCommand(flags),
		newServeCommand(flags),
		newVersionCommand(),
	)
	return cmd
}

func newGenerateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Scan the project and write the documentation page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags)
		},
	}
}

func runGenerate(cmd *cobra.Command, flags *globalFlags) error {
	p, err := loadProject(cmd, flags)
	if err != nil {
		return err
	}

	g := generator.New(p.generator, p.logger)
	defer g.Close()

	run, sum, err := g.Generate(cmd.Context(), p.root, p.runOptions, p.output)
	if err != nil {
		return err
	}
	printSummary(cmd, generator.SummaryLines(run, sum))
	return nil
}

func printSummary(cmd *cobra.Command, lines []string) {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

// loadProject resolves the root, reads its config file and applies the
// command line overrides.
func loadProject(cmd *cobra.Command, flags *globalFlags) (*project, error) {
	root, err := filepath.Abs(flags.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	cfg, path, err := config.LoadForRoot(root, flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	level, err := util.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := util.NewLogger(util.LoggerConfig{
		Level:  level,
		Format: util.LogFormat(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})
	if path != "" {
		logger.Debug("Loaded config", "path", path)
	}

	gc, opts, out := generator.FromConfig(cfg, root)
	return &project{
		root:       root,
		configPath: path,
		config:     cfg,
		generator:  gc,
		runOptions: opts,
		output:     out,
		logger:     logger,
	}, nil
}

// applyFlags copies explicitly set flags onto cfg. Paths given on the
// command line are relative to the working directory, not the root.
func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) error {
	fs := cmd.Flags()

	if flags.template != "" {
		abs, err := filepath.Abs(flags.template)
		if err != nil {
			return fmt.Errorf("failed to resolve template: %w", err)
		}
		cfg.TemplatePath = abs
	}
	if flags.output != "" {
		abs, err := filepath.Abs(flags.output)
		if err != nil {
			return fmt.Errorf("failed to resolve output: %w", err)
		}
		cfg.OutputPath = abs
	}
	if fs.Changed("ignore-private") {
		cfg.IgnorePrivate = flags.ignorePrivate
	}
	if fs.Changed("workers") {
		cfg.Workers = flags.workers
	}
	if flags.noSyntaxCheck {
		cfg.SetSyntaxCheck(false)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}
	return nil
}
