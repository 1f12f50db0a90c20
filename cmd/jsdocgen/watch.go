package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gnana997/jsdocgen/pkg/generator"
	"github.com/gnana997/jsdocgen/pkg/render"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Generate, then regenerate whenever a source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, flags)
			if err != nil {
				return err
			}

			g := generator.New(p.generator, p.logger)
			defer g.Close()

			ctx := cmd.Context()
			run, sum, err := g.Generate(ctx, p.root, p.runOptions, p.output)
			if err != nil {
				return err
			}
			printSummary(cmd, generator.SummaryLines(run, sum))

			w, err := generator.NewWatcher(g, p.root, p.runOptions, p.output, generator.WatchOptions{
				Debounce: time.Duration(p.config.DebounceMs) * time.Millisecond,
				OnRegenerate: func(sum render.Summary, err error) {
					if err != nil {
						p.logger.Error("Regeneration failed", "error", err)
						return
					}
					p.logger.Info("Documentation updated", "output", p.output.OutputPath, "files", sum.Files, "entries", sum.Entries)
				},
			}, p.logger)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			p.logger.Info("Watching for changes", "root", p.root)

			<-ctx.Done()
			p.logger.Info("Stopping watcher")
			return w.Stop()
		},
	}
}
