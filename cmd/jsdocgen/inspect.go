package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/jsdocgen/pkg/annotation"
	"github.com/gnana997/jsdocgen/pkg/docscan"
	"github.com/gnana997/jsdocgen/pkg/syntax"
	"github.com/gnana997/jsdocgen/pkg/util"
)

const maxWidth = 80

func newInspectCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the entries and diagnostics of one source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, flags)
			if err != nil {
				return err
			}
			res, err := inspectFile(p, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printFileHuman(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the scan result as JSON")
	return cmd
}

// inspectFile scans one file with the project's annotation dialect and,
// when enabled, the syntax cross-check.
func inspectFile(p *project, file string) (*docscan.FileResult, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	text, _, err := util.DecodeSource(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}

	rel, err := filepath.Rel(p.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)

	res := docscan.NewScanner(p.generator.Annotation).ScanFile(rel, text)

	if p.generator.SyntaxCheck && syntax.DetectLanguage(path) != syntax.LanguageUnknown {
		inspector := syntax.NewInspector(1, p.logger)
		defer inspector.Close()
		report, err := inspector.Inspect(path, []byte(text))
		if err != nil {
			p.logger.Warn("Syntax check failed", "file", rel, "error", err)
		} else {
			report.Annotate(res)
		}
	}
	return res, nil
}

// printFileHuman prints a scan result for a terminal.
func printFileHuman(w io.Writer, res *docscan.FileResult) {
	header := fmt.Sprintf("%s  [%s]", res.ShortName, res.Path)
	if res.SyntaxErrors {
		header += "  [SYNTAX ERRORS]"
	}
	fmt.Fprintln(w, header)

	if res.Desc != "" {
		fmt.Fprintln(w)
		printWrapped(w, res.Desc, 0, maxWidth)
	}

	fmt.Fprintln(w)
	printEntriesSection(w, res.Entries)

	fmt.Fprintln(w)
	if len(res.Diagnostics) == 0 {
		fmt.Fprintln(w, "Diagnostics  (none)")
	} else {
		fmt.Fprintln(w, "Diagnostics")
		for _, d := range res.Diagnostics {
			reason := fmt.Sprintf("[%s]", d.Reason)
			fmt.Fprintf(w, "  line %-5d %-14s %s\n", d.Line, reason, d.FirstLine)
		}
	}
}

// printEntriesSection renders the entry table with dynamic column widths.
func printEntriesSection(w io.Writer, entries []docscan.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Entries  (none)")
		return
	}
	fmt.Fprintln(w, "Entries")

	typeW := len("TYPE")
	sigW := len("SIGNATURE")
	for _, e := range entries {
		if len(e.Code.Type) > typeW {
			typeW = len(e.Code.Type)
		}
		if len(e.Code.Signature) > sigW {
			sigW = len(e.Code.Signature)
		}
	}

	fmt.Fprintf(w, "  %-5s  %-*s  %-*s  %s\n", "LINE", typeW, "TYPE", sigW, "SIGNATURE", "NOTES")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 5+typeW+sigW+13))

	for _, e := range entries {
		fmt.Fprintf(w, "  %-5d  %-*s  %-*s  %s\n",
			e.Line, typeW, e.Code.Type, sigW, e.Code.Signature, entryNotes(e))
		if first, _, _ := strings.Cut(e.Comment.Body, "\n"); first != "" {
			printWrapped(w, first, 9, maxWidth)
		}
	}
}

func entryNotes(e docscan.Entry) string {
	var notes []string
	if e.Comment.Returns != "" {
		notes = append(notes, "returns "+e.Comment.Returns)
	}
	if e.Comment.IsClass {
		notes = append(notes, "class")
	}
	if e.Comment.Access != "" && e.Comment.Access != annotation.AccessPublic {
		notes = append(notes, string(e.Comment.Access))
	}
	if e.SyntaxKind != "" {
		notes = append(notes, "ts:"+e.SyntaxKind)
	}
	return strings.Join(notes, ", ")
}

// printWrapped prints text word-wrapped at width with the given left indent.
func printWrapped(w io.Writer, text string, indent, width int) {
	words := strings.Fields(text)
	prefix := strings.Repeat(" ", indent)
	line := prefix
	for _, word := range words {
		if len(line)+len(word)+1 > width && line != prefix {
			fmt.Fprintln(w, line)
			line = prefix + word
		} else if line == prefix {
			line += word
		} else {
			line += " " + word
		}
	}
	if line != prefix {
		fmt.Fprintln(w, line)
	}
}
