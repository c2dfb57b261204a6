// Command scorekit is the CLI for the scorekit toolkit.
// It converts scores between formats, validates and transposes them, and
// maintains a local catalog of score files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/scorekit/scorekit/catalog"
	"github.com/scorekit/scorekit/core/fingerprint"
	"github.com/scorekit/scorekit/core/ops"
	"github.com/scorekit/scorekit/core/validate"
	"github.com/scorekit/scorekit/fileio"
	"github.com/scorekit/scorekit/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for scorekit.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"info" env:"SCOREKIT_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log output format (text, json)" enum:"text,json" default:"text" env:"SCOREKIT_LOG_FORMAT"`

	Convert   ConvertCmd   `cmd:"" help:"Convert a score between formats"`
	Validate  ValidateCmd  `cmd:"" help:"Validate a score and report findings"`
	Transpose TransposeCmd `cmd:"" help:"Transpose a score by semitones"`
	Inspect   InspectCmd   `cmd:"" help:"Print score metadata and fingerprint"`
	Catalog   CatalogGroup `cmd:"" help:"Score catalog operations (scan, list, find)"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// ConvertCmd reads a score in one format and writes it in another. Both
// formats are inferred from the file extensions.
type ConvertCmd struct {
	Input  string `arg:"" help:"Input score file" type:"existingfile"`
	Output string `arg:"" help:"Output score file"`
}

func (c *ConvertCmd) Run() error {
	start := time.Now()
	s, err := fileio.ReadScore(c.Input)
	if err != nil {
		return err
	}
	if err := fileio.WriteScore(c.Output, s); err != nil {
		return err
	}
	logging.Conversion(string(fileio.DetectFormat(c.Input)),
		string(fileio.DetectFormat(c.Output)), c.Input, time.Since(start),
		"output", c.Output)
	fmt.Printf("Converted %s -> %s\n", c.Input, c.Output)
	return nil
}

// ValidateCmd runs the full validator over a score file.
type ValidateCmd struct {
	Input string `arg:"" help:"Score file to validate" type:"existingfile"`
	JSON  bool   `help:"Emit findings as JSON"`
}

func (c *ValidateCmd) Run() error {
	s, err := fileio.ReadScore(c.Input)
	if err != nil {
		return err
	}
	findings := validate.ValidateScore(s)
	errCount := len(validate.Errors(findings))
	warnCount := len(validate.Warnings(findings))
	logging.ValidationReport(c.Input, errCount, warnCount,
		"findings", len(findings))

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(findings); err != nil {
			return err
		}
	} else {
		for _, f := range findings {
			fmt.Println(f.String())
		}
		if len(findings) == 0 {
			fmt.Printf("%s: no findings\n", c.Input)
		}
	}
	if errCount > 0 {
		return fmt.Errorf("%s: %d error(s), %d warning(s)", c.Input, errCount, warnCount)
	}
	return nil
}

// TransposeCmd shifts every pitched note by a semitone delta and writes
// the result. Output defaults to overwriting the input.
type TransposeCmd struct {
	Input     string `arg:"" help:"Score file to transpose" type:"existingfile"`
	Semitones int    `short:"n" required:"" help:"Semitone delta (negative transposes down)"`
	Output    string `short:"o" help:"Output file (defaults to input)"`
}

func (c *TransposeCmd) Run() error {
	start := time.Now()
	s, err := fileio.ReadScore(c.Input)
	if err != nil {
		return err
	}
	result := ops.Transpose(s, c.Semitones)
	logging.Operation("transpose", result.OK(), time.Since(start),
		"path", c.Input, "semitones", c.Semitones)
	if !result.OK() {
		for _, f := range result.Errors {
			fmt.Fprintln(os.Stderr, f.String())
		}
		return fmt.Errorf("transpose failed with %d error(s)", len(result.Errors))
	}
	for _, f := range result.Warnings {
		fmt.Fprintln(os.Stderr, f.String())
	}
	out := c.Output
	if out == "" {
		out = c.Input
	}
	if err := fileio.WriteScore(out, result.Score); err != nil {
		return err
	}
	fmt.Printf("Transposed %s by %+d semitones -> %s\n", c.Input, c.Semitones, out)
	return nil
}

// InspectCmd prints a summary of a score file.
type InspectCmd struct {
	Input string `arg:"" help:"Score file to inspect" type:"existingfile"`
	JSON  bool   `help:"Emit the summary as JSON"`
}

type inspectSummary struct {
	Path        string   `json:"path"`
	Format      string   `json:"format"`
	Title       string   `json:"title,omitempty"`
	Composer    string   `json:"composer,omitempty"`
	Parts       []string `json:"parts"`
	Measures    int      `json:"measures"`
	SHA256      string   `json:"sha256"`
	BLAKE3      string   `json:"blake3"`
	ErrorCount  int      `json:"errors"`
	WarningSums int      `json:"warnings"`
}

func (c *InspectCmd) Run() error {
	s, err := fileio.ReadScore(c.Input)
	if err != nil {
		return err
	}
	fp, err := fingerprint.Compute(s)
	if err != nil {
		return err
	}
	findings := validate.ValidateScore(s)
	summary := inspectSummary{
		Path:        c.Input,
		Format:      string(fileio.DetectFormat(c.Input)),
		Title:       s.Title,
		SHA256:      fp.SHA256,
		BLAKE3:      fp.BLAKE3,
		ErrorCount:  len(validate.Errors(findings)),
		WarningSums: len(validate.Warnings(findings)),
	}
	for _, cr := range s.Creators {
		if cr.Type == "composer" || summary.Composer == "" {
			summary.Composer = cr.Name
		}
	}
	for _, p := range s.Parts {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		summary.Parts = append(summary.Parts, name)
		if len(p.Measures) > summary.Measures {
			summary.Measures = len(p.Measures)
		}
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Printf("Path:     %s\n", summary.Path)
	fmt.Printf("Format:   %s\n", summary.Format)
	if summary.Title != "" {
		fmt.Printf("Title:    %s\n", summary.Title)
	}
	if summary.Composer != "" {
		fmt.Printf("Composer: %s\n", summary.Composer)
	}
	fmt.Printf("Parts:    %d\n", len(summary.Parts))
	for _, name := range summary.Parts {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Printf("Measures: %d\n", summary.Measures)
	fmt.Printf("SHA-256:  %s\n", summary.SHA256)
	fmt.Printf("BLAKE3:   %s\n", summary.BLAKE3)
	fmt.Printf("Findings: %d error(s), %d warning(s)\n", summary.ErrorCount, summary.WarningSums)
	return nil
}

// CatalogGroup contains catalog maintenance and query commands.
type CatalogGroup struct {
	DB string `help:"Catalog database path" type:"path" default:"scorekit.db" env:"SCOREKIT_CATALOG"`

	Scan CatalogScanCmd `cmd:"" help:"Scan a directory tree into the catalog"`
	List CatalogListCmd `cmd:"" help:"List all catalog entries"`
	Find CatalogFindCmd `cmd:"" help:"Find entries by title or fingerprint"`
}

// CatalogScanCmd indexes every readable score file under a directory.
type CatalogScanCmd struct {
	Dir string `arg:"" help:"Directory to scan" type:"existingdir"`
}

func (c *CatalogScanCmd) Run(group *CatalogGroup) error {
	cat, err := catalog.Open(group.DB)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx, _ := logging.NewRunContext(context.Background())
	logging.InfoContext(ctx, "catalog scan started", "dir", c.Dir)
	result, err := cat.ScanDir(ctx, c.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d score(s), skipped %d file(s)\n", result.Indexed, result.Skipped)
	return nil
}

// CatalogListCmd prints all entries.
type CatalogListCmd struct {
	JSON bool `help:"Emit entries as JSON"`
}

func (c *CatalogListCmd) Run(group *CatalogGroup) error {
	cat, err := catalog.Open(group.DB)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List(context.Background())
	if err != nil {
		return err
	}
	return printEntries(entries, c.JSON)
}

// CatalogFindCmd queries by title substring or exact content fingerprint.
type CatalogFindCmd struct {
	Title       string `help:"Title substring to search for" xor:"query" required:""`
	Fingerprint string `help:"Exact content SHA-256 to search for" xor:"query"`
	JSON        bool   `help:"Emit entries as JSON"`
}

func (c *CatalogFindCmd) Run(group *CatalogGroup) error {
	cat, err := catalog.Open(group.DB)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := context.Background()
	var entries []catalog.Entry
	if c.Fingerprint != "" {
		entries, err = cat.FindByFingerprint(ctx, c.Fingerprint)
	} else {
		entries, err = cat.FindByTitle(ctx, c.Title)
	}
	if err != nil {
		return err
	}
	return printEntries(entries, c.JSON)
}

func printEntries(entries []catalog.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return nil
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s\n", title)
		if e.Composer != "" {
			fmt.Printf("  composer: %s\n", e.Composer)
		}
		fmt.Printf("  path:     %s\n", e.Path)
		fmt.Printf("  shape:    %d part(s), %d measure(s)\n", e.Parts, e.Measures)
		fmt.Printf("  sha256:   %s\n", e.SHA256)
		fmt.Printf("  scanned:  %s\n", e.ScannedAt.Format(time.RFC3339))
	}
	return nil
}

// VersionCmd prints the tool version and SQLite driver configuration.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("scorekit version %s (sqlite driver: %s)\n", version, catalog.DriverType())
	return nil
}

func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scorekit"),
		kong.Description("Score toolkit - convert, validate, transpose, and catalog musical scores"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(&CLI.Catalog)
	ctx.FatalIfErrorf(err)
}
