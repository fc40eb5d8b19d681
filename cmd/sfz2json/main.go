// Command sfz2json converts SFZ sampled-instrument definitions to JSON
// sample documents for use with programs like SuperCollider.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperSFZ/core/convert"
	"github.com/FocuswithJustin/JuniperSFZ/core/parse"
	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
	"github.com/FocuswithJustin/JuniperSFZ/core/sqlite"
	"github.com/FocuswithJustin/JuniperSFZ/internal/catalog"
	"github.com/FocuswithJustin/JuniperSFZ/internal/logging"
)

const version = "0.1.0"

// sfzExtRe strips a trailing .sfz extension when deriving output names.
var sfzExtRe = regexp.MustCompile(`(?i)\.sfz$`)

// CLI defines the command-line interface for sfz2json.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	Convert ConvertCmd   `cmd:"" help:"Convert an SFZ file to a JSON sample document"`
	Inspect InspectCmd   `cmd:"" help:"Parse an SFZ file and print its structure and diagnostics"`
	Catalog CatalogGroup `cmd:"" help:"Instrument catalog operations"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// ConvertCmd converts an SFZ file to JSON.
type ConvertCmd struct {
	Path    string `arg:"" help:"Path to the SFZ file to convert" type:"existingfile"`
	Output  string `short:"o" help:"Output path (default: input path with .json extension)"`
	Pretty  bool   `help:"Indent the JSON output"`
	XZ      bool   `name:"xz" help:"Compress the output with xz"`
	Catalog string `help:"Also record the conversion in the catalog database at this path"`
}

// Run executes the convert command.
func (c *ConvertCmd) Run() error {
	source, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.Path, err)
	}

	buf, err := parse.ParseFile(c.Path, nil)
	if err != nil {
		return err
	}
	logDiagnostics(buf.Diagnostics)

	doc := convert.Build(buf)

	output := c.Output
	if output == "" {
		output = sfzExtRe.ReplaceAllString(c.Path, "") + ".json"
		if c.XZ {
			output += ".xz"
		}
	}
	opts := &convert.WriteOptions{Pretty: c.Pretty, Compression: convert.CompressionNone}
	if c.XZ || strings.HasSuffix(output, ".xz") {
		opts.Compression = convert.CompressionXZ
	}
	if err := convert.WriteFile(output, doc, opts); err != nil {
		return err
	}
	fmt.Printf("Converted %q to %q (%d groups)\n", c.Path, output, len(doc))

	if c.Catalog != "" {
		return c.record(source, doc)
	}
	return nil
}

// record stores the conversion in the catalog, skipping sources already
// cataloged under the same hash.
func (c *ConvertCmd) record(source []byte, doc convert.Document) error {
	cat, err := catalog.Open(c.Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	sha := sfz.HashBytes(source)
	if existing, err := cat.FindBySourceHash(sha); err != nil {
		return err
	} else if existing != nil {
		logging.Info("source already cataloged", "id", existing.ID, "path", existing.Path)
		return nil
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document for catalog: %w", err)
	}
	id, err := cat.Put(&catalog.Entry{
		Path:         c.Path,
		SourceSHA256: sha,
		SourceBLAKE3: sfz.Blake3Source(source),
		Document:     docJSON,
	})
	if err != nil {
		return err
	}
	logging.Info("cataloged instrument", "id", id, "path", c.Path)
	return nil
}

// InspectCmd parses an SFZ file and prints a structure summary.
type InspectCmd struct {
	Path string `arg:"" help:"Path to the SFZ file to inspect" type:"existingfile"`
	JSON bool   `help:"Print the parsed buffer as JSON"`
}

// Run executes the inspect command.
func (c *InspectCmd) Run() error {
	buf, err := parse.ParseFile(c.Path, nil)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(buf)
	}

	hash, err := sfz.HashBuffer(buf)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", c.Path)
	fmt.Printf("  buffer sha256: %s\n", hash)
	fmt.Printf("  global defaults: %d\n", buf.Globals.Len())
	fmt.Printf("  groups: %d\n", len(buf.Groups))
	for i, g := range buf.Groups {
		fmt.Printf("    [%d] <%s> defaults=%d regions=%d\n", i, g.Kind, g.Defaults.Len(), len(g.Regions))
	}
	if len(buf.Diagnostics) > 0 {
		fmt.Printf("  diagnostics:\n")
		for _, d := range buf.Diagnostics {
			fmt.Printf("    %s\n", d)
		}
	}
	return nil
}

// CatalogGroup contains catalog operations.
type CatalogGroup struct {
	List CatalogListCmd `cmd:"" help:"List cataloged instruments"`
	Show CatalogShowCmd `cmd:"" help:"Show a cataloged instrument's document"`
}

// CatalogListCmd lists catalog entries.
type CatalogListCmd struct {
	Db string `default:"sfz-catalog.db" help:"Catalog database path"`
}

// Run executes the catalog list command.
func (c *CatalogListCmd) Run() error {
	cat, err := catalog.Open(c.Db)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s  %s\n", e.ID, e.CreatedAt, e.SourceSHA256[:12], e.Path)
	}
	return nil
}

// CatalogShowCmd prints a cataloged instrument's JSON document.
type CatalogShowCmd struct {
	Db string `default:"sfz-catalog.db" help:"Catalog database path"`
	ID string `arg:"" help:"Entry ID"`
}

// Run executes the catalog show command.
func (c *CatalogShowCmd) Run() error {
	cat, err := catalog.Open(c.Db)
	if err != nil {
		return err
	}
	defer cat.Close()

	entry, err := cat.Get(c.ID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no catalog entry with id %s", c.ID)
	}
	_, err = os.Stdout.Write(append(entry.Document, '\n'))
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("sfz2json version %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

// logDiagnostics surfaces non-fatal pipeline diagnostics through the logger.
func logDiagnostics(diags []sfz.Diagnostic) {
	for _, d := range diags {
		logging.Diagnostic(d.Severity.String(), d.Pos.String(), d.Message)
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("sfz2json"),
		kong.Description("JuniperSFZ - SFZ instrument to JSON converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level, _ := logging.ParseLevel(CLI.LogLevel)
	format, _ := logging.ParseFormat(CLI.LogFormat)
	logging.InitLogger(level, format)

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
