// Package output renders CLI results as a table, wide table, JSON, or
// YAML through a Printer/Format pair, narrowed to the rows the CLI
// actually needs (Name, Trigger, Resource, URL for `list`; function
// detail for `describe`; invocation result for `call`).
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects how a Printer renders values.
type Format string

const (
	FormatTable Format = "table"
	FormatWide  Format = "wide"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps an --output flag value to a Format, defaulting to
// table.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "wide":
		return FormatWide
	default:
		return FormatTable
	}
}

// Printer renders values in a Printer's configured Format.
type Printer struct {
	format  Format
	writer  io.Writer
	noColor bool
}

// NewPrinter returns a Printer writing to stdout in format.
func NewPrinter(format Format) *Printer {
	return &Printer{
		format:  format,
		writer:  os.Stdout,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

// SetWriter redirects output, e.g. in tests.
func (p *Printer) SetWriter(w io.Writer) { p.writer = w }

// Print renders data as JSON or YAML depending on the configured format.
// Table-oriented callers should use PrintFunctions/PrintFunctionDetail
// instead, which fall back to Print for FormatJSON/FormatYAML.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatYAML:
		return p.printYAML(data)
	default:
		return p.printJSON(data)
	}
}

func (p *Printer) printJSON(data any) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (p *Printer) printYAML(data any) error {
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	return enc.Encode(data)
}

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
)

// Colorize wraps text in color unless NO_COLOR is set.
func (p *Printer) Colorize(color, text string) string {
	if p.noColor {
		return text
	}
	return color + text + Reset
}

// TableWriter returns a tabwriter configured for aligned column output.
func (p *Printer) TableWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
}

// FunctionRow is one row of `novafnctl list` output (spec §4.7: Name,
// Trigger, Resource, URL).
type FunctionRow struct {
	Name     string `json:"name" yaml:"name"`
	Trigger  string `json:"trigger" yaml:"trigger"`
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Runtime  string `json:"runtime" yaml:"runtime"`
	Updated  string `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// PrintFunctions renders a function list as a table (or wide table) or
// structured output depending on the configured format.
func (p *Printer) PrintFunctions(rows []FunctionRow) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(p.writer, "Listed 0 items.")
		return nil
	}

	w := p.TableWriter()
	if p.format == FormatWide {
		fmt.Fprintln(w, p.Colorize(Bold, "NAME\tTRIGGER\tRESOURCE\tURL\tRUNTIME\tUPDATED"))
	} else {
		fmt.Fprintln(w, p.Colorize(Bold, "NAME\tTRIGGER\tRESOURCE"))
	}

	for _, row := range rows {
		if p.format == FormatWide {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Colorize(Cyan, row.Name), row.Trigger, row.Resource, row.URL, row.Runtime, row.Updated)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Colorize(Cyan, row.Name), row.Trigger, row.Resource)
		}
	}
	return w.Flush()
}

// FunctionDetail is the structure `novafnctl describe` prints.
type FunctionDetail struct {
	Name       string            `json:"name" yaml:"name"`
	Runtime    string            `json:"runtime" yaml:"runtime"`
	EntryPoint string            `json:"entryPoint" yaml:"entryPoint"`
	SourcePath string            `json:"sourcePath" yaml:"sourcePath"`
	Trigger    string            `json:"trigger" yaml:"trigger"`
	Resource   string            `json:"resource,omitempty" yaml:"resource,omitempty"`
	TimeoutS   int               `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	EnvVars    map[string]string `json:"envVars,omitempty" yaml:"envVars,omitempty"`
	Created    string            `json:"created" yaml:"created"`
	Updated    string            `json:"updated" yaml:"updated"`
}

// PrintFunctionDetail renders one function's full detail.
func (p *Printer) PrintFunctionDetail(detail FunctionDetail) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(detail)
	}

	fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Name:"), p.Colorize(Cyan, detail.Name))
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Runtime:"), detail.Runtime)
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Entry Point:"), detail.EntryPoint)
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Source Path:"), detail.SourcePath)
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Trigger:"), detail.Trigger)
	if detail.Resource != "" {
		fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Resource:"), detail.Resource)
	}
	fmt.Fprintf(p.writer, "  %s %ds\n", p.Colorize(Gray, "Timeout:"), detail.TimeoutS)
	if len(detail.EnvVars) > 0 {
		fmt.Fprintf(p.writer, "  %s\n", p.Colorize(Gray, "Env Vars:"))
		for k, v := range detail.EnvVars {
			fmt.Fprintf(p.writer, "    %s=%s\n", k, v)
		}
	}
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Created:"), detail.Created)
	fmt.Fprintf(p.writer, "  %s %s\n", p.Colorize(Gray, "Updated:"), detail.Updated)
	return nil
}

// InvokeResult is what `novafnctl call` prints.
type InvokeResult struct {
	Status     int             `json:"status" yaml:"status"`
	Body       json.RawMessage `json:"body,omitempty" yaml:"body,omitempty"`
	DurationMs int64           `json:"durationMs" yaml:"durationMs"`
}

// PrintInvokeResult renders one function call's outcome.
func (p *Printer) PrintInvokeResult(result InvokeResult) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(result)
	}

	fmt.Fprintf(p.writer, "%s %d\n", p.Colorize(Bold, "Status:"), result.Status)
	fmt.Fprintf(p.writer, "%s %d ms\n", p.Colorize(Bold, "Duration:"), result.DurationMs)
	fmt.Fprintf(p.writer, "%s\n", p.Colorize(Bold, "Body:"))
	var pretty any
	if err := json.Unmarshal(result.Body, &pretty); err == nil {
		formatted, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintln(p.writer, string(formatted))
	} else {
		fmt.Fprintln(p.writer, string(result.Body))
	}
	return nil
}

// Success prints a success line, colorized green.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.writer, p.Colorize(Green, "✓ ")+fmt.Sprintf(format, args...))
}

// Error prints an error line, colorized red.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.writer, p.Colorize(Red, "✗ ")+fmt.Sprintf(format, args...))
}

// Warning prints a warning line, colorized yellow.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.writer, p.Colorize(Yellow, "⚠ ")+fmt.Sprintf(format, args...))
}
