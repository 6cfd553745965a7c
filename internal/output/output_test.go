package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestPrintFunctionsTableDefaultColumns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatTable)
	p.SetWriter(&buf)

	err := p.PrintFunctions([]FunctionRow{
		{Name: "projects/p/locations/l/functions/hello", Trigger: "http", Runtime: "echo"},
	})
	if err != nil {
		t.Fatalf("PrintFunctions: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "hello") {
		t.Fatalf("table output missing expected content: %q", out)
	}
	if strings.Contains(out, "RUNTIME") {
		t.Fatalf("default table should not include wide-only columns: %q", out)
	}
}

func TestPrintFunctionsWideIncludesExtraColumns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatWide)
	p.SetWriter(&buf)

	if err := p.PrintFunctions([]FunctionRow{{Name: "f", Trigger: "http", Runtime: "echo", URL: "http://x"}}); err != nil {
		t.Fatalf("PrintFunctions: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "RUNTIME") || !strings.Contains(out, "URL") {
		t.Fatalf("wide output missing expected columns: %q", out)
	}
}

func TestPrintFunctionsEmptyList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatTable)
	p.SetWriter(&buf)
	if err := p.PrintFunctions(nil); err != nil {
		t.Fatalf("PrintFunctions: %v", err)
	}
	if !strings.Contains(buf.String(), "Listed 0 items.") {
		t.Fatalf("expected empty-list message, got %q", buf.String())
	}
}

func TestPrintFunctionsJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(FormatJSON)
	p.SetWriter(&buf)

	rows := []FunctionRow{{Name: "f", Trigger: "http"}}
	if err := p.PrintFunctions(rows); err != nil {
		t.Fatalf("PrintFunctions: %v", err)
	}
	var got []FunctionRow
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Name != "f" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json": FormatJSON,
		"YAML": FormatYAML,
		"yml":  FormatYAML,
		"wide": FormatWide,
		"":     FormatTable,
		"huh":  FormatTable,
	}
	for in, want := range cases {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestColorizeRespectsNoColor(t *testing.T) {
	p := NewPrinter(FormatTable)
	p.noColor = true
	if got := p.Colorize(Red, "x"); got != "x" {
		t.Fatalf("Colorize with noColor = %q, want plain %q", got, "x")
	}
	p.noColor = false
	if got := p.Colorize(Red, "x"); got == "x" {
		t.Fatalf("Colorize without noColor should wrap text")
	}
}
