package deployspec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAndToFunction(t *testing.T) {
	dir := t.TempDir()
	codeDir := filepath.Join(dir, "hello")
	if err := os.Mkdir(codeDir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	manifest := `
name: hello
runtime: echo
code: ./hello
trigger:
  http: true
`
	specs, err := Parse(strings.NewReader(manifest), dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(specs.Functions) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs.Functions))
	}

	fn, err := specs.Functions[0].ToFunction("projects/p/locations/l/functions/hello")
	if err != nil {
		t.Fatalf("ToFunction: %v", err)
	}
	if fn.EntryPoint != "hello" {
		t.Fatalf("EntryPoint = %q, want %q (defaulted to short name)", fn.EntryPoint, "hello")
	}
	if fn.Timeout == 0 {
		t.Fatalf("expected a default timeout to be applied")
	}
}

func TestToFunctionMissingCodePath(t *testing.T) {
	s := FunctionSpec{Name: "hello", Code: "/does/not/exist"}
	_, err := s.ToFunction("projects/p/locations/l/functions/hello")
	if err == nil || err.Error() != "Provided directory does not exist." {
		t.Fatalf("err = %v, want the stable 'Provided directory does not exist.' message", err)
	}
}

func TestParseEmptyManifestRejected(t *testing.T) {
	_, err := Parse(strings.NewReader("---\n"), ".")
	if err == nil {
		t.Fatalf("expected an error for a manifest with no named functions")
	}
}
