package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pointsCSV = "name,lat,lng\nBerlin,52.52,13.40\nParis,48.85,2.35\n"

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExportThenValidate(t *testing.T) {
	csvPath := writeFile(t, "cities.csv", pointsCSV)
	out, err := execute(t, "export", "--yaml", csvPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "name: cities") || !strings.Contains(out, "type: point") {
		t.Fatalf("export output:\n%s", out)
	}

	cfgPath := writeFile(t, "map.yaml", out)
	out, err = execute(t, "validate", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "cities") || !strings.Contains(out, "2 records") {
		t.Fatalf("validate output: %q", out)
	}
}

func TestInspectReportsClassification(t *testing.T) {
	out, err := execute(t, "inspect", writeFile(t, "cities.csv", pointsCSV))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, `"spatial": "point"`) || !strings.Contains(out, `"accepted": 2`) {
		t.Fatalf("inspect output:\n%s", out)
	}
}

func TestInspectUnsupportedFile(t *testing.T) {
	if _, err := execute(t, "inspect", writeFile(t, "notes.txt", "hello")); err == nil {
		t.Fatalf("expected an error for a .txt upload")
	}
}
