package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEval(t *testing.T) {
	out, err := execute(t, "", "eval", `{"type":"bbox","shape":{"value":"LINESTRING(0 0,2 1)"}}`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !strings.HasPrefix(out, "POLYGON") {
		t.Fatalf("out=%q", out)
	}

	out, err = execute(t, "", "eval", "--input", "POINT(3 4)", `{"type":"centroid"}`)
	if err != nil {
		t.Fatalf("eval with input: %v", err)
	}
	if strings.TrimSpace(out) != "POINT(3 4)" {
		t.Fatalf("out=%q", out)
	}

	if _, err := execute(t, "", "eval", `{"type":"centroid"}`); err == nil {
		t.Fatalf("omitted operand without input should fail")
	}
	if _, err := execute(t, "", "eval", `{"type":"hexagon"}`); err == nil {
		t.Fatalf("unknown type should fail")
	}
}

func TestIndex(t *testing.T) {
	schema := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(schema, []byte(`[{"field":"shape"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	in := `{"id":"a","columns":{"shape":"POINT(0 0)"}}

{"columns":{"shape":"POINT(1 1)"}}
`
	out, err := execute(t, in, "index", "--schema", schema, "--workers", "2")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	var first, second indexLine
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.ID != "a" || first.Geoms != 1 || first.Cells == 0 {
		t.Fatalf("first=%+v", first)
	}
	if len(second.ID) != 36 {
		t.Fatalf("missing id should get a uuid, got %q", second.ID)
	}

	out, err = execute(t, `{"id":"bad","columns":{"shape":"POINT("}}`, "index", "--schema", schema)
	if err == nil || !strings.Contains(out, `"error"`) {
		t.Fatalf("failed document should be reported: out=%q err=%v", out, err)
	}
}

func TestLevels(t *testing.T) {
	out, err := execute(t, "", "levels")
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	for _, want := range []string{"geohash  1..12 (default, max_levels 11)", "h3       0..15", "s2       0..30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}
