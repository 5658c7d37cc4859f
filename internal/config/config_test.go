package config

import (
	"strings"
	"testing"
)

func TestDecode_FullPipeline(t *testing.T) {
	t.Parallel()

	const doc = `{
	  "job": "sparkify",
	  "catalog": { "path": "data/song_data" },
	  "events":  { "path": "data/log_data" },
	  "output":  { "path": "out" },
	  "warehouse": { "dsn": "postgresql://localhost/sparkify" },
	  "join": { "tolerance_seconds": 1.5, "normalize_keys": true },
	  "runtime": { "table_workers": 2 }
	}`

	p, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if p.Job != "sparkify" {
		t.Errorf("job = %q, want sparkify", p.Job)
	}
	if p.Catalog.Path != "data/song_data" || p.Events.Path != "data/log_data" {
		t.Errorf("sources = %q / %q", p.Catalog.Path, p.Events.Path)
	}
	if p.Warehouse.DSN == "" {
		t.Errorf("warehouse.dsn not decoded")
	}
	if got := p.Join.Tolerance(); got != 1.5 {
		t.Errorf("tolerance = %v, want 1.5", got)
	}
	if !p.Join.NormalizeKeys {
		t.Errorf("normalize_keys not decoded")
	}
	if p.Runtime.TableWorkers != 2 {
		t.Errorf("table_workers = %d, want 2", p.Runtime.TableWorkers)
	}
}

func TestDecode_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"job":"x","outptu":{"path":"out"}}`))
	if err == nil {
		t.Fatalf("expected error for unknown field, got nil")
	}
}

func TestJoinTolerance_Default(t *testing.T) {
	t.Parallel()

	var j Join
	if got := j.Tolerance(); got != 2.0 {
		t.Errorf("default tolerance = %v, want 2.0", got)
	}
}

func TestValidatePipeline_MissingPaths(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(Pipeline{})
	if !HasError(issues) {
		t.Fatalf("expected errors for empty pipeline, got %v", issues)
	}

	paths := map[string]bool{}
	for _, iss := range issues {
		paths[iss.Path] = true
	}
	for _, want := range []string{"job", "catalog.path", "events.path", "output.path"} {
		if !paths[want] {
			t.Errorf("missing issue for %s in %v", want, issues)
		}
	}
}

func TestValidatePipeline_Clean(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		Job:     "sparkify",
		Catalog: Source{Path: "a"},
		Events:  Source{Path: "b"},
		Output:  Output{Path: "out"},
	}
	if issues := ValidatePipeline(p); len(issues) != 0 {
		t.Errorf("unexpected issues: %v", issues)
	}
}

func TestValidatePipeline_SharedSourceWarns(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		Job:     "sparkify",
		Catalog: Source{Path: "same"},
		Events:  Source{Path: "same"},
		Output:  Output{Path: "out"},
	}
	issues := ValidatePipeline(p)
	if HasError(issues) {
		t.Fatalf("shared source should not be an error: %v", issues)
	}
	if len(issues) == 0 {
		t.Fatalf("expected a warning for shared source path")
	}
	if issues[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", issues[0].Severity)
	}
}

func TestValidatePipeline_NegativeTolerance(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		Job:     "sparkify",
		Catalog: Source{Path: "a"},
		Events:  Source{Path: "b"},
		Output:  Output{Path: "out"},
		Join:    Join{ToleranceSeconds: -1},
	}
	if !HasError(ValidatePipeline(p)) {
		t.Errorf("expected error for negative tolerance")
	}
}
