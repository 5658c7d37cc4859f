// Package config defines the canonical, JSON-serializable configuration model
// for a starlake pipeline run. It is intentionally small, explicit, and
// dependency-free so that pipelines can be loaded from disk and passed through
// the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library.
//
// Example (trimmed):
//
//	{
//	  "job":     "sparkify",
//	  "catalog": { "path": "data/song_data" },
//	  "events":  { "path": "data/log_data" },
//	  "output":  { "path": "out" },
//	  "join":    { "tolerance_seconds": 2.0 }
//	}
package config

import (
	"encoding/json"
	"io"
	"os"
)

// Pipeline describes one full run of the star-schema ETL. It is the top-level
// object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it is used for metrics labeling and log lines.
	Job string `json:"job"`

	// Catalog locates the song/artist metadata source (a directory tree of
	// one-record-per-line JSON files, read with a strict schema).
	Catalog Source `json:"catalog"`

	// Events locates the usage event source (a directory tree of
	// one-record-per-line JSON files, read with a permissive schema).
	Events Source `json:"events"`

	// Output is the base location under which every derived table is written
	// (songs/, artists/, users/, times/, songplays/).
	Output Output `json:"output"`

	// Warehouse optionally mirrors every derived table into Postgres.
	// Disabled when DSN is empty.
	Warehouse Warehouse `json:"warehouse"`

	// Join tunes the songplays catalog match.
	Join Join `json:"join"`

	// Runtime controls concurrency for independent table derivations.
	Runtime Runtime `json:"runtime"`
}

// Source identifies an input directory tree on the local filesystem.
type Source struct {
	// Path is the root directory of the source. Files matching *.json
	// anywhere below it are read in lexical walk order.
	Path string `json:"path"`
}

// Output identifies the base output location for derived tables.
type Output struct {
	// Path is the base directory. Each table is written under a subdirectory
	// named after the table, replacing any previous contents for that table.
	Path string `json:"path"`
}

// Warehouse configures the optional Postgres sink.
type Warehouse struct {
	// DSN is the connection string for pgxpool (e.g., postgresql://...).
	// Empty disables the warehouse load.
	DSN string `json:"dsn"`
}

// Join configures the songplays catalog match.
type Join struct {
	// ToleranceSeconds is the maximum allowed |event.length - song.duration|
	// for a catalog match. Zero selects the default of 2.0 seconds.
	ToleranceSeconds float64 `json:"tolerance_seconds"`

	// NormalizeKeys folds titles and artist names (trim, strip diacritics,
	// lowercase) before comparing them. Off by default: the match predicate
	// is exact string equality. Enable it when the catalog and event feeds
	// disagree on accents or casing.
	NormalizeKeys bool `json:"normalize_keys"`
}

// Runtime controls concurrency and buffering. Zero values select defaults,
// optionally overridden via environment (12-factor style) by the caller.
type Runtime struct {
	// TableWorkers bounds how many independent table derivations/writes run
	// concurrently within one stage. Default 3.
	TableWorkers int `json:"table_workers"`
}

// Tolerance returns the effective join tolerance in seconds.
func (j Join) Tolerance() float64 {
	if j.ToleranceSeconds > 0 {
		return j.ToleranceSeconds
	}
	return 2.0
}

// Load reads and decodes a pipeline file from path.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a pipeline from r. Unknown fields are rejected so that
// typos in pipeline files surface immediately instead of silently selecting
// defaults.
func Decode(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}
