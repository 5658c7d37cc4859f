// Package events loads the application usage event source.
//
// Events are read permissively: no schema is enforced at load time and no
// record is dropped here. Each event becomes a generic Record map; typed
// accessors perform best-effort coercion when the derivation stages need a
// concrete value. Feeds disagree on key spelling (userId / user_id / userid),
// so keys are canonicalized on load by lowercasing and removing underscores.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Record is one raw usage event with canonicalized keys. Numbers are kept as
// json.Number so integer timestamps survive undamaged.
type Record map[string]any

// Stats summarizes a load.
type Stats struct {
	Files   int
	Records int
}

// Load reads every *.json file under dir (lexical walk order) and returns one
// Record per top-level JSON object (NDJSON and top-level arrays both work).
// Non-object values are skipped and broken framing drops the remainder of the
// offending file; only an unreachable source is an error.
func Load(ctx context.Context, dir string) ([]Record, Stats, error) {
	var (
		out   []Record
		stats Stats
	)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("event source: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("event source: %s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		stats.Files++
		recs := decodeStream(f)
		out = append(out, recs...)
		stats.Records += len(recs)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("event source: %w", err)
	}

	return out, stats, nil
}

// decodeStream reads all top-level JSON values from r. Objects become
// records; arrays are expanded; other values are skipped (junk tolerance, the
// page predicate downstream is the real filter). A byte stream that stops
// being JSON drops the remainder of the file rather than failing the run.
func decodeStream(r io.Reader) []Record {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out []Record
	for {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			// EOF ends the file cleanly; anything else is broken framing and
			// nothing after it can be decoded.
			return out
		}

		switch v := raw.(type) {
		case map[string]any:
			out = append(out, canonicalize(v))
		case []any:
			for _, elem := range v {
				if obj, ok := elem.(map[string]any); ok {
					out = append(out, canonicalize(obj))
				}
			}
		default:
			// skip primitives
		}
	}
}

// canonicalize rewrites keys to the canonical form used by the accessors:
// lowercase with underscores removed ("userId" and "user_id" → "userid").
func canonicalize(obj map[string]any) Record {
	rec := make(Record, len(obj))
	for k, v := range obj {
		rec[CanonKey(k)] = v
	}
	return rec
}

// CanonKey returns the canonical form of an event field name.
func CanonKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.ReplaceAll(k, "_", "")
}

// String returns the value for key coerced to a string. Numbers format with
// their JSON representation; missing or null values return "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int64 returns the value for key as an int64 when it is an integral number
// (or a string holding one). ok is false otherwise.
func (r Record) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		// "10.0" style integers appear in lax feeds.
		if f, err := v.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Float64 returns the value for key as a float64. ok is false when the value
// is absent or not numeric.
func (r Record) Float64(key string) (float64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
