// Package catalog loads the song/artist metadata source.
//
// The source is a directory tree of JSON files, one record per line (a single
// record per file is the common layout; multiple records per file and
// top-level arrays also work). Unlike the event source, the catalog schema is
// fixed: records that do not decode into the Record shape are dropped
// silently, mirroring a DROPMALFORMED read. Only an unreachable source tree
// is an error.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Record is one raw song+artist metadata entry. Latitude and longitude are
// nullable in the source, so they decode into pointers.
type Record struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// Stats summarizes a load: files visited, records kept, records dropped.
type Stats struct {
	Files     int
	Records   int
	Malformed int
}

// MalformedFn is invoked once per dropped record with its file, 1-based
// record index within the file, and the decode error. It exists for logging
// and counters only; dropping is unconditional.
type MalformedFn func(file string, index int, err error)

// Load reads every *.json file under dir (lexical walk order) and returns the
// well-formed records. Malformed records are dropped and reported through
// onMalformed; an unreachable dir or unreadable file is a fatal error.
func Load(ctx context.Context, dir string, onMalformed MalformedFn) ([]Record, Stats, error) {
	var (
		out   []Record
		stats Stats
	)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("catalog source: %w", err)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("catalog source: %s is not a directory", dir)
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
		recs, dropped, err := decodeFile(f, path, onMalformed)
		if err != nil {
			return err
		}
		out = append(out, recs...)
		stats.Records += len(recs)
		stats.Malformed += dropped
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("catalog source: %w", err)
	}

	return out, stats, nil
}

// decodeFile decodes all top-level JSON values in r. Objects become records,
// arrays are expanded element-wise. Values that fail the strict decode are
// dropped; a byte stream that is not JSON at all drops the remainder of the
// file (one report) rather than failing the run.
func decodeFile(r io.Reader, path string, onMalformed MalformedFn) ([]Record, int, error) {
	var (
		out     []Record
		dropped int
		index   int
	)

	report := func(err error) {
		dropped++
		if onMalformed != nil {
			onMalformed(path, index, err)
		}
	}

	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				return out, dropped, nil
			}
			// Broken framing: nothing after this point can be decoded.
			index++
			report(fmt.Errorf("decode: %w", err))
			return out, dropped, nil
		}
		index++

		switch firstByte(raw) {
		case '{':
			if rec, err := decodeRecord(raw); err != nil {
				report(err)
			} else {
				out = append(out, rec)
			}
		case '[':
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err != nil {
				report(fmt.Errorf("decode array: %w", err))
				continue
			}
			for _, elem := range elems {
				index++
				if rec, err := decodeRecord(elem); err != nil {
					report(err)
				} else {
					out = append(out, rec)
				}
			}
		default:
			report(fmt.Errorf("top-level value is not an object"))
		}
	}
}

// decodeRecord performs the strict per-record decode. A type mismatch on any
// declared field, or a record missing its identifying keys, is malformed.
func decodeRecord(raw json.RawMessage) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	if rec.SongID == "" || rec.ArtistID == "" {
		return Record{}, fmt.Errorf("missing song_id or artist_id")
	}
	return rec, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
