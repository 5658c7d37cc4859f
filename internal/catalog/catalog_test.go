package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const goodRecord = `{"num_songs":1,"artist_id":"A1","artist_latitude":35.1,"artist_longitude":-90.0,` +
	`"artist_location":"Memphis, TN","artist_name":"Elvis","song_id":"S1","title":"Hound Dog",` +
	`"duration":136.2,"year":1956}`

func TestLoad_WellFormed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "A/A/A/TRAAA.json", goodRecord)
	writeFile(t, dir, "A/B/C/TRABC.json",
		`{"num_songs":1,"artist_id":"A2","artist_latitude":null,"artist_longitude":null,`+
			`"artist_location":"","artist_name":"Beyonce","song_id":"S2","title":"Halo",`+
			`"duration":261.1,"year":2008}`)
	writeFile(t, dir, "notes.txt", "ignored: not a .json file")

	recs, stats, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Files != 2 || stats.Records != 2 || stats.Malformed != 0 {
		t.Fatalf("stats = %+v, want 2 files / 2 records / 0 malformed", stats)
	}

	// WalkDir is lexical, so A/A/A sorts before A/B/C.
	r := recs[0]
	if r.SongID != "S1" || r.ArtistID != "A1" || r.Title != "Hound Dog" {
		t.Errorf("first record = %+v", r)
	}
	if r.Duration != 136.2 || r.Year != 1956 || r.NumSongs != 1 {
		t.Errorf("numeric fields = %+v", r)
	}
	if r.ArtistLatitude == nil || *r.ArtistLatitude != 35.1 {
		t.Errorf("latitude = %v, want 35.1", r.ArtistLatitude)
	}
	if recs[1].ArtistLatitude != nil {
		t.Errorf("null latitude decoded as %v, want nil", *recs[1].ArtistLatitude)
	}
}

func TestLoad_DropsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// One good line, one with a string where a number belongs, one missing
	// its identifying keys, one that is not JSON at all.
	writeFile(t, dir, "mixed.json",
		goodRecord+"\n"+
			`{"artist_id":"A9","song_id":"S9","title":"x","duration":"not a number","year":2001,"num_songs":1,"artist_name":"y","artist_location":""}`+"\n"+
			`{"title":"orphan","duration":1.0}`+"\n"+
			`this is not json`)

	var reported []string
	onMalformed := func(file string, index int, err error) {
		reported = append(reported, err.Error())
	}

	recs, stats, err := Load(context.Background(), dir, onMalformed)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 || recs[0].SongID != "S1" {
		t.Fatalf("records = %+v, want only S1", recs)
	}
	if stats.Malformed != 3 {
		t.Errorf("malformed = %d, want 3 (reports: %v)", stats.Malformed, reported)
	}
	if len(reported) != stats.Malformed {
		t.Errorf("reported %d drops, counted %d", len(reported), stats.Malformed)
	}
}

func TestLoad_TopLevelArray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "batch.json", "["+goodRecord+","+goodRecord+"]")

	recs, stats, err := Load(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 || stats.Records != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
}

func TestLoad_MissingDirIsFatal(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	if err == nil {
		t.Fatalf("expected error for missing source dir")
	}
}

func TestLoad_FileNotDirIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "plain.json", goodRecord)

	_, _, err := Load(context.Background(), filepath.Join(dir, "plain.json"), nil)
	if err == nil {
		t.Fatalf("expected error when source path is a file")
	}
}

func TestLoad_EmptyTree(t *testing.T) {
	t.Parallel()

	recs, stats, err := Load(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 0 || stats.Files != 0 {
		t.Errorf("expected empty result, got %d records from %d files", len(recs), stats.Files)
	}
}
