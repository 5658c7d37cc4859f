package events

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

func TestLoad_NDJSONAndKeyCanonicalization(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "2018/11/events-1.json",
		`{"page":"NextSong","ts":1541721000000,"userId":"10","firstName":"Ann","sessionId":5,"length":121.0}`+"\n"+
			`{"page":"Login","ts":1541721001000,"user_id":"11"}`)

	recs, stats, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Files != 1 || stats.Records != 2 || len(recs) != 2 {
		t.Fatalf("stats = %+v records=%d, want 1 file / 2 records", stats, len(recs))
	}

	// camelCase and snake_case both land on the canonical key.
	if got := recs[0].String("userid"); got != "10" {
		t.Errorf("userid = %q, want 10", got)
	}
	if got := recs[1].String("userid"); got != "11" {
		t.Errorf("user_id variant: userid = %q, want 11", got)
	}
	if got := recs[0].String("firstname"); got != "Ann" {
		t.Errorf("firstname = %q, want Ann", got)
	}
}

func TestLoad_NothingDropped(t *testing.T) {
	t.Parallel()

	// Structurally inconsistent records load fine; filtering is downstream.
	dir := t.TempDir()
	writeFile(t, dir, "odd.json",
		`{"page":"NextSong"}`+"\n"+
			`{"completely":"unrelated","shape":[1,2,3]}`+"\n"+
			`42`)

	recs, _, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2 (objects only, primitive skipped)", len(recs))
	}
}

func TestLoad_BrokenFramingDropsFileRemainder(t *testing.T) {
	t.Parallel()

	// A truncated file must not abort the run: the decodable prefix is kept,
	// the rest of that file is dropped, and the walk continues.
	dir := t.TempDir()
	writeFile(t, dir, "a-good.json",
		`{"page":"NextSong","userId":"10"}`)
	writeFile(t, dir, "b-junk.json",
		`{"page":"NextSong","userId":"11"}`+"\n"+
			`{"page":"NextSong","userId":`)
	writeFile(t, dir, "c-after.json",
		`{"page":"NextSong","userId":"12"}`)

	recs, stats, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Files != 3 {
		t.Errorf("files = %d, want 3", stats.Files)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3 (prefix of the broken file kept, later files read)", len(recs))
	}
	if got := recs[2].String("userid"); got != "12" {
		t.Errorf("file after the broken one not loaded: userid = %q, want 12", got)
	}
}

func TestLoad_MissingDirIsFatal(t *testing.T) {
	t.Parallel()

	if _, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing source dir")
	}
}

func TestRecord_Accessors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "one.json",
		`{"ts":1541721000000,"length":121.5,"sessionId":5,"userId":10,"level":"paid","flag":true}`)

	recs, _, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := recs[0]

	if ts, ok := r.Int64("ts"); !ok || ts != 1541721000000 {
		t.Errorf("ts = %d ok=%v, want 1541721000000", ts, ok)
	}
	if l, ok := r.Float64("length"); !ok || l != 121.5 {
		t.Errorf("length = %v ok=%v, want 121.5", l, ok)
	}
	if sid, ok := r.Int64("sessionid"); !ok || sid != 5 {
		t.Errorf("sessionid = %d ok=%v, want 5", sid, ok)
	}
	// Numeric user ids stringify for the dimension key.
	if got := r.String("userid"); got != "10" {
		t.Errorf("userid = %q, want 10", got)
	}
	if got := r.String("level"); got != "paid" {
		t.Errorf("level = %q, want paid", got)
	}
	if got := r.String("flag"); got != "true" {
		t.Errorf("flag = %q, want true", got)
	}
	if _, ok := r.Int64("missing"); ok {
		t.Errorf("missing key should not coerce")
	}
	if _, ok := r.Float64("level"); ok {
		t.Errorf("non-numeric string should not coerce to float")
	}
}

func TestRecord_Int64FromFloatString(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"sessionId":5.0,"userId":"  12  "}`)

	recs, _, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sid, ok := recs[0].Int64("sessionid"); !ok || sid != 5 {
		t.Errorf("sessionid from 5.0 = %d ok=%v, want 5", sid, ok)
	}
	if uid, ok := recs[0].Int64("userid"); !ok || uid != 12 {
		t.Errorf("userid from padded string = %d ok=%v, want 12", uid, ok)
	}
}
