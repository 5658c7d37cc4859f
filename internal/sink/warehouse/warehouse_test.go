package warehouse

import (
	"testing"

	"starlake/internal/star"
)

func TestRowValues_AlignsWithColumns(t *testing.T) {
	t.Parallel()

	sid := "S1"
	rows := []star.SongplaysRow{{SongplayID: 1, UserID: "10", SongID: &sid}}

	vals := RowValues(rows)
	if len(vals) != 1 {
		t.Fatalf("rows = %d, want 1", len(vals))
	}
	if len(vals[0]) != len(star.Songplays.Columns) {
		t.Fatalf("width = %d, want %d", len(vals[0]), len(star.Songplays.Columns))
	}
	if vals[0][0] != int64(1) {
		t.Errorf("songplay_id = %v", vals[0][0])
	}
	if got, ok := vals[0][4].(*string); !ok || *got != "S1" {
		t.Errorf("song_id = %v", vals[0][4])
	}
}

func TestRowValues_NullableStaysNil(t *testing.T) {
	t.Parallel()

	vals := RowValues([]star.SongplaysRow{{SongplayID: 1}})
	if got := vals[0][4]; got != (*string)(nil) {
		t.Errorf("song_id = %v, want typed nil", got)
	}
}

func TestPgIdent(t *testing.T) {
	t.Parallel()

	if got := pgIdent("songs"); got != `"songs"` {
		t.Errorf("pgIdent(songs) = %s", got)
	}
	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("pgIdent escaping = %s", got)
	}
}
