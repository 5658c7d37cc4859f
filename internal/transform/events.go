// Event-side derivations: the NextSong predicate, the users and time
// dimensions, and the songplays fact table with its catalog match.
package transform

import (
	"math"
	"sort"
	"time"

	"starlake/internal/catalog"
	"starlake/internal/events"
	"starlake/internal/star"
)

// nextSongPage is the predicate value selecting playback events. Events with
// any other page contribute to no derived table.
const nextSongPage = "NextSong"

// NextSong filters the event relation down to playback events. The returned
// slice shares the underlying records (they are never mutated downstream).
func NextSong(recs []events.Record) []events.Record {
	out := make([]events.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.String("page") == nextSongPage {
			out = append(out, rec)
		}
	}
	return out
}

// Users projects playback events into the users dimension. Rows are NOT
// deduplicated: the table is event-level history, so a user changing level
// mid-log appears once per event.
func Users(plays []events.Record) []star.UsersRow {
	rows := make([]star.UsersRow, 0, len(plays))
	for _, rec := range plays {
		rows = append(rows, star.UsersRow{
			UserID:    rec.String("userid"),
			FirstName: rec.String("firstname"),
			LastName:  rec.String("lastname"),
			Gender:    rec.String("gender"),
			Level:     rec.String("level"),
		})
	}
	return rows
}

// StartTime converts an epoch-millisecond timestamp to the second-granularity
// UTC instant used throughout the schema.
func StartTime(tsMillis int64) time.Time {
	return time.Unix(tsMillis/1000, 0).UTC()
}

// Times derives the time dimension: one row per distinct start_time among
// playback events, ordered ascending. Events without a usable ts are skipped
// (they cannot name an instant). Weekday is 1=Sunday … 7=Saturday.
func Times(plays []events.Record) []star.TimeRow {
	seen := make(map[int64]struct{}, len(plays))
	instants := make([]int64, 0, len(plays))

	for _, rec := range plays {
		ts, ok := rec.Int64("ts")
		if !ok {
			continue
		}
		sec := StartTime(ts).Unix()
		if _, dup := seen[sec]; dup {
			continue
		}
		seen[sec] = struct{}{}
		instants = append(instants, sec)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i] < instants[j] })

	rows := make([]star.TimeRow, len(instants))
	for i, sec := range instants {
		t := time.Unix(sec, 0).UTC()
		rows[i] = star.TimeRow{
			StartTime: t,
			Hour:      int32(t.Hour()),
			Day:       int32(t.Day()),
			Month:     int32(t.Month()),
			Year:      int32(t.Year()),
			Weekday:   int32(t.Weekday()) + 1,
		}
	}
	return rows
}

// CatalogIndex is the in-memory match index for the songplays join: catalog
// entries keyed by the hash of their normalized (artist, title) pair.
type CatalogIndex struct {
	byKey map[uint64][]indexEntry
	raw   bool
}

type indexEntry struct {
	artistKey string
	titleKey  string
	songID    string
	artistID  string
	duration  float64
}

// NewCatalogIndex builds the match index over the catalog relation. When raw
// is true, titles and artist names are compared byte for byte instead of
// through MatchKey.
func NewCatalogIndex(recs []catalog.Record, raw bool) *CatalogIndex {
	ix := &CatalogIndex{
		byKey: make(map[uint64][]indexEntry, len(recs)),
		raw:   raw,
	}
	for _, rec := range recs {
		e := indexEntry{
			artistKey: ix.key(rec.ArtistName),
			titleKey:  ix.key(rec.Title),
			songID:    rec.SongID,
			artistID:  rec.ArtistID,
			duration:  rec.Duration,
		}
		h := matchHash(e.artistKey, e.titleKey)
		ix.byKey[h] = append(ix.byKey[h], e)
	}
	return ix
}

func (ix *CatalogIndex) key(s string) string {
	if ix.raw {
		return s
	}
	return MatchKey(s)
}

// Match finds the catalog song for a playback event. A candidate matches when
// its artist and title keys equal the event's and |length-duration| < tol.
// Among several candidates the smallest duration gap wins, ties broken by
// song_id so the result is deterministic.
func (ix *CatalogIndex) Match(song, artist string, length, tol float64) (songID, artistID string, ok bool) {
	artistKey := ix.key(artist)
	titleKey := ix.key(song)

	var (
		best    indexEntry
		bestGap float64
		found   bool
	)
	for _, e := range ix.byKey[matchHash(artistKey, titleKey)] {
		if e.artistKey != artistKey || e.titleKey != titleKey {
			continue // hash collision
		}
		gap := math.Abs(length - e.duration)
		if gap >= tol {
			continue
		}
		if !found || gap < bestGap || (gap == bestGap && e.songID < best.songID) {
			best, bestGap, found = e, gap, true
		}
	}
	if !found {
		return "", "", false
	}
	return best.songID, best.artistID, true
}

// SongplayStats counts join outcomes for the run summary.
type SongplayStats struct {
	Matched   int
	Unmatched int
	Skipped   int // playback events without a usable ts
}

// Songplays derives the fact table with left-outer join semantics: every
// playback event with a usable timestamp produces a row, and song_id /
// artist_id stay null when the catalog match misses. songplay_id is a dense
// sequence over rows ordered by (start_time, session_id, user_id), which
// keeps numbering deterministic for a given input set.
func Songplays(plays []events.Record, ix *CatalogIndex, tol float64) ([]star.SongplaysRow, SongplayStats) {
	rows := make([]star.SongplaysRow, 0, len(plays))
	var stats SongplayStats

	for _, rec := range plays {
		ts, ok := rec.Int64("ts")
		if !ok {
			stats.Skipped++
			continue
		}
		start := StartTime(ts)

		row := star.SongplaysRow{
			StartTime: start,
			UserID:    rec.String("userid"),
			Level:     rec.String("level"),
			Location:  rec.String("location"),
			UserAgent: rec.String("useragent"),
			Year:      int32(start.Year()),
			Month:     int32(start.Month()),
		}
		if sid, ok := rec.Int64("sessionid"); ok {
			row.SessionID = sid
		}

		if length, ok := rec.Float64("length"); ok {
			if songID, artistID, ok := ix.Match(rec.String("song"), rec.String("artist"), length, tol); ok {
				row.SongID = &songID
				row.ArtistID = &artistID
			}
		}
		if row.SongID != nil {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.UserID < b.UserID
	})
	for i := range rows {
		rows[i].SongplayID = int64(i + 1)
	}
	return rows, stats
}
