// Package transform derives the star-schema tables from the raw relations.
// Every function here is a pure projection/derivation: inputs are read-only
// slices, outputs are freshly allocated, and no function touches storage.
package transform

import (
	"starlake/internal/catalog"
	"starlake/internal/star"
)

// Songs projects the catalog relation into the songs dimension.
//
// Duplicate song_id entries collapse to a single row (last write wins in
// input order, which is deterministic because the loader walks files
// lexically); output order is first-seen order.
func Songs(recs []catalog.Record) []star.SongsRow {
	rows := make([]star.SongsRow, 0, len(recs))
	seen := make(map[string]int, len(recs))

	for _, rec := range recs {
		row := star.SongsRow{
			SongID:   rec.SongID,
			Title:    rec.Title,
			ArtistID: rec.ArtistID,
			Year:     int32(rec.Year),
			Duration: rec.Duration,
		}
		if i, ok := seen[rec.SongID]; ok {
			rows[i] = row
			continue
		}
		seen[rec.SongID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// Artists projects the catalog relation into the artists dimension, renaming
// the artist_* source fields. Duplicate artist_id entries collapse the same
// way Songs does (a prolific artist appears once per song in the catalog).
func Artists(recs []catalog.Record) []star.ArtistsRow {
	rows := make([]star.ArtistsRow, 0, len(recs))
	seen := make(map[string]int, len(recs))

	for _, rec := range recs {
		row := star.ArtistsRow{
			ArtistID:  rec.ArtistID,
			Name:      rec.ArtistName,
			Location:  rec.ArtistLocation,
			Latitude:  rec.ArtistLatitude,
			Longitude: rec.ArtistLongitude,
		}
		if i, ok := seen[rec.ArtistID]; ok {
			rows[i] = row
			continue
		}
		seen[rec.ArtistID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}
