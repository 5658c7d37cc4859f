// Package star declares the analytical schema produced by the pipeline: four
// dimension tables and one fact table. The struct tags double as the parquet
// schema; Table values carry the metadata the sinks need (output name,
// partition columns, warehouse column order and DDL).
package star

import "time"

// SongsRow is a dimension row describing one catalog song.
type SongsRow struct {
	SongID   string  `parquet:"song_id"`
	Title    string  `parquet:"title"`
	ArtistID string  `parquet:"artist_id"`
	Year     int32   `parquet:"year"`
	Duration float64 `parquet:"duration"`
}

// ArtistsRow is a dimension row describing one artist. Coordinates are
// nullable in the source and stay nullable here.
type ArtistsRow struct {
	ArtistID  string   `parquet:"artist_id"`
	Name      string   `parquet:"name"`
	Location  string   `parquet:"location"`
	Latitude  *float64 `parquet:"latitude,optional"`
	Longitude *float64 `parquet:"longitude,optional"`
}

// UsersRow is a dimension row describing one user as seen by one qualifying
// event. The table is event-level history: a user appearing in many events
// (possibly changing level) appears many times.
type UsersRow struct {
	UserID    string `parquet:"user_id"`
	FirstName string `parquet:"first_name"`
	LastName  string `parquet:"last_name"`
	Gender    string `parquet:"gender"`
	Level     string `parquet:"level"`
}

// TimeRow is a dimension row for one distinct playback instant, decomposed
// into calendar components. Weekday follows the 1=Sunday … 7=Saturday
// convention.
type TimeRow struct {
	StartTime time.Time `parquet:"start_time,timestamp(millisecond)"`
	Hour      int32     `parquet:"hour"`
	Day       int32     `parquet:"day"`
	Month     int32     `parquet:"month"`
	Year      int32     `parquet:"year"`
	Weekday   int32     `parquet:"weekday"`
}

// SongplaysRow is the fact table row: one playback event. SongID and ArtistID
// are null when the catalog match missed (left-outer semantics). Year and
// Month are derived from StartTime and also serve as partition columns.
type SongplaysRow struct {
	SongplayID int64     `parquet:"songplay_id"`
	StartTime  time.Time `parquet:"start_time,timestamp(millisecond)"`
	UserID     string    `parquet:"user_id"`
	Level      string    `parquet:"level"`
	SongID     *string   `parquet:"song_id,optional"`
	ArtistID   *string   `parquet:"artist_id,optional"`
	SessionID  int64     `parquet:"session_id"`
	Location   string    `parquet:"location"`
	UserAgent  string    `parquet:"user_agent"`
	Year       int32     `parquet:"year"`
	Month      int32     `parquet:"month"`
}

// Table carries per-table sink metadata. Columns is the warehouse column
// order (it matches the Values methods below); DDL is the warehouse
// create-table statement.
type Table struct {
	Name        string
	Columns     []string
	PartitionBy []string
	DDL         string
}

var (
	Songs = Table{
		Name:        "songs",
		Columns:     []string{"song_id", "title", "artist_id", "year", "duration"},
		PartitionBy: []string{"year"},
		DDL: `CREATE TABLE songs (
	song_id    text PRIMARY KEY,
	title      text NOT NULL,
	artist_id  text NOT NULL,
	year       integer NOT NULL,
	duration   double precision NOT NULL
)`,
	}

	Artists = Table{
		Name:    "artists",
		Columns: []string{"artist_id", "name", "location", "latitude", "longitude"},
		DDL: `CREATE TABLE artists (
	artist_id  text PRIMARY KEY,
	name       text NOT NULL,
	location   text,
	latitude   double precision,
	longitude  double precision
)`,
	}

	Users = Table{
		Name:    "users",
		Columns: []string{"user_id", "first_name", "last_name", "gender", "level"},
		DDL: `CREATE TABLE users (
	user_id    text NOT NULL,
	first_name text,
	last_name  text,
	gender     text,
	level      text
)`,
	}

	Times = Table{
		Name:        "times",
		Columns:     []string{"start_time", "hour", "day", "month", "year", "weekday"},
		PartitionBy: []string{"year", "month"},
		DDL: `CREATE TABLE times (
	start_time timestamptz PRIMARY KEY,
	hour       integer NOT NULL,
	day        integer NOT NULL,
	month      integer NOT NULL,
	year       integer NOT NULL,
	weekday    integer NOT NULL
)`,
	}

	Songplays = Table{
		Name: "songplays",
		Columns: []string{
			"songplay_id", "start_time", "user_id", "level", "song_id",
			"artist_id", "session_id", "location", "user_agent", "year", "month",
		},
		PartitionBy: []string{"year", "month"},
		DDL: `CREATE TABLE songplays (
	songplay_id bigint PRIMARY KEY,
	start_time  timestamptz NOT NULL,
	user_id     text,
	level       text,
	song_id     text,
	artist_id   text,
	session_id  bigint,
	location    text,
	user_agent  text,
	year        integer NOT NULL,
	month       integer NOT NULL
)`,
	}
)

// Values returns the row in Songs.Columns order for the warehouse sink.
func (r SongsRow) Values() []any {
	return []any{r.SongID, r.Title, r.ArtistID, r.Year, r.Duration}
}

// Values returns the row in Artists.Columns order.
func (r ArtistsRow) Values() []any {
	return []any{r.ArtistID, r.Name, r.Location, r.Latitude, r.Longitude}
}

// Values returns the row in Users.Columns order.
func (r UsersRow) Values() []any {
	return []any{r.UserID, r.FirstName, r.LastName, r.Gender, r.Level}
}

// Values returns the row in Times.Columns order.
func (r TimeRow) Values() []any {
	return []any{r.StartTime, r.Hour, r.Day, r.Month, r.Year, r.Weekday}
}

// Values returns the row in Songplays.Columns order.
func (r SongplaysRow) Values() []any {
	return []any{
		r.SongplayID, r.StartTime, r.UserID, r.Level, r.SongID,
		r.ArtistID, r.SessionID, r.Location, r.UserAgent, r.Year, r.Month,
	}
}
