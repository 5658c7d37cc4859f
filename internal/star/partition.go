package star

import "fmt"

// Partition returns the hive-style partition directory for a row, matching
// the table's PartitionBy declaration. Unpartitioned tables return "".

func (r SongsRow) Partition() string { return fmt.Sprintf("year=%d", r.Year) }

func (r ArtistsRow) Partition() string { return "" }

func (r UsersRow) Partition() string { return "" }

func (r TimeRow) Partition() string {
	return fmt.Sprintf("year=%d/month=%d", r.Year, r.Month)
}

func (r SongplaysRow) Partition() string {
	return fmt.Sprintf("year=%d/month=%d", r.Year, r.Month)
}
