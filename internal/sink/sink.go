// Package sink persists derived tables as partitioned, snappy-compressed
// parquet under the output root.
//
// Layout: each table owns baseDir/<table>/, with hive-style partition
// subdirectories (year=2018/month=11/) when the table declares partition
// columns. Partition columns stay materialized in the files as well, so the
// output is self-describing for readers that do not parse hive paths.
//
// Writes are create-or-replace per table: everything lands in a sibling temp
// directory first, then the previous table directory is removed and the temp
// directory renamed into place. Earlier tables are left intact if a later
// table's write fails (the pipeline is not transactional across tables).
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/zeebo/xxh3"

	"starlake/internal/star"
)

// Partitioned is implemented by every star row type: Partition returns the
// row's relative partition directory ("" for unpartitioned tables).
type Partitioned interface {
	Partition() string
}

// WriteTable writes rows for table under baseDir, replacing any previous
// output for that table. Rows are grouped by partition path; each partition
// becomes one deterministically named file.
func WriteTable[T Partitioned](baseDir string, table star.Table, rows []T) error {
	tableDir := filepath.Join(baseDir, table.Name)
	tmpDir := tableDir + ".tmp"

	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("sink %s: clear temp: %w", table.Name, err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("sink %s: %w", table.Name, err)
	}

	// Group rows by partition, keeping partition order deterministic.
	groups := make(map[string][]T)
	for _, r := range rows {
		p := r.Partition()
		groups[p] = append(groups[p], r)
	}
	parts := make([]string, 0, len(groups))
	for p := range groups {
		parts = append(parts, p)
	}
	sort.Strings(parts)

	for _, p := range parts {
		dir := tmpDir
		if p != "" {
			dir = filepath.Join(tmpDir, filepath.FromSlash(p))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("sink %s: partition %s: %w", table.Name, p, err)
			}
		}
		path := filepath.Join(dir, partFileName(table.Name, p))
		if err := writeParquet(path, groups[p]); err != nil {
			return fmt.Errorf("sink %s: partition %q: %w", table.Name, p, err)
		}
	}

	// Swap the finished tree into place.
	if err := os.RemoveAll(tableDir); err != nil {
		return fmt.Errorf("sink %s: remove previous output: %w", table.Name, err)
	}
	if err := os.Rename(tmpDir, tableDir); err != nil {
		return fmt.Errorf("sink %s: swap output: %w", table.Name, err)
	}
	return nil
}

// partFileName derives a stable file name from the table and partition path
// so that reruns on unchanged input produce byte-identical trees.
func partFileName(table, partition string) string {
	return fmt.Sprintf("part-00000-%016x.parquet", xxh3.HashString(table+"/"+partition))
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}
