// This file contains the batch run execution logic: it wires catalog and
// event loading, star-table derivation, and the parquet (plus optional
// Postgres) sinks together. The CLI layer stays thin; everything here depends
// only on the internal packages and never on driver details directly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"starlake/internal/catalog"
	"starlake/internal/config"
	"starlake/internal/events"
	"starlake/internal/metrics"
	"starlake/internal/sink"
	"starlake/internal/sink/warehouse"
	"starlake/internal/star"
	"starlake/internal/transform"
)

const sampleErrs = 3

// counters holds cross-goroutine statistics for one run.
//
// All fields are updated atomically; the table-derivation goroutines write
// them concurrently.
type counters struct {
	catalogRecords   atomic.Int64 // well-formed catalog records loaded
	catalogMalformed atomic.Int64 // catalog records dropped by the strict schema
	eventRecords     atomic.Int64 // event records loaded (nothing is dropped)
	plays            atomic.Int64 // events surviving the playback filter
	skipped          atomic.Int64 // playback events without a usable timestamp
	matched          atomic.Int64 // songplays with a catalog hit
	unmatched        atomic.Int64 // songplays written with null song/artist ids
	tableRows        atomic.Int64 // total rows written across all tables
}

// runtimeConfig contains the resolved concurrency configuration for a run.
// Values are derived from the pipeline spec with optional environment
// variable overrides (12-factor style).
type runtimeConfig struct {
	tableWorkers int
}

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	loadCatalogFn = catalog.Load
	loadEventsFn  = events.Load

	openWarehouseFn = func(ctx context.Context, dsn string) (tableSink, error) {
		return warehouse.Open(ctx, dsn)
	}
)

// tableSink is the minimal interface of the optional warehouse used by run.
// It is satisfied by *warehouse.Warehouse.
type tableSink interface {
	Replace(ctx context.Context, table star.Table, rows [][]any) (int64, error)
	Close()
}

// run executes a full catalog+events → star schema → parquet run.
//
// Stages:
//
//  1. Load the song catalog (strict schema; malformed records dropped and
//     sampled into the log) and derive+write songs and artists.
//  2. Load the event log (permissive schema), filter to playback events, and
//     derive+write users, times, and songplays.
//
// Independent table derivations within a stage run concurrently, bounded by
// runtime.table_workers. Any table failure cancels the remaining tables in
// its stage; tables already renamed into place are left intact.
func run(ctx context.Context, spec config.Pipeline) error {
	rt := newRuntimeConfig(spec)

	log.Printf("run runtime: table_workers=%d tolerance=%.1fs normalize_keys=%v",
		rt.tableWorkers, spec.Join.Tolerance(), spec.Join.NormalizeKeys)

	var stats counters
	malformedAgg := newErrAgg(sampleErrs) // aggregated catalog drops (first N messages)

	var wh tableSink
	if spec.Warehouse.DSN != "" {
		log.Printf("warehouse: connecting with DSN: %s", spec.Warehouse.DSN)
		w, err := openWarehouseFn(ctx, spec.Warehouse.DSN)
		if err != nil {
			return fmt.Errorf("warehouse open: %w", err)
		}
		defer w.Close()
		wh = w
	}

	// Stage 1: catalog → songs, artists.
	start := time.Now()
	recs, cstats, err := loadCatalogFn(ctx, spec.Catalog.Path, func(file string, index int, err error) {
		malformedAgg.add(fmt.Sprintf("%s record %d: %v", file, index, err))
	})
	metrics.RecordStep(spec.Job, "catalog_load", err, time.Since(start))
	if err != nil {
		return err
	}
	stats.catalogRecords.Store(int64(cstats.Records))
	stats.catalogMalformed.Store(int64(cstats.Malformed))
	metrics.RecordRows(spec.Job, "catalog_records", int64(cstats.Records))
	metrics.RecordRows(spec.Job, "catalog_malformed", int64(cstats.Malformed))
	log.Printf("catalog: files=%d records=%d malformed=%d", cstats.Files, cstats.Records, cstats.Malformed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.tableWorkers)
	g.Go(func() error {
		return writeTable(gctx, spec, wh, &stats, star.Songs, transform.Songs(recs))
	})
	g.Go(func() error {
		return writeTable(gctx, spec, wh, &stats, star.Artists, transform.Artists(recs))
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Stage 2: events → users, times, songplays.
	start = time.Now()
	evs, estats, err := loadEventsFn(ctx, spec.Events.Path)
	metrics.RecordStep(spec.Job, "event_load", err, time.Since(start))
	if err != nil {
		return err
	}
	plays := transform.NextSong(evs)
	stats.eventRecords.Store(int64(estats.Records))
	stats.plays.Store(int64(len(plays)))
	metrics.RecordRows(spec.Job, "events", int64(estats.Records))
	metrics.RecordRows(spec.Job, "plays", int64(len(plays)))
	log.Printf("events: files=%d records=%d plays=%d", estats.Files, estats.Records, len(plays))

	ix := transform.NewCatalogIndex(recs, !spec.Join.NormalizeKeys)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(rt.tableWorkers)
	g.Go(func() error {
		return writeTable(gctx, spec, wh, &stats, star.Users, transform.Users(plays))
	})
	g.Go(func() error {
		return writeTable(gctx, spec, wh, &stats, star.Times, transform.Times(plays))
	})
	g.Go(func() error {
		rows, sp := transform.Songplays(plays, ix, spec.Join.Tolerance())
		stats.matched.Store(int64(sp.Matched))
		stats.unmatched.Store(int64(sp.Unmatched))
		stats.skipped.Store(int64(sp.Skipped))
		metrics.RecordRows(spec.Job, "songplays_matched", int64(sp.Matched))
		metrics.RecordRows(spec.Job, "songplays_unmatched", int64(sp.Unmatched))
		return writeTable(gctx, spec, wh, &stats, star.Songplays, rows)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logMalformedSummary(malformedAgg)
	logGlobalSummary(&stats)

	return nil
}

// writeTable persists one derived table to parquet and, when a warehouse is
// configured, mirrors it into Postgres. Step latency and row counts go to the
// metrics backend.
func writeTable[T interface {
	sink.Partitioned
	Values() []any
}](ctx context.Context, spec config.Pipeline, wh tableSink, stats *counters, table star.Table, rows []T) error {
	start := time.Now()

	err := sink.WriteTable(spec.Output.Path, table, rows)
	if err == nil && wh != nil {
		_, err = wh.Replace(ctx, table, warehouse.RowValues(rows))
	}
	metrics.RecordStep(spec.Job, table.Name, err, time.Since(start))
	if err != nil {
		return err
	}

	stats.tableRows.Add(int64(len(rows)))
	metrics.RecordTable(spec.Job, table.Name, int64(len(rows)))
	log.Printf("table=%s rows=%d elapsed=%s", table.Name, len(rows), time.Since(start).Truncate(time.Millisecond))
	return nil
}

// newRuntimeConfig resolves the runtime configuration for a run using the
// pipeline spec and environment-variable fallbacks.
func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	return runtimeConfig{
		tableWorkers: pickInt(spec.Runtime.TableWorkers, getenvInt("STARLAKE_TABLE_WORKERS", 3)),
	}
}

// logMalformedSummary prints aggregated catalog-drop errors. Only the first N
// unique messages (per errAgg) are shown.
func logMalformedSummary(agg *errAgg) {
	if agg.count == 0 {
		return
	}
	log.Printf("catalog drops: %d (showing first %d)", agg.count, len(agg.first))
	for i, s := range agg.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}

// logGlobalSummary prints final aggregated statistics for the run.
//
// Invariants for playback events are:
//
//	plays == songplays + skipped
//	songplays == matched + unmatched
//
// where skipped counts playback events without a usable timestamp.
func logGlobalSummary(c *counters) {
	plays := c.plays.Load()
	skipped := c.skipped.Load()
	matched := c.matched.Load()
	unmatched := c.unmatched.Load()

	log.Printf(
		"summary: catalog_records=%d catalog_malformed=%d events=%d plays=%d skipped=%d songplays=%d matched=%d unmatched=%d table_rows=%d",
		c.catalogRecords.Load(),
		c.catalogMalformed.Load(),
		c.eventRecords.Load(),
		plays,
		skipped,
		matched+unmatched,
		matched,
		unmatched,
		c.tableRows.Load(),
	)

	// Optional sanity check during development to ensure conservation.
	if accounted := matched + unmatched + skipped; accounted != plays {
		log.Printf(
			"WARNING: row accounting mismatch: plays=%d accounted=%d (delta=%d)",
			plays,
			accounted,
			plays-accounted,
		)
	}
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg aggregates errors
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}
func (a *errAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}
