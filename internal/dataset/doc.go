// Package dataset loads the cleaned TPC power dataset and keeps it in memory.
//
// The Loader reads a Parquet file into a domain.Table. The time column may be
// text (as written by Convert) or a Parquet timestamp (as written by the
// columnar export); rows whose time cannot be parsed are dropped. The
// capacity and used measures go through CoerceFloat, the same routine
// Convert uses, so a value that is missing after conversion is missing after
// loading too.
//
// The Cache holds one Snapshot at a time behind an atomic pointer. Readers
// never block; a load happens on first use, after Invalidate, or when
// watching is enabled and the file's size or modification time changed.
//
// Example usage:
//
//	loader := dataset.NewLoader(logger, dataset.WithMetrics(metrics))
//	cache := dataset.NewCache(loader, "data/clean.parquet", logger, dataset.WithWatch(true))
//	snap, err := cache.Get(ctx)
package dataset
