// Package exporter encodes query results for download.
//
// Two views are exported per query: the filtered rows (filtered_raw) and the
// series aggregated by timestamp (aggregated_by_time). Each can be encoded
// as CSV, Parquet or XLSX. Encoding happens in memory; callers decide where
// the bytes go.
//
// CSV output has a header row, renders timestamps as "2006-01-02 15:04:05"
// and missing measures as empty fields, and carries no byte order mark.
// Parquet output stores time as a millisecond timestamp and both measures as
// optional doubles, so it loads back through the dataset loader unchanged.
//
// Example usage:
//
//	exp := exporter.New(logger, metrics)
//	bundle, err := exp.ExportBundle(ctx, exporter.FormatCSV, result.Filtered, result.Series)
//	if err != nil {
//	    return err
//	}
//	os.WriteFile(bundle.Filtered.FileName, bundle.Filtered.Data, 0o644)
package exporter
