// Package columnar reads and writes flat Parquet files for the TPC power dataset.
//
// It is a thin layer over parquet-go that exposes a schema as an ordered list
// of Columns and each row as a slice of Values in that order. Only flat
// schemas of strings, doubles, integers, booleans and timestamps are handled;
// nested groups and INT96 columns are reported as KindUnsupported.
//
// Parquet sorts the fields of a group by name, so the Writer records the
// caller's column order in the file's key/value metadata and File.Columns
// restores it when reading.
//
// Example usage:
//
//	w, err := columnar.NewWriter(buf, []columnar.Column{
//		{Name: "time", Kind: columnar.KindTimestamp, Required: true},
//		{Name: "capacity", Kind: columnar.KindDouble},
//	}, nil)
//	err = w.Write([]columnar.Value{columnar.TimeValue(ts), columnar.FloatValue(12.5)})
//	err = w.Close()
package columnar
