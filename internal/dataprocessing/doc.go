// Package dataprocessing implements the query cycle over a loaded dataset:
// filtering readings by criteria and aggregating the result per timestamp.
//
// # Filtering
//
// A reading is kept when its date and time of day fall inside the inclusive
// bounds, its type is selected, and, when exactly one type is selected and
// Names is non-empty, its site name is selected. With two or more types the
// site list is ignored. Time-of-day ranges cannot cross midnight; ValidateCriteria
// rejects them together with empty type selections and reversed date ranges.
//
// # Aggregation
//
// Aggregate groups rows by exact timestamp and sums capacity and used
// independently. A sum is missing only when all of its contributors are
// missing. Output is sorted by ascending time.
//
// # Usage
//
//	result, err := dataprocessing.NewPipeline(logger, metrics).Run(ctx, table, criteria)
//	if err != nil {
//	    // validation error, see ValidateCriteria
//	}
//	for _, p := range result.Series {
//	    fmt.Println(p.Time, p.CapacitySum, p.UsedSum)
//	}
//
// Filter and Aggregate are pure functions and may be called concurrently on
// the same table.
package dataprocessing
