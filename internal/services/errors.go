package services

import (
	"errors"

	apierrors "tpcpower/internal/errors"
	"tpcpower/internal/exporter"
)

var (
	// ErrDatasetNotLoaded is reported by readiness checks before the first load
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	// ErrUnknownType is returned when names are requested for a type absent from the dataset
	ErrUnknownType = errors.New("unknown type")
)

// exportRequestError maps exporter parse failures to API errors
func exportRequestError(err error) error {
	switch {
	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return apierrors.UnsupportedFormat(err.Error(), exporter.Extensions())
	case errors.Is(err, exporter.ErrUnknownDataset):
		return apierrors.DatasetNotFound(err.Error(),
			[]string{string(exporter.DatasetFiltered), string(exporter.DatasetAggregated)})
	}
	return err
}
