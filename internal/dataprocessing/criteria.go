package dataprocessing

import (
	apperrors "tpcpower/internal/errors"
	"tpcpower/pkg/contracts/domain"
)

// Criteria validation failures. Validate returns fresh errors that match
// these with errors.Is.
var (
	ErrNoTypesSelected  = apperrors.NewAppValidationError("at least one type must be selected")
	ErrInvalidDateRange = apperrors.NewAppValidationError("date_from must not be after date_to")
	ErrInvalidTimeRange = apperrors.NewAppValidationError("time_from must not be after time_to")
)

// ValidateCriteria checks the preconditions of Filter. Time ranges that
// cross midnight are rejected; callers needing one must split it.
func ValidateCriteria(c domain.FilterCriteria) error {
	if len(c.Types) == 0 {
		return apperrors.NewFieldValidationError("types", ErrNoTypesSelected.Message)
	}
	if c.DateFrom > c.DateTo {
		return apperrors.NewFieldValidationError("date_from", ErrInvalidDateRange.Message).
			WithContext("date_from", c.DateFrom.String()).
			WithContext("date_to", c.DateTo.String())
	}
	if c.TimeFrom > c.TimeTo {
		return apperrors.NewFieldValidationError("time_from", ErrInvalidTimeRange.Message).
			WithContext("time_from", c.TimeFrom.String()).
			WithContext("time_to", c.TimeTo.String())
	}
	return nil
}
