package validation

import (
	"errors"
	"time"

	"github.com/kjstillabower/surfsup-climate-api/internal/models"
)

// dateInputLayout accepts zero-padded and unpadded month/day ("2017-08-03", "2017-8-3").
const dateInputLayout = "2006-1-2"

const isoLayout = "2006-01-02"

// RangeError is a date-range rejection. Its message and key are served verbatim
// to clients, so neither follows Go error-string conventions.
type RangeError struct {
	key     string
	message string
	reason  string
}

func (e *RangeError) Error() string { return e.message }

// Reason is a stable label for metrics.
func (e *RangeError) Reason() string { return e.reason }

// Body returns the single-element error list served for the rejection.
// Format errors use the key "error" and range errors "Error"; existing clients depend on both.
func (e *RangeError) Body() []map[string]string {
	return []map[string]string{{e.key: e.message}}
}

var (
	ErrInvalidStartDate = &RangeError{"error", "Invalid date format for start date", "invalid_start_date"}
	ErrInvalidEndDate   = &RangeError{"error", "Invalid date format for end date", "invalid_end_date"}
	ErrStartOutOfRange  = &RangeError{"Error", "Start date outside of dataset range", "start_out_of_range"}
	ErrEndOutOfRange    = &RangeError{"Error", "End date outside of dataset range", "end_out_of_range"}
	ErrEndBeforeStart   = &RangeError{"Error", "End date must occur after the start date", "end_before_start"}
)

// DateRange is a validated inclusive range in ISO form.
type DateRange struct {
	Start string
	End   string
}

// ParseDate parses a user-supplied date and returns it in ISO form.
func ParseDate(input string) (string, error) {
	d, err := time.Parse(dateInputLayout, input)
	if err != nil {
		return "", err
	}
	return d.Format(isoLayout), nil
}

// ValidateRange applies the checks in order and returns the first failure as a *RangeError.
// end == "" means the range runs to bounds.MostRecent.
// Bounds dates are ISO, so string comparison is date comparison.
func ValidateRange(start, end string, bounds models.DateBounds) (DateRange, error) {
	startDate, err := ParseDate(start)
	if err != nil {
		return DateRange{}, ErrInvalidStartDate
	}
	endDate := bounds.MostRecent
	if end != "" {
		if endDate, err = ParseDate(end); err != nil {
			return DateRange{}, ErrInvalidEndDate
		}
	}
	if !within(startDate, bounds) {
		return DateRange{}, ErrStartOutOfRange
	}
	if !within(endDate, bounds) {
		return DateRange{}, ErrEndOutOfRange
	}
	if startDate > endDate {
		return DateRange{}, ErrEndBeforeStart
	}
	return DateRange{Start: startDate, End: endDate}, nil
}

func within(date string, bounds models.DateBounds) bool {
	return date >= bounds.Oldest && date <= bounds.MostRecent
}

// AsRangeError unwraps err to a *RangeError if it is one.
func AsRangeError(err error) (*RangeError, bool) {
	var re *RangeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
