package crawler

import (
	"errors"
	"fmt"
)

// ErrInvalidYearRange is returned when the requested years are not two
// four-digit years in ascending order.
var ErrInvalidYearRange = errors.New("invalid year range")

// DetailFailure records a movie whose detail page could not be fetched or
// parsed. The movie is absent from the output.
type DetailFailure struct {
	Year  int
	Title string
	URL   string
	Err   error
}

func (f DetailFailure) Error() string {
	return fmt.Sprintf("year %d: movie %q (%s): %v", f.Year, f.Title, f.URL, f.Err)
}

func (f DetailFailure) Unwrap() error { return f.Err }

// ListingFailure records a year whose listing page could not be fetched or
// parsed. The year contributes no records.
type ListingFailure struct {
	Year int
	URL  string
	Err  error
}

func (f ListingFailure) Error() string {
	return fmt.Sprintf("year %d: listing %s: %v", f.Year, f.URL, f.Err)
}

func (f ListingFailure) Unwrap() error { return f.Err }

// ValidateYearRange checks that start and end are four-digit years with
// start <= end.
func ValidateYearRange(start, end int) error {
	if start < 1000 || end > 9999 || start > end {
		return fmt.Errorf("%w: %d..%d", ErrInvalidYearRange, start, end)
	}
	return nil
}
