package pricing

import (
	"fmt"
	"time"
)

// RentalDays counts the calendar days between start and end, both inclusive.
// Time of day and location are ignored; a same-day rental is one day.
func RentalDays(start, end time.Time) (int, error) {
	startDate := dateOnly(start)
	endDate := dateOnly(end)
	if endDate.Before(startDate) {
		return 0, fmt.Errorf("%w: rental ends %s before it starts %s",
			ErrInvalidQuantityOrDuration, endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}
	return int(endDate.Sub(startDate).Hours()/24) + 1, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
