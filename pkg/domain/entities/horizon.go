package entities

import (
	"fmt"
	"time"
)

// DayOf truncates a timestamp to midnight UTC of its calendar day
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by whole calendar days
func AddDays(t time.Time, days int) time.Time {
	return DayOf(t).AddDate(0, 0, days)
}

// DaysBetween returns the number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

// Horizon is the inclusive planning window split into equal buckets
type Horizon struct {
	Start      time.Time
	End        time.Time
	BucketDays int
}

// NewHorizon creates a validated Horizon with dates truncated to days
func NewHorizon(start, end time.Time, bucketDays int) (Horizon, error) {
	start, end = DayOf(start), DayOf(end)
	if end.Before(start) {
		return Horizon{}, fmt.Errorf("%w: horizon end %s is before start %s",
			ErrValidation, end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	if bucketDays <= 0 {
		return Horizon{}, fmt.Errorf("%w: bucket size must be positive, got %d", ErrValidation, bucketDays)
	}
	return Horizon{Start: start, End: end, BucketDays: bucketDays}, nil
}

// Len returns the number of buckets; the last one may be shorter than BucketDays
func (h Horizon) Len() int {
	days := DaysBetween(h.Start, h.End) + 1
	return (days + h.BucketDays - 1) / h.BucketDays
}

// BucketStart returns the first day of bucket i
func (h Horizon) BucketStart(i int) time.Time {
	return AddDays(h.Start, i*h.BucketDays)
}

// BucketDates returns the first day of every bucket
func (h Horizon) BucketDates() []time.Time {
	dates := make([]time.Time, h.Len())
	for i := range dates {
		dates[i] = h.BucketStart(i)
	}
	return dates
}

// BucketDaysOf lists the calendar days covered by bucket i, clipped to the horizon end
func (h Horizon) BucketDaysOf(i int) []time.Time {
	days := make([]time.Time, 0, h.BucketDays)
	for d := 0; d < h.BucketDays; d++ {
		day := AddDays(h.BucketStart(i), d)
		if day.After(h.End) {
			break
		}
		days = append(days, day)
	}
	return days
}

// BucketIndex maps a date to its bucket. Dates before the horizon land in
// bucket 0 as past due; dates after the end report false.
func (h Horizon) BucketIndex(date time.Time) (int, bool) {
	date = DayOf(date)
	if date.After(h.End) {
		return 0, false
	}
	if date.Before(h.Start) {
		return 0, true
	}
	return DaysBetween(h.Start, date) / h.BucketDays, true
}

// Contains reports whether a date falls within the horizon
func (h Horizon) Contains(date time.Time) bool {
	date = DayOf(date)
	return !date.Before(h.Start) && !date.After(h.End)
}
