package booking

import "time"

// dateLayout is how day-granular dates travel through the API and the
// database.
const dateLayout = "2006-01-02"

// Day truncates a timestamp to UTC midnight.  All reservation dates are
// normalized through this before they reach the store.
func Day(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is a half-open day interval [Start, End): End is excluded, so a
// rental returning on the morning another begins does not overlap it.
type DateRange struct {
    Start time.Time `json:"start"`
    End   time.Time `json:"end"`
}

// NewDateRange normalizes both bounds to day granularity and enforces
// End > Start.  A zero-length or inverted window yields ErrInvalidRange.
func NewDateRange(start, end time.Time) (DateRange, error) {
    r := DateRange{Start: Day(start), End: Day(end)}
    if !r.End.After(r.Start) {
        return DateRange{}, ErrInvalidRange
    }
    return r, nil
}

// Overlaps reports whether two half-open intervals share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
    return r.Start.Before(o.End) && r.End.After(o.Start)
}

// Contains reports whether the given day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
    return !day.Before(r.Start) && day.Before(r.End)
}

// Days returns the number of days covered by the range.
func (r DateRange) Days() int {
    return int(r.End.Sub(r.Start).Hours() / 24)
}
