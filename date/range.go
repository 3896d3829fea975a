package date

import (
	"fmt"
	"iter"
)

// Range is a span of days, both ends included.
type Range struct{ From, To Date }

// Contains reports whether d falls within the range.
func (r Range) Contains(d Date) bool { return !d.Before(r.From) && !d.After(r.To) }

// Valid reports whether From is not after To.
func (r Range) Valid() bool { return !r.From.After(r.To) }

// Days iterates over every calendar day of the range.
func (r Range) Days() iter.Seq[Date] { return Days(r.From, r.To) }

// Len is the number of calendar days in the range.
func (r Range) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.To.DaysSince(r.From) + 1
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// calendar returns the period r spans exactly, if any.
func (r Range) calendar() (Period, bool) {
	for p := Daily; p <= Yearly; p++ {
		if r.From.StartOf(p) == r.From && r.From.EndOf(p) == r.To {
			return p, true
		}
	}
	return Daily, false
}

// Label is a short name for the range: "2025-W37", "2025-09", "2025-Q3" or "2025" for a
// whole calendar period, and "from..to" otherwise.
func (r Range) Label() string {
	p, ok := r.calendar()
	if !ok {
		return r.String()
	}
	switch p {
	case Weekly:
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	default:
		return r.From.String()
	}
}
