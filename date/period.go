package date

import (
	"fmt"
	"strings"
)

// Period is a calendar period: a day, an ISO week (Monday to Sunday), a month, a quarter or
// a year.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

var periodNames = [...]string{"daily", "weekly", "monthly", "quarterly", "yearly"}

func (p Period) String() string {
	if p < Daily || p > Yearly {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p]
}

// ParsePeriod parses a period name, either the adjective ("monthly") or the noun ("month").
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range periodNames {
		if s == name || s == nouns[p] {
			return Period(p), nil
		}
	}
	return Daily, fmt.Errorf("unknown period %q, want one of %s", s, strings.Join(nouns[:], ", "))
}

var nouns = [...]string{"day", "week", "month", "quarter", "year"}

// ToDate returns the range from the start of the period containing d until d.
func (p Period) ToDate(d Date) Range { return Range{From: d.StartOf(p), To: d} }
