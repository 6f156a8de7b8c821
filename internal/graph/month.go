package graph

import "time"

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month int
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Bounds returns the first and last instant of the month in UTC.
func (m Month) Bounds() (time.Time, time.Time) {
	start := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// MonthsForRange returns the last n months up to and including the month of
// now, oldest first.
func MonthsForRange(n int, now time.Time) []Month {
	now = now.UTC()
	year, month := now.Year(), int(now.Month())
	months := make([]Month, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, Month{Year: year, Month: month})
		month--
		if month == 0 {
			month = 12
			year--
		}
	}
	for i, j := 0, len(months)-1; i < j; i, j = i+1, j-1 {
		months[i], months[j] = months[j], months[i]
	}
	return months
}
