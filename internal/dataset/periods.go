package dataset

import (
	"sort"
	"time"
)

// TimeRange is a closed date interval of dataset or period coverage.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// periodDefinitions maps each climatological period label to its date range.
// Labels and ranges follow the PCIC metadata standard: "6190" is 1961-1990,
// the future periods are the standard 30-year windows centered on the 2020s,
// 2050s, and 2080s.
var periodDefinitions = map[string]TimeRange{
	"6190": {Start: date(1961, time.January, 1), End: date(1990, time.December, 31)},
	"7100": {Start: date(1971, time.January, 1), End: date(2000, time.December, 31)},
	"8100": {Start: date(1981, time.January, 1), End: date(2010, time.December, 31)},
	"2020": {Start: date(2010, time.January, 1), End: date(2039, time.December, 31)},
	"2050": {Start: date(2040, time.January, 1), End: date(2069, time.December, 31)},
	"2080": {Start: date(2070, time.January, 1), End: date(2099, time.December, 31)},
}

// KnownPeriodLabels returns every recognized period label in lexicographic order.
func KnownPeriodLabels() []string {
	labels := make([]string, 0, len(periodDefinitions))
	for label := range periodDefinitions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
