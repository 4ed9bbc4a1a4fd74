package metdata

import "time"

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	From time.Time
	To   time.Time
}

// SplitByYear splits [from, to] at calendar year boundaries. A range inside one
// year is returned as is; otherwise the result is the rest of the first year,
// every whole year in between and the start of the last year, in ascending order.
func SplitByYear(from, to time.Time) []DateRange {
	from = truncateDate(from)
	to = truncateDate(to)

	startYear, endYear := from.Year(), to.Year()
	if startYear == endYear {
		return []DateRange{{From: from, To: to}}
	}

	ranges := make([]DateRange, 0, endYear-startYear+1)
	ranges = append(ranges, DateRange{From: from, To: lastDayOf(startYear)})
	for year := startYear + 1; year < endYear; year++ {
		ranges = append(ranges, DateRange{From: firstDayOf(year), To: lastDayOf(year)})
	}
	ranges = append(ranges, DateRange{From: firstDayOf(endYear), To: to})

	return ranges
}

func firstDayOf(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func lastDayOf(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
