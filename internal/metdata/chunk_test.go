package metdata

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSplitByYear(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want []DateRange
	}{
		{
			name: "single day",
			from: day(2015, 11, 10),
			to:   day(2015, 11, 10),
			want: []DateRange{{day(2015, 11, 10), day(2015, 11, 10)}},
		},
		{
			name: "within one year",
			from: day(2015, 11, 10),
			to:   day(2015, 11, 13),
			want: []DateRange{{day(2015, 11, 10), day(2015, 11, 13)}},
		},
		{
			name: "two adjacent years",
			from: day(2014, 12, 30),
			to:   day(2015, 1, 2),
			want: []DateRange{
				{day(2014, 12, 30), day(2014, 12, 31)},
				{day(2015, 1, 1), day(2015, 1, 2)},
			},
		},
		{
			name: "whole years in between",
			from: day(2010, 6, 15),
			to:   day(2013, 2, 1),
			want: []DateRange{
				{day(2010, 6, 15), day(2010, 12, 31)},
				{day(2011, 1, 1), day(2011, 12, 31)},
				{day(2012, 1, 1), day(2012, 12, 31)},
				{day(2013, 1, 1), day(2013, 2, 1)},
			},
		},
		{
			name: "from is a new year's eve",
			from: day(2014, 12, 31),
			to:   day(2015, 1, 1),
			want: []DateRange{
				{day(2014, 12, 31), day(2014, 12, 31)},
				{day(2015, 1, 1), day(2015, 1, 1)},
			},
		},
		{
			name: "time of day is dropped",
			from: time.Date(2015, 3, 1, 13, 30, 0, 0, time.UTC),
			to:   time.Date(2015, 3, 2, 23, 59, 0, 0, time.UTC),
			want: []DateRange{{day(2015, 3, 1), day(2015, 3, 2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitByYear(tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitByYear() returned %d ranges, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if !got[i].From.Equal(tt.want[i].From) || !got[i].To.Equal(tt.want[i].To) {
					t.Errorf("range %d = %v..%v, want %v..%v", i, got[i].From, got[i].To, tt.want[i].From, tt.want[i].To)
				}
			}
		})
	}
}

func TestSplitByYear_ChunkCount(t *testing.T) {
	for y1 := 2000; y1 < 2005; y1++ {
		for y2 := y1; y2 < 2010; y2++ {
			got := SplitByYear(day(y1, 5, 5), day(y2, 7, 7))
			if len(got) != y2-y1+1 {
				t.Errorf("SplitByYear(%d, %d) returned %d ranges, want %d", y1, y2, len(got), y2-y1+1)
			}
			for i := 1; i < len(got); i++ {
				if got[i].From.Month() != time.January || got[i].From.Day() != 1 {
					t.Errorf("range %d starts on %v, want Jan 1", i, got[i].From)
				}
				if !got[i].From.Equal(got[i-1].To.AddDate(0, 0, 1)) {
					t.Errorf("range %d does not follow range %d", i, i-1)
				}
			}
		}
	}
}
