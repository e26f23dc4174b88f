package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		name   string
		from   time.Time
		months int
		want   time.Time
	}{
		{"leap february", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"plain february", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"thirty day month", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"year carry", date(2024, time.November, 15), 3, date(2025, time.February, 15)},
		{"full year", date(2024, time.February, 29), 12, date(2025, time.February, 28)},
		{"multi year", date(2024, time.May, 10), 30, date(2026, time.November, 10)},
		{"zero", date(2024, time.May, 10), 0, date(2024, time.May, 10)},
		{"backwards across year", date(2024, time.January, 31), -2, date(2023, time.November, 30)},
		{"drops time of day", time.Date(2024, time.June, 1, 23, 59, 0, 0, time.UTC), 1, date(2024, time.July, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonthsClamped(tc.from, tc.months))
		})
	}
}

func TestAddMonthsClampedNeverShortens(t *testing.T) {
	start := date(2023, time.January, 1)
	for i := 0; i < 366*2; i++ {
		d := start.AddDate(0, 0, i)
		for n := 1; n <= 24; n++ {
			got := AddMonthsClamped(d, n)
			assert.True(t, got.After(d), "%s + %d", d.Format(time.DateOnly), n)
			assert.Equal(t, n, MonthsBetween(d, got))
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2100, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}
