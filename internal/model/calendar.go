package model

import "time"

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in month m of year y.
func DaysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves d forward (or back, for negative n) by n
// calendar months. The year carries on every 12-month overflow and the
// day is clamped to the last day of the target month, so Jan 31 + 1 is
// Feb 28 or Feb 29 rather than early March.
func AddMonthsClamped(d time.Time, n int) time.Time {
	d = DateOf(d)
	total := int(d.Month()) - 1 + n
	year := d.Year() + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	m := time.Month(month + 1)
	day := d.Day()
	if last := DaysInMonth(year, m); day > last {
		day = last
	}
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween counts whole calendar months from a to b, ignoring the
// day of month. It mirrors the duration shown on contracts.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
