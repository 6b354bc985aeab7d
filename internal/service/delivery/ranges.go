package delivery

import "time"

// TodayRange returns [midnight, next midnight) of now's calendar day in now's location.
func TodayRange(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthRange returns [first of month, first of next month) for now's month.
func MonthRange(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// DayRange turns an inclusive pair of calendar dates into [start 00:00, day after end 00:00)
// in loc.
func DayRange(startDate, endDate time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	sy, sm, sd := startDate.Date()
	ey, em, ed := endDate.Date()
	return time.Date(sy, sm, sd, 0, 0, 0, 0, loc), time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
}
