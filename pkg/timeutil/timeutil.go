package timeutil

import "time"

// businessTZ is the operating timezone for all companies (WIB).
var businessTZ = mustLoad("Asia/Jakarta")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*3600)
	}
	return loc
}

// UTCNow returns the current time in UTC.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// LocalNow returns the current time in the business timezone.
func LocalNow() time.Time {
	return time.Now().In(businessTZ)
}

// ToLocal converts t to the business timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(businessTZ)
}

// DaysBetween returns whole calendar days from start until end.
// A zero end means now.
func DaysBetween(start, end time.Time) int {
	if end.IsZero() {
		end = UTCNow()
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// DaysSince returns whole calendar days from t until now, never negative.
func DaysSince(t time.Time) int {
	d := DaysBetween(t, time.Time{})
	if d < 0 {
		return 0
	}
	return d
}

// FormatDate renders t as an ISO date in the business timezone.
func FormatDate(t time.Time) string {
	return ToLocal(t).Format("2006-01-02")
}
