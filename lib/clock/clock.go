package clock

import (
	"fmt"
	"time"
)

const (
	timeFormat = "2006-01-02T15:04:05Z"
	// DayFormat is the calendar-date key stored on assignment rows.
	DayFormat = "2006-01-02"
	// SlotFormat is the minute-of-day format of group send times.
	SlotFormat = "15:04"
)

func Now() string {
	return time.Now().UTC().Format(timeFormat)
}

// Day returns the calendar-date key for t.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// PrevDay returns the calendar-date key of the day before t.
func PrevDay(t time.Time) string {
	return t.AddDate(0, 0, -1).Format(DayFormat)
}

// Slot returns the minute-of-day slot for t, comparable against a group's
// configured send time.
func Slot(t time.Time) string {
	return t.Format(SlotFormat)
}

// ValidSlot reports whether s parses as a minute-of-day slot like "10:30".
func ValidSlot(s string) bool {
	_, err := time.Parse(SlotFormat, s)
	return err == nil
}

// Duration duration between two times represented as strings
func Duration(from, to string) (time.Duration, error) {
	fromTime, err := time.Parse(timeFormat, from)
	if err != nil {
		return 0, fmt.Errorf("from is not a valid time: %s", from)
	}
	toTime, err := time.Parse(timeFormat, to)
	if err != nil {
		return 0, fmt.Errorf("to is not a valid time: %s", to)
	}
	return toTime.Sub(fromTime), nil
}

// DurationHours duration in hours between two times represented as strings,
// result value rounded to 3 decimal places
func DurationHours(from, to string) float64 {
	duration, err := Duration(from, to)
	if err != nil {
		return 0
	}
	return float64(int(duration.Hours()*1000)) / 1000
}
