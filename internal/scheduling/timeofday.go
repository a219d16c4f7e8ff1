package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes from midnight.
// It marshals as "HH:MM" and is stored as a smallint in Postgres.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// WeekdaySet is a bitmask of weekdays, bit n set for time.Weekday(n).
type WeekdaySet uint8

var weekdayCodes = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// ParseWeekdaySet parses a comma separated day list such as "MON,WED,FRI".
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		found := false
		for i, c := range weekdayCodes {
			if c == code {
				set |= 1 << uint(i)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid weekday %q", code)
		}
	}
	return set, nil
}

func (w WeekdaySet) Contains(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

func (w WeekdaySet) IsEmpty() bool {
	return w == 0
}

func (w WeekdaySet) String() string {
	var parts []string
	for i, code := range weekdayCodes {
		if w&(1<<uint(i)) != 0 {
			parts = append(parts, code)
		}
	}
	return strings.Join(parts, ",")
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
