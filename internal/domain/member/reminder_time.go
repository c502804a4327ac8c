package member

import (
	"fmt"
	"strings"
	"time"
)

// ReminderTime is one of the 24 hourly buckets a member can pick, e.g. "8am" or "3pm".
type ReminderTime string

const DefaultReminderTime ReminderTime = "8am"

var reminderTimes = buildReminderTimes()

func buildReminderTimes() []ReminderTime {
	times := make([]ReminderTime, 0, 24)
	for _, suffix := range []string{"am", "pm"} {
		times = append(times, ReminderTime("12"+suffix))
		for i := 1; i <= 11; i++ {
			times = append(times, ReminderTime(fmt.Sprintf("%d%s", i, suffix)))
		}
	}
	return times
}

// ReminderTimes returns all labels in day order, 12am through 11pm.
func ReminderTimes() []ReminderTime {
	out := make([]ReminderTime, len(reminderTimes))
	copy(out, reminderTimes)
	return out
}

// ParseReminderTime validates a label. Case and surrounding spaces are ignored.
func ParseReminderTime(s string) (ReminderTime, error) {
	candidate := ReminderTime(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range reminderTimes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid reminder time %q", s)
}

// ReminderTimeAt returns the label of the hour t falls in, in t's location.
func ReminderTimeAt(t time.Time) ReminderTime {
	return reminderTimes[t.Hour()]
}

func (r ReminderTime) String() string {
	return string(r)
}
