package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clock is a wall-clock time of day in minutes since midnight.
type clock int

func parseClock(s string) (clock, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return clock(h*60 + m), nil
}

// quietWindow evaluates the user's quiet hours at the given instant.
// It reports whether now falls inside the window and, if so, when the window
// ends. A window wraps midnight when start > end ("22:00".."08:00"), and
// start == end means no window at all.
//
// Errors surface only for malformed HH:MM fields; callers treat them as
// "quiet hours effectively disabled" so one bad preference row cannot block
// delivery. An unknown timezone does not disable the window: the user asked
// for quiet hours, so the window is evaluated in UTC instead.
func quietWindow(p Preferences, now time.Time) (bool, time.Time, error) {
	if !p.QuietHoursEnabled {
		return false, time.Time{}, nil
	}

	start, err := parseClock(p.QuietHoursStart)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuietTime, err)
	}
	end, err := parseClock(p.QuietHoursEnd)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuietTime, err)
	}
	if start == end {
		return false, time.Time{}, nil
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}

	local := now.In(loc)
	cur := clock(local.Hour()*60 + local.Minute())

	var inside bool
	if start < end {
		inside = cur >= start && cur < end
	} else {
		// Window wraps midnight.
		inside = cur >= start || cur < end
	}
	if !inside {
		return false, time.Time{}, nil
	}

	resume := time.Date(local.Year(), local.Month(), local.Day(), int(end)/60, int(end)%60, 0, 0, loc)
	if !resume.After(local) {
		resume = resume.AddDate(0, 0, 1)
	}
	return true, resume, nil
}
