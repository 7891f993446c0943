package throttle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuietHours is a per-user daily window during which non-urgent sends are
// deferred rather than dropped. The window is expressed in the user's
// timezone and wraps midnight when Start > End.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`    // "HH:MM", inclusive
	End      string `json:"end"`      // "HH:MM", exclusive
	Timezone string `json:"timezone"` // IANA name, e.g. "America/Chicago"
}

// Evaluate reports whether a send at now should be deferred, and until when.
// Events at or above the override threshold are never deferred. A malformed
// configuration disables the window and returns the parse error so callers
// can log it; the send itself proceeds (availability over strictness).
func (q QuietHours) Evaluate(now time.Time, priority int) (bool, time.Time, error) {
	if !q.Enabled {
		return false, time.Time{}, nil
	}
	if priority >= PriorityOverrideThreshold {
		return false, time.Time{}, nil
	}

	startMin, err := parseClock(q.Start)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("quiet hours start: %w", err)
	}
	endMin, err := parseClock(q.End)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("quiet hours end: %w", err)
	}
	if startMin == endMin {
		// Zero-length window; nothing to defer.
		return false, time.Time{}, nil
	}

	loc := time.UTC
	if q.Timezone != "" {
		loc, err = time.LoadLocation(q.Timezone)
		if err != nil {
			return false, time.Time{}, fmt.Errorf("quiet hours timezone: %w", err)
		}
	}

	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()

	inWindow, endsToday := contains(startMin, endMin, nowMin)
	if !inWindow {
		return false, time.Time{}, nil
	}

	endOfWindow := time.Date(local.Year(), local.Month(), local.Day(),
		endMin/60, endMin%60, 0, 0, loc)
	if !endsToday {
		endOfWindow = endOfWindow.AddDate(0, 0, 1)
	}

	return true, endOfWindow, nil
}

// contains reports whether nowMin falls in [start,end) minute-of-day,
// accounting for midnight wrap, and whether the window ends on the current
// calendar day.
func contains(start, end, now int) (inWindow, endsToday bool) {
	if start < end {
		return now >= start && now < end, true
	}
	// Wrapped window: [start,24:00) ∪ [0:00,end).
	if now >= start {
		return true, false
	}
	return now < end, true
}

// parseClock parses "HH:MM" into a minute-of-day value.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour %q", hh)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute %q", mm)
	}
	return h*60 + m, nil
}
