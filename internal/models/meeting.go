package models

import (
	"fmt"
	"sort"
	"strings"
)

// DayOfWeek identifies the weekday of a recurring meeting slot.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var dayOrder = map[DayOfWeek]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

// Valid reports whether the day is one of the seven weekday symbols.
func (d DayOfWeek) Valid() bool {
	_, ok := dayOrder[d]
	return ok
}

// Order returns the position of the day within the week, Monday first.
// Unknown days sort last.
func (d DayOfWeek) Order() int {
	if pos, ok := dayOrder[d]; ok {
		return pos
	}
	return len(dayOrder)
}

// Title renders the day in title case for human-readable messages.
func (d DayOfWeek) Title() string {
	s := string(d)
	if s == "" {
		return s
	}
	return s[:1] + strings.ToLower(s[1:])
}

// MinutesPerDay bounds the valid minute-of-day range [0, 1440).
const MinutesPerDay = 24 * 60

// Meeting is one recurring weekly time slot belonging to a section.
// Start and end are stored as minutes since midnight in a fixed
// reference timezone, so no calendar or DST logic enters comparisons.
type Meeting struct {
	ID          string    `db:"id" json:"id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	Day         DayOfWeek `db:"day" json:"day"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
}

// Overlaps reports whether two meetings collide. Meetings on different
// days never overlap. Same-day ranges are compared half-open: a slot
// ending at 08:50 does not conflict with one starting at 08:50.
func (m Meeting) Overlaps(other Meeting) bool {
	if m.Day != other.Day {
		return false
	}
	return m.StartMinute < other.EndMinute && other.StartMinute < m.EndMinute
}

// TimeRange formats the slot as "HH:MM-HH:MM" in 24-hour notation.
func (m Meeting) TimeRange() string {
	return FormatMinute(m.StartMinute) + "-" + FormatMinute(m.EndMinute)
}

// FormatMinute renders minutes since midnight as zero-padded "HH:MM".
func FormatMinute(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ParseMinute converts a zero-padded "HH:MM" string into minutes since
// midnight.
func ParseMinute(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return h*60 + m, nil
}

// SortMeetings orders meetings by weekday then start time, the order
// schedules are displayed and conflicts are reported in.
func SortMeetings(meetings []Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].Day != meetings[j].Day {
			return meetings[i].Day.Order() < meetings[j].Day.Order()
		}
		return meetings[i].StartMinute < meetings[j].StartMinute
	})
}
