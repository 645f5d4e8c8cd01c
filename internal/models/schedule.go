package models

import "fmt"

// ScheduleSnapshot is the read-only projection of a student's current
// enrollments: the student plus the sections they are enrolled in,
// ordered by section code with meetings ordered by day then start time.
// It is never persisted and is recomputed after every mutation.
type ScheduleSnapshot struct {
	Student  User            `json:"student"`
	Sections []SectionDetail `json:"sections"`
}

// ScheduleConflict describes the first overlap found between a
// candidate section's meetings and a student's existing schedule.
type ScheduleConflict struct {
	SectionID     string    `json:"section_id"`
	SectionCode   string    `json:"section_code"`
	SubjectTitle  string    `json:"subject_title"`
	Day           DayOfWeek `json:"day"`
	NewRange      string    `json:"new_range"`
	ExistingRange string    `json:"existing_range"`
}

// ScheduleConflictError is returned when a proposed enrollment collides
// with a meeting of a section the student is already enrolled in.
type ScheduleConflictError struct {
	Conflict ScheduleConflict `json:"conflict"`
	Message  string           `json:"message"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("schedule conflict with section %s on %s", e.Conflict.SectionCode, e.Conflict.Day.Title())
}
