package models

import "time"

// Section is a scheduled offering of a subject taught by one teacher in
// one classroom, with a set of weekly meetings. A nil capacity means
// unlimited seats.
type Section struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Capacity    *int      `db:"capacity" json:"capacity,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches a Section with its subject, flattened teacher,
// classroom, meetings and live enrollment count.
type SectionDetail struct {
	Section
	Subject       Subject   `db:"subject" json:"subject"`
	Teacher       Teacher   `db:"teacher" json:"teacher"`
	Classroom     Classroom `db:"classroom" json:"classroom"`
	Meetings      []Meeting `db:"-" json:"meetings"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
}

// HasCapacity reports whether the section can accept one more
// enrollment. The enrolled count must have been read inside the same
// transaction as the eventual insert for the answer to be trustworthy.
func (s *SectionDetail) HasCapacity() bool {
	if s.Capacity == nil {
		return true
	}
	return s.EnrolledCount < *s.Capacity
}

// SectionFilter captures supported filters for listing sections.
type SectionFilter struct {
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Code        string
	Day         DayOfWeek
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
