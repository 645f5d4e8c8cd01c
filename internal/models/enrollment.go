package models

import "time"

// Enrollment is the join row between one student and one section.
// At most one row may exist per (student, section) pair; the engine
// enforces this transactionally and the storage layer backs it with a
// unique constraint.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
