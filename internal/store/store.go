// Package store defines the transactional contract between the
// enrollment engine and its schedule repository. The repository package
// implements it over PostgreSQL; service tests implement it in memory.
package store

import (
	"context"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// Tx is the handle through which all reads and writes of one enrollment
// decision are routed. Every call observes the same database snapshot
// and the final write commits atomically with the checks.
type Tx interface {
	// FindStudent returns the user only when it exists with the
	// STUDENT role. Absence is reported as sql.ErrNoRows.
	FindStudent(ctx context.Context, id string) (*models.User, error)

	// FindSectionForUpdate loads the section with its meetings,
	// subject, teacher, classroom and live enrollment count, locking
	// the section row so concurrent enrollments on the same section
	// serialize before the capacity check.
	FindSectionForUpdate(ctx context.Context, id string) (*models.SectionDetail, error)

	// FindEnrollment returns the enrollment for the pair, or
	// sql.ErrNoRows when the student is not enrolled.
	FindEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)

	// ListEnrolledSections returns the sections (with meetings) the
	// student is currently enrolled in, excluding excludeSectionID
	// when non-empty.
	ListEnrolledSections(ctx context.Context, studentID, excludeSectionID string) ([]models.SectionDetail, error)

	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	DeleteEnrollment(ctx context.Context, id string) error
}

// Runner executes fn exactly once inside one atomic transaction.
// If fn returns an error the transaction rolls back with no partial
// effect; otherwise it commits. Storage-level contention surfaces as a
// retryable error so callers may redo the whole attempt.
type Runner interface {
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error
}
