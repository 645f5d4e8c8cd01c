package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/store"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// sectionDetailQuery loads sections with their subject, flattened
// teacher and classroom in one shot; meetings and occupancy are
// attached separately.
const sectionDetailQuery = `SELECT s.id, s.code, s.subject_id, s.teacher_id, s.classroom_id, s.capacity, s.created_at, s.updated_at,
	sub.id AS "subject.id", sub.code AS "subject.code", sub.title AS "subject.title", sub.description AS "subject.description", sub.created_at AS "subject.created_at", sub.updated_at AS "subject.updated_at",
	t.id AS "teacher.id", u.first_name AS "teacher.first_name", u.last_name AS "teacher.last_name", u.email AS "teacher.email", t.department AS "teacher.department",
	c.id AS "classroom.id", c.name AS "classroom.name", c.building AS "classroom.building", c.room AS "classroom.room", c.capacity AS "classroom.capacity"
	FROM sections s
	JOIN subjects sub ON sub.id = s.subject_id
	JOIN teachers t ON t.id = s.teacher_id
	JOIN users u ON u.id = t.user_id
	JOIN classrooms c ON c.id = s.classroom_id`

// ScheduleRepository is the enrollment engine's storage boundary. It
// runs the transactional check-then-write sequence for enroll/drop and
// serves schedule snapshot reads outside of transactions.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// RunAtomic executes fn inside one READ COMMITTED transaction. The
// section row lock taken by FindSectionForUpdate makes the occupancy
// check and the insert indivisible with respect to concurrent attempts
// on the same section. Any error from fn rolls the transaction back;
// commit and statement errors are normalised via mapStorageError so
// transient contention surfaces as a retryable failure.
func (r *ScheduleRepository) RunAtomic(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}

	if err := fn(&scheduleTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return mapStorageError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapStorageError(fmt.Errorf("commit enrollment tx: %w", err))
	}
	return nil
}

// GetSnapshot recomputes the student's schedule projection. This read
// runs outside the write transaction: it is advisory display data, not
// a correctness input.
func (r *ScheduleRepository) GetSnapshot(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error) {
	student, err := findStudent(ctx, r.db, studentID)
	if err != nil {
		return nil, err
	}
	sections, err := listEnrolledSections(ctx, r.db, studentID, "")
	if err != nil {
		return nil, err
	}
	return &models.ScheduleSnapshot{Student: *student, Sections: sections}, nil
}

// scheduleTx routes all reads and writes of one enrollment decision
// through a single transaction.
type scheduleTx struct {
	tx *sqlx.Tx
}

var _ store.Tx = (*scheduleTx)(nil)

func (t *scheduleTx) FindStudent(ctx context.Context, id string) (*models.User, error) {
	return findStudent(ctx, t.tx, id)
}

// FindSectionForUpdate locks the section row before reading occupancy.
// The count runs as a separate statement after the lock is granted so
// it observes every committed enrollment, including ones committed
// while this transaction waited on the lock.
func (t *scheduleTx) FindSectionForUpdate(ctx context.Context, id string) (*models.SectionDetail, error) {
	var section models.SectionDetail
	query := sectionDetailQuery + " WHERE s.id = $1 FOR UPDATE OF s"
	if err := t.tx.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}

	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1`
	if err := t.tx.GetContext(ctx, &section.EnrolledCount, countQuery, id); err != nil {
		return nil, fmt.Errorf("count section enrollments: %w", err)
	}

	meetings, err := listMeetings(ctx, t.tx, []string{id})
	if err != nil {
		return nil, err
	}
	section.Meetings = meetings[id]
	return &section, nil
}

func (t *scheduleTx) FindEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, created_at FROM enrollments WHERE student_id = $1 AND section_id = $2`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, sectionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *scheduleTx) ListEnrolledSections(ctx context.Context, studentID, excludeSectionID string) ([]models.SectionDetail, error) {
	return listEnrolledSections(ctx, t.tx, studentID, excludeSectionID)
}

func (t *scheduleTx) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id) VALUES ($1, $2, $3) RETURNING created_at`
	if err := t.tx.GetContext(ctx, &enrollment.CreatedAt, query, enrollment.ID, enrollment.StudentID, enrollment.SectionID); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (t *scheduleTx) DeleteEnrollment(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

func findStudent(ctx context.Context, q sqlx.QueryerContext, id string) (*models.User, error) {
	const query = `SELECT id, email, first_name, last_name, role, active, created_at, updated_at FROM users WHERE id = $1 AND role = $2`
	var user models.User
	if err := sqlx.GetContext(ctx, q, &user, query, id, models.RoleStudent); err != nil {
		return nil, err
	}
	return &user, nil
}

func listEnrolledSections(ctx context.Context, q sqlx.QueryerContext, studentID, excludeSectionID string) ([]models.SectionDetail, error) {
	query := sectionDetailQuery + `
	JOIN enrollments e ON e.section_id = s.id AND e.student_id = $1`
	args := []interface{}{studentID}
	if excludeSectionID != "" {
		query += " WHERE s.id <> $2"
		args = append(args, excludeSectionID)
	}
	query += " ORDER BY s.code ASC"

	var sections []models.SectionDetail
	if err := sqlx.SelectContext(ctx, q, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list enrolled sections: %w", err)
	}
	if len(sections) == 0 {
		return sections, nil
	}

	ids := make([]string, len(sections))
	for i := range sections {
		ids[i] = sections[i].ID
	}
	meetings, err := listMeetings(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	counts, err := countEnrollments(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].Meetings = meetings[sections[i].ID]
		sections[i].EnrolledCount = counts[sections[i].ID]
	}
	return sections, nil
}

func listMeetings(ctx context.Context, q sqlx.QueryerContext, sectionIDs []string) (map[string][]models.Meeting, error) {
	const query = `SELECT id, section_id, day, start_minute, end_minute FROM meetings WHERE section_id = ANY($1)`
	var meetings []models.Meeting
	if err := sqlx.SelectContext(ctx, q, &meetings, query, pq.Array(sectionIDs)); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	models.SortMeetings(meetings)

	grouped := make(map[string][]models.Meeting, len(sectionIDs))
	for _, m := range meetings {
		grouped[m.SectionID] = append(grouped[m.SectionID], m)
	}
	return grouped, nil
}

func countEnrollments(ctx context.Context, q sqlx.QueryerContext, sectionIDs []string) (map[string]int, error) {
	const query = `SELECT section_id, COUNT(*) AS total FROM enrollments WHERE section_id = ANY($1) GROUP BY section_id`
	rows := []struct {
		SectionID string `db:"section_id"`
		Total     int    `db:"total"`
	}{}
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(sectionIDs)); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SectionID] = row.Total
	}
	return counts, nil
}

// PostgreSQL condition codes the engine reacts to.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// mapStorageError folds driver-level failures into the engine's error
// taxonomy: contention becomes retryable, a concurrent duplicate insert
// on the enrollment unique constraint becomes ALREADY_ENROLLED.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return appErrors.Wrap(err, appErrors.ErrRetryable.Code, appErrors.ErrRetryable.Status, appErrors.ErrRetryable.Message)
		case pqUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrAlreadyEnrolled.Code, appErrors.ErrAlreadyEnrolled.Status, appErrors.ErrAlreadyEnrolled.Message)
		}
	}
	return err
}
