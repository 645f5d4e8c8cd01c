package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/store"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

func newScheduleRepoMock(t *testing.T) (*ScheduleRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewScheduleRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func sectionDetailColumns() []string {
	return []string{
		"id", "code", "subject_id", "teacher_id", "classroom_id", "capacity", "created_at", "updated_at",
		"subject.id", "subject.code", "subject.title", "subject.description", "subject.created_at", "subject.updated_at",
		"teacher.id", "teacher.first_name", "teacher.last_name", "teacher.email", "teacher.department",
		"classroom.id", "classroom.name", "classroom.building", "classroom.room", "classroom.capacity",
	}
}

func sectionDetailRow(rows *sqlmock.Rows, id, code string, capacity interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, code, "sub-1", "tea-1", "room-1", capacity, now, now,
		"sub-1", "MATH-101", "Calculus I", "", now, now,
		"tea-1", "Ada", "Lovelace", "ada@example.edu", "Mathematics",
		"room-1", "Room 204", "Science Hall", "204", 40,
	)
}

func TestScheduleRepositoryFindSectionForUpdate(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF s`).
		WithArgs("sec-1").
		WillReturnRows(sectionDetailRow(sqlmock.NewRows(sectionDetailColumns()), "sec-1", "MATH-101-A", 30))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE section_id = \$1`).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT id, section_id, day, start_minute, end_minute FROM meetings`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "section_id", "day", "start_minute", "end_minute"}).
			AddRow("m-2", "sec-1", models.Wednesday, 480, 530).
			AddRow("m-1", "sec-1", models.Monday, 480, 530))
	mock.ExpectCommit()

	err := repo.RunAtomic(context.Background(), func(tx store.Tx) error {
		section, err := tx.FindSectionForUpdate(context.Background(), "sec-1")
		require.NoError(t, err)
		assert.Equal(t, "MATH-101-A", section.Code)
		assert.Equal(t, "Calculus I", section.Subject.Title)
		assert.Equal(t, "Mathematics", section.Teacher.Department)
		assert.Equal(t, "Room 204", section.Classroom.Name)
		assert.Equal(t, 12, section.EnrolledCount)
		require.NotNil(t, section.Capacity)
		assert.Equal(t, 30, *section.Capacity)
		require.Len(t, section.Meetings, 2)
		assert.Equal(t, models.Monday, section.Meetings[0].Day, "meetings sorted by weekday")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateEnrollment(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	created := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO enrollments \(id, student_id, section_id\) VALUES \(\$1, \$2, \$3\) RETURNING created_at`).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectCommit()

	var enrollment models.Enrollment
	err := repo.RunAtomic(context.Background(), func(tx store.Tx) error {
		enrollment = models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"}
		return tx.CreateEnrollment(context.Background(), &enrollment)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.WithinDuration(t, created, enrollment.CreatedAt, time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryRollsBackOnError(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := fmt.Errorf("check failed")
	err := repo.RunAtomic(context.Background(), func(tx store.Tx) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMapsUniqueViolation(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	pqErr := &pq.Error{Code: "23505", Constraint: "enrollments_student_id_section_id_key"}
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO enrollments`).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sec-1").
		WillReturnError(pqErr)
	mock.ExpectRollback()

	err := repo.RunAtomic(context.Background(), func(tx store.Tx) error {
		return tx.CreateEnrollment(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"})
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMapsContentionAsRetryable(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		t.Run(code, func(t *testing.T) {
			repo, mock, cleanup := newScheduleRepoMock(t)
			defer cleanup()

			mock.ExpectBegin()
			mock.ExpectQuery(`FOR UPDATE OF s`).
				WithArgs("sec-1").
				WillReturnError(&pq.Error{Code: pq.ErrorCode(code)})
			mock.ExpectRollback()

			err := repo.RunAtomic(context.Background(), func(tx store.Tx) error {
				_, err := tx.FindSectionForUpdate(context.Background(), "sec-1")
				return err
			})
			require.Error(t, err)
			assert.True(t, appErrors.IsRetryable(err))
		})
	}
}

func TestScheduleRepositoryGetSnapshot(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1 AND role = \$2`).
		WithArgs("stu-1", models.RoleStudent).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "role", "active", "created_at", "updated_at"}).
			AddRow("stu-1", "grace@example.edu", "Grace", "Hopper", models.RoleStudent, true, now, now))
	mock.ExpectQuery(`JOIN enrollments e ON e\.section_id = s\.id AND e\.student_id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sectionDetailRow(sqlmock.NewRows(sectionDetailColumns()), "sec-1", "MATH-101-A", nil))
	mock.ExpectQuery(`FROM meetings WHERE section_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "section_id", "day", "start_minute", "end_minute"}).
			AddRow("m-1", "sec-1", models.Monday, 480, 530))
	mock.ExpectQuery(`SELECT section_id, COUNT\(\*\) AS total FROM enrollments`).
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "total"}).AddRow("sec-1", 7))

	snapshot, err := repo.GetSnapshot(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", snapshot.Student.FullName())
	require.Len(t, snapshot.Sections, 1)
	assert.Nil(t, snapshot.Sections[0].Capacity)
	assert.Equal(t, 7, snapshot.Sections[0].EnrolledCount)
	require.Len(t, snapshot.Sections[0].Meetings, 1)
	assert.Equal(t, "08:00-08:50", snapshot.Sections[0].Meetings[0].TimeRange())
	require.NoError(t, mock.ExpectationsWereMet())
}
