package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/store"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

// memStore is an in-memory store.Runner plus snapshot reader. RunAtomic
// applies fn directly; a failed fn leaves the maps untouched because
// every mutating method runs last in the orchestration.
type memStore struct {
	students    map[string]*models.User
	sections    map[string]*models.SectionDetail
	enrollments []models.Enrollment
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[string]*models.User),
		sections: make(map[string]*models.SectionDetail),
	}
}

func (s *memStore) addStudent(id string) {
	s.students[id] = &models.User{ID: id, FirstName: "Test", LastName: id, Email: id + "@example.edu", Role: models.RoleStudent}
}

func (s *memStore) addSection(id, code, title string, capacity *int, meetings ...models.Meeting) {
	s.sections[id] = &models.SectionDetail{
		Section:  models.Section{ID: id, Code: code, Capacity: capacity},
		Subject:  models.Subject{Title: title},
		Meetings: meetings,
	}
}

func (s *memStore) enroll(studentID, sectionID string) {
	s.nextID++
	s.enrollments = append(s.enrollments, models.Enrollment{ID: fmt.Sprintf("enr-%d", s.nextID), StudentID: studentID, SectionID: sectionID})
}

func (s *memStore) RunAtomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(&memTx{s})
}

func (s *memStore) GetSnapshot(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error) {
	student, ok := s.students[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	tx := &memTx{s}
	sections, err := tx.ListEnrolledSections(ctx, studentID, "")
	if err != nil {
		return nil, err
	}
	return &models.ScheduleSnapshot{Student: *student, Sections: sections}, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) FindStudent(ctx context.Context, id string) (*models.User, error) {
	if student, ok := t.s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (t *memTx) FindSectionForUpdate(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, ok := t.s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *section
	copied.EnrolledCount = 0
	for _, e := range t.s.enrollments {
		if e.SectionID == id {
			copied.EnrolledCount++
		}
	}
	return &copied, nil
}

func (t *memTx) FindEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	for _, e := range t.s.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (t *memTx) ListEnrolledSections(ctx context.Context, studentID, excludeSectionID string) ([]models.SectionDetail, error) {
	var sections []models.SectionDetail
	for _, e := range t.s.enrollments {
		if e.StudentID != studentID || e.SectionID == excludeSectionID {
			continue
		}
		if section, ok := t.s.sections[e.SectionID]; ok {
			sections = append(sections, *section)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Code < sections[j].Code })
	return sections, nil
}

func (t *memTx) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	t.s.nextID++
	enrollment.ID = fmt.Sprintf("enr-%d", t.s.nextID)
	t.s.enrollments = append(t.s.enrollments, *enrollment)
	return nil
}

func (t *memTx) DeleteEnrollment(ctx context.Context, id string) error {
	for i, e := range t.s.enrollments {
		if e.ID == id {
			t.s.enrollments = append(t.s.enrollments[:i], t.s.enrollments[i+1:]...)
			return nil
		}
	}
	return nil
}

func newEnrollmentService(s *memStore) *EnrollmentService {
	return NewEnrollmentService(s, s, nil, nil, validator.New(), zap.NewNop())
}

func capacityOf(n int) *int { return &n }

func TestEnrollSuccess(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", capacityOf(30),
		models.Meeting{ID: "m1", SectionID: "sec-1", Day: models.Monday, StartMinute: 480, EndMinute: 530})

	svc := newEnrollmentService(s)
	snapshot, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	require.Len(t, snapshot.Sections, 1)
	assert.Equal(t, "MATH-101-A", snapshot.Sections[0].Code)
	assert.Len(t, s.enrollments, 1)
}

func TestEnrollValidation(t *testing.T) {
	svc := newEnrollmentService(newMemStore())
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollStudentNotFound(t *testing.T) {
	s := newMemStore()
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil)

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "ghost", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, s.enrollments)
}

func TestEnrollSectionNotFound(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSectionNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollTwiceRejected(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", capacityOf(30),
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	assert.Len(t, s.enrollments, 1)
}

func TestEnrollScheduleConflict(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil,
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.addSection("sec-2", "PHYS-201-B", "Mechanics", nil,
		models.Meeting{Day: models.Monday, StartMinute: 510, EndMinute: 560})
	s.enroll("stu-1", "sec-1")

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-2"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "PHYS-201-B (Mechanics) conflicts with MATH-101-A (Calculus I)")
	assert.Contains(t, appErr.Message, "on Monday")
	assert.Contains(t, appErr.Message, "new section meets 08:30-09:20")
	assert.Contains(t, appErr.Message, "existing section meets 08:00-08:50")
	assert.Len(t, s.enrollments, 1)
}

func TestEnrollBackToBackSlots(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil,
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.addSection("sec-2", "PHYS-201-B", "Mechanics", nil,
		models.Meeting{Day: models.Monday, StartMinute: 530, EndMinute: 580})
	s.enroll("stu-1", "sec-1")

	svc := newEnrollmentService(s)
	snapshot, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-2"})
	require.NoError(t, err)
	assert.Len(t, snapshot.Sections, 2)
}

func TestEnrollSectionFull(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addStudent("stu-2")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", capacityOf(1),
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.enroll("stu-2", "sec-1")

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSectionFull.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "full capacity (1/1 enrolled)")
}

func TestEnrollUnlimitedCapacity(t *testing.T) {
	s := newMemStore()
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("stu-%d", i)
		s.addStudent(id)
		if i > 0 {
			s.enroll(id, "sec-1")
		}
	}

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-0", SectionID: "sec-1"})
	require.NoError(t, err)
}

func TestEnrollDuplicateBeatsConflictAndCapacity(t *testing.T) {
	// The student is already enrolled in a section that is both full and
	// self-conflicting; the duplicate check must fire first.
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", capacityOf(1),
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.enroll("stu-1", "sec-1")

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
}

func TestEnrollConflictBeatsCapacity(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addStudent("stu-2")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil,
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.addSection("sec-2", "PHYS-201-B", "Mechanics", capacityOf(1),
		models.Meeting{Day: models.Monday, StartMinute: 500, EndMinute: 560})
	s.enroll("stu-1", "sec-1")
	s.enroll("stu-2", "sec-2")

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
}

func TestDropSuccess(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil,
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.enroll("stu-1", "sec-1")

	svc := newEnrollmentService(s)
	snapshot, err := svc.Drop(context.Background(), DropRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Sections)
	assert.Empty(t, s.enrollments)
}

func TestDropNotEnrolled(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", nil)

	svc := newEnrollmentService(s)
	_, err := svc.Drop(context.Background(), DropRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
}

func TestDropStudentNotFound(t *testing.T) {
	svc := newEnrollmentService(newMemStore())
	_, err := svc.Drop(context.Background(), DropRequest{StudentID: "ghost", SectionID: "sec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestDropThenReenroll(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-1", "MATH-101-A", "Calculus I", capacityOf(1),
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})

	svc := newEnrollmentService(s)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	_, err = svc.Drop(context.Background(), DropRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)

	snapshot, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Len(t, snapshot.Sections, 1)
}

func TestGetScheduleOrdersSectionsByCode(t *testing.T) {
	s := newMemStore()
	s.addStudent("stu-1")
	s.addSection("sec-b", "PHYS-201-B", "Mechanics", nil,
		models.Meeting{Day: models.Tuesday, StartMinute: 540, EndMinute: 590})
	s.addSection("sec-a", "MATH-101-A", "Calculus I", nil,
		models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530})
	s.enroll("stu-1", "sec-b")
	s.enroll("stu-1", "sec-a")

	svc := newEnrollmentService(s)
	snapshot, err := svc.GetSchedule(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Sections, 2)
	assert.Equal(t, "MATH-101-A", snapshot.Sections[0].Code)
	assert.Equal(t, "PHYS-201-B", snapshot.Sections[1].Code)
}

func TestGetScheduleStudentNotFound(t *testing.T) {
	svc := newEnrollmentService(newMemStore())
	_, err := svc.GetSchedule(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}
