package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/export"
)

type studentRepository interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.User, int, error)
	FindStudent(ctx context.Context, id string) (*models.User, error)
}

type scheduleProvider interface {
	GetSchedule(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error)
}

type schedulePDFRenderer interface {
	Render(doc export.ScheduleDocument) ([]byte, error)
}

type scheduleCSVRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ScheduleExport bundles rendered export bytes with a suggested file name.
type ScheduleExport struct {
	FileName string
	Content  []byte
}

// StudentService serves student listings and schedule exports. All
// enrollment mutations go through EnrollmentService; this service only
// shapes reads.
type StudentService struct {
	repo      studentRepository
	schedules scheduleProvider
	pdf       schedulePDFRenderer
	csv       scheduleCSVRenderer
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, schedules scheduleProvider, pdf schedulePDFRenderer, csv scheduleCSVRenderer, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, schedules: schedules, pdf: pdf, csv: csv, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.User, *models.Pagination, error) {
	students, total, err := s.repo.ListStudents(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// FindByID returns a student by id.
func (s *StudentService) FindByID(ctx context.Context, id string) (*models.User, error) {
	student, err := s.repo.FindStudent(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("student %s does not exist", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ExportSchedulePDF renders the student's current schedule as a PDF.
// A schedule with no enrolled sections is rejected, matching the
// behaviour of the JSON schedule endpoint returning an empty list but
// the export refusing to produce an empty document.
func (s *StudentService) ExportSchedulePDF(ctx context.Context, studentID string) (*ScheduleExport, error) {
	snapshot, err := s.schedules.GetSchedule(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot generate PDF: no enrolled sections found for this student")
	}

	doc := export.ScheduleDocument{
		StudentName:  snapshot.Student.FullName(),
		StudentEmail: snapshot.Student.Email,
		GeneratedAt:  nowUTC(),
		Sections:     make([]export.ScheduleSection, 0, len(snapshot.Sections)),
	}
	for i := range snapshot.Sections {
		section := &snapshot.Sections[i]
		doc.Sections = append(doc.Sections, export.ScheduleSection{
			Code:          section.Code,
			SubjectTitle:  section.Subject.Title,
			SubjectCode:   section.Subject.Code,
			TeacherName:   section.Teacher.FullName(),
			ClassroomName: section.Classroom.Name,
			Location:      section.Classroom.Building + " " + section.Classroom.Room,
			MeetingLines:  groupMeetingLines(section.Meetings),
		})
	}

	content, err := s.pdf.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}

	fileName := fmt.Sprintf("schedule-%s-%s.pdf",
		strings.ToLower(snapshot.Student.LastName),
		strings.ToLower(snapshot.Student.FirstName))
	return &ScheduleExport{FileName: fileName, Content: content}, nil
}

// ExportScheduleCSV renders the schedule as a flat CSV table, one row
// per meeting.
func (s *StudentService) ExportScheduleCSV(ctx context.Context, studentID string) (*ScheduleExport, error) {
	snapshot, err := s.schedules.GetSchedule(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Section", "Subject", "Instructor", "Classroom", "Day", "Time"},
	}
	for i := range snapshot.Sections {
		section := &snapshot.Sections[i]
		for _, meeting := range section.Meetings {
			data.Rows = append(data.Rows, map[string]string{
				"Section":    section.Code,
				"Subject":    section.Subject.Title,
				"Instructor": section.Teacher.FullName(),
				"Classroom":  section.Classroom.Name,
				"Day":        meeting.Day.Title(),
				"Time":       meeting.TimeRange(),
			})
		}
	}

	content, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}

	fileName := fmt.Sprintf("schedule-%s-%s.csv",
		strings.ToLower(snapshot.Student.LastName),
		strings.ToLower(snapshot.Student.FirstName))
	return &ScheduleExport{FileName: fileName, Content: content}, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// groupMeetingLines folds already-sorted meetings into one display line
// per day: "Monday: 08:00-08:50, 10:00-10:50".
func groupMeetingLines(meetings []models.Meeting) []string {
	var lines []string
	var currentDay models.DayOfWeek
	var slots []string
	flush := func() {
		if len(slots) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", currentDay.Title(), strings.Join(slots, ", ")))
		}
	}
	for _, meeting := range meetings {
		if meeting.Day != currentDay {
			flush()
			currentDay = meeting.Day
			slots = slots[:0]
		}
		slots = append(slots, meeting.TimeRange())
	}
	flush()
	return lines
}
