package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// SectionRepository serves the read side of sections: listings with
// filters and detail lookups. Occupancy counts returned here are
// advisory; the enrollment engine re-reads them under its own lock.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections with their relations, filtered by the provided
// criteria. The day filter matches sections with at least one meeting
// on that day.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM sections s
	JOIN subjects sub ON sub.id = s.subject_id
	JOIN teachers t ON t.id = s.teacher_id
	JOIN users u ON u.id = t.user_id
	JOIN classrooms c ON c.id = s.classroom_id
	WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("s.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.Code != "" {
		conditions = append(conditions, fmt.Sprintf("s.code ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Code+"%")
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM meetings m WHERE m.section_id = s.id AND m.day = $%d)", len(args)+1))
		args = append(args, filter.Day)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`%s WHERE 1=1%s ORDER BY s.code %s LIMIT %d OFFSET %d`,
		sectionDetailQuery, clause, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	if err := r.attach(ctx, sections); err != nil {
		return nil, 0, err
	}
	return sections, total, nil
}

// FindDetailByID returns a section with relations, meetings and the
// current occupancy.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := sectionDetailQuery + " WHERE s.id = $1"
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	sections := []models.SectionDetail{section}
	if err := r.attach(ctx, sections); err != nil {
		return nil, err
	}
	return &sections[0], nil
}

func (r *SectionRepository) attach(ctx context.Context, sections []models.SectionDetail) error {
	if len(sections) == 0 {
		return nil
	}
	ids := make([]string, len(sections))
	for i := range sections {
		ids[i] = sections[i].ID
	}
	meetings, err := listMeetings(ctx, r.db, ids)
	if err != nil {
		return err
	}
	counts, err := countEnrollments(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for i := range sections {
		sections[i].Meetings = meetings[sections[i].ID]
		sections[i].EnrolledCount = counts[sections[i].ID]
	}
	return nil
}
