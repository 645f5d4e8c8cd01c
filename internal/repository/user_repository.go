package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registry-api/internal/models"
)

// UserRepository handles persistence of users. The listing side only
// surfaces STUDENT-tagged users; the registry has no user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListStudents returns students filtered by the provided criteria.
func (r *UserRepository) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.User, int, error) {
	base := "FROM users WHERE role = $1"
	args := []interface{}{models.RoleStudent}
	var conditions []string

	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Email+"%")
	}
	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Name+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"last_name":  "last_name",
		"first_name": "first_name",
		"email":      "email",
		"created_at": "created_at",
	}
	sortBy := allowedSorts[filter.SortBy]
	if sortBy == "" {
		sortBy = "last_name"
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

	query := fmt.Sprintf(`SELECT id, email, first_name, last_name, role, active, created_at, updated_at
		%s ORDER BY %s %s, first_name ASC LIMIT %d OFFSET %d`, base+clause, sortBy, order, size, offset)

	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindStudent returns the user by id when it holds the STUDENT role.
func (r *UserRepository) FindStudent(ctx context.Context, id string) (*models.User, error) {
	return findStudent(ctx, r.db, id)
}
