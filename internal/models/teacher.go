package models

// Teacher is the flattened teacher projection used in section and
// schedule payloads: the teacher row joined with its user identity.
type Teacher struct {
	ID         string `db:"id" json:"id"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	Email      string `db:"email" json:"email"`
	Department string `db:"department" json:"department,omitempty"`
}

// FullName joins first and last name for display purposes.
func (t *Teacher) FullName() string {
	if t == nil {
		return ""
	}
	return t.FirstName + " " + t.LastName
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
