package models

// Classroom is a physical room where section meetings take place.
type Classroom struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Building string `db:"building" json:"building"`
	Room     string `db:"room" json:"room"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// ClassroomFilter narrows classroom listings.
type ClassroomFilter struct {
	Building  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
