// Package lookups manages the small reference tables products point at:
// categories, companies and subcategories.
package lookups

import "time"

// Kind names a lookup table. The value doubles as the table name and the
// lookup cache key prefix.
type Kind string

const (
	KindCategory    Kind = "categories"
	KindCompany     Kind = "companies"
	KindSubcategory Kind = "subcategories"
)

// Kinds lists every lookup table.
var Kinds = []Kind{KindCategory, KindCompany, KindSubcategory}

// Valid reports whether k is a known table.
func (k Kind) Valid() bool {
	switch k {
	case KindCategory, KindCompany, KindSubcategory:
		return true
	}
	return false
}

// Label is the singular display name used in messages.
func (k Kind) Label() string {
	switch k {
	case KindCategory:
		return "category"
	case KindCompany:
		return "company"
	case KindSubcategory:
		return "subcategory"
	}
	return string(k)
}

// Entry is one lookup row.
type Entry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryInput is the create/update payload.
type EntryInput struct {
	Name string `json:"name" validate:"required,max=120"`
}
