package instance

import (
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/field"
)

// SortDirection orders search results.
type SortDirection string

const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// Valid reports whether d is a known direction.
func (d SortDirection) Valid() bool {
	return d == Ascending || d == Descending
}

// Instance is one activity owning a schema, templates and records.
type Instance struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Intro    string          `json:"intro,omitempty"`
	Settings access.Settings `json:"settings"`
	// MaxEntries caps the records a non-manager may submit; 0 is unlimited.
	MaxEntries int `json:"max_entries"`
	// DefaultSort is a field id or one of the reserved pseudo-keys (<= 0).
	DefaultSort    int64         `json:"default_sort"`
	DefaultSortDir SortDirection `json:"default_sort_dir"`
	Comments       bool          `json:"comments"`
	CreatedAt      time.Time     `json:"created_at"`
	ModifiedAt     time.Time     `json:"modified_at"`
}

// Schema is the ordered, resolved field list of an instance for one request.
type Schema struct {
	Instance Instance
	Fields   []field.Field
}

// FieldByID returns the field with the given id.
func (s *Schema) FieldByID(id int64) (field.Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return field.Field{}, false
}

// FieldByName returns the field with the given name.
func (s *Schema) FieldByName(name string) (field.Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// KnownFieldNames lists the names of fields whose type resolved.
func (s *Schema) KnownFieldNames() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Known() {
			names = append(names, f.Name)
		}
	}
	return names
}

// Template is a stored or generated template body.
type Template struct {
	Name string `json:"name"`
	Body string `json:"body"`
	// Generated is set when no body was stored and a default was produced.
	Generated bool `json:"generated"`
}
