package query

import (
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/instance"
)

// Reserved sort keys. Positive keys are field ids.
const (
	SortTimeAdded    int64 = 0
	SortFirstName    int64 = -1
	SortLastName     int64 = -2
	SortApproved     int64 = -3
	SortTimeModified int64 = -4
)

// Criterion keys matching the record owner instead of a field.
const (
	KeyFirstName = "fn"
	KeyLastName  = "ln"
)

// Criterion is one advanced search condition.
type Criterion struct {
	FieldKey string `json:"name"`
	Value    string `json:"value"`
}

// Request is one search over an instance.
type Request struct {
	InstanceID int64
	Actor      access.Actor
	// GroupID restricts results to one group plus group 0. 0 searches all visible groups.
	GroupID int64
	// Search is free text. It is ignored when Criteria is not empty.
	Search   string
	Criteria []Criterion
	// SortKey is nil to use the instance default.
	SortKey   *int64
	Direction instance.SortDirection
	// Page is zero based. PageSize 0 returns every match.
	Page     int
	PageSize int
}

// Result is one page of matches.
type Result struct {
	Records []entry.Record `json:"entries"`
	// TotalCount is the number of matches before pagination.
	TotalCount int `json:"totalcount"`
	// MaxCount is the number of visible records with criteria removed, set only
	// when criteria or free text were given.
	MaxCount *int `json:"maxcount,omitempty"`
	Page     int  `json:"page"`
	PageSize int  `json:"perpage"`
}
