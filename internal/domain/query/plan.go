package query

import (
	"strings"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
)

// NamePart selects a part of the owner's name.
type NamePart int

const (
	FirstName NamePart = iota
	LastName
)

// Predicate is a condition over a whole record.
type Predicate interface {
	isPredicate()
}

// FieldMatch holds when the record has a content row for FieldID matching Expr.
type FieldMatch struct {
	FieldID int64
	Expr    field.Expr
}

// OwnerMatch holds when the owner's name part contains Term, ignoring case.
type OwnerMatch struct {
	Part NamePart
	Term string
}

// And holds when every member holds.
type And []Predicate

// Or holds when any member holds.
type Or []Predicate

func (FieldMatch) isPredicate() {}
func (OwnerMatch) isPredicate() {}
func (And) isPredicate()        {}
func (Or) isPredicate()         {}

// SortSpec orders results. Ties break on record id in the same direction.
type SortSpec struct {
	Key  int64
	Kind field.SortKind
	Desc bool
}

// Plan is a compiled search ready for a store to execute.
type Plan struct {
	InstanceID int64
	Access     access.Filter
	// Group restricts to this group and group 0 when nonzero.
	Group  int64
	Where  Predicate
	Sort   SortSpec
	Limit  int
	Offset int
}

// Unfiltered returns the plan without criteria or pagination.
func (p Plan) Unfiltered() Plan {
	p.Where = nil
	p.Limit, p.Offset = 0, 0
	return p
}

// Matches evaluates the plan's filters against a loaded record. Stores must return
// exactly the records for which Matches holds.
func (p Plan) Matches(rec *entry.Record) bool {
	if rec.InstanceID != p.InstanceID {
		return false
	}
	if !p.Access.Matches(rec.Access()) {
		return false
	}
	if p.Group != 0 && rec.GroupID != p.Group && rec.GroupID != 0 {
		return false
	}
	return eval(p.Where, rec)
}

func eval(pred Predicate, rec *entry.Record) bool {
	switch x := pred.(type) {
	case nil:
		return true
	case FieldMatch:
		s, ok := rec.Slots(x.FieldID)
		return ok && field.Eval(x.Expr, s)
	case OwnerMatch:
		name := rec.Owner.FirstName
		if x.Part == LastName {
			name = rec.Owner.LastName
		}
		return strings.Contains(strings.ToLower(name), strings.ToLower(x.Term))
	case And:
		for _, m := range x {
			if !eval(m, rec) {
				return false
			}
		}
		return true
	case Or:
		for _, m := range x {
			if eval(m, rec) {
				return true
			}
		}
		return false
	}
	return false
}
