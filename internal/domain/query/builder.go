package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/instance"
)

// Build compiles a request against a schema and the access policy of the request.
func Build(schema *instance.Schema, policy *access.Policy, req Request) (Plan, error) {
	filter := policy.ViewFilter(req.Actor)
	if filter.Closed {
		return Plan{}, entry.ErrAccessDenied
	}
	if req.GroupID != 0 && !policy.GroupVisible(req.Actor, req.GroupID) {
		return Plan{}, entry.ErrAccessDenied
	}

	plan := Plan{
		InstanceID: schema.Instance.ID,
		Access:     filter,
		Group:      req.GroupID,
		Sort:       buildSort(schema, req),
	}

	var err error
	if len(req.Criteria) > 0 {
		plan.Where, err = criteriaPredicate(schema, req.Criteria)
		if err != nil {
			return Plan{}, err
		}
	} else if term := strings.TrimSpace(req.Search); term != "" {
		plan.Where = textPredicate(schema, term)
	}

	page, size := max(req.Page, 0), max(req.PageSize, 0)
	plan.Limit = size
	plan.Offset = page * size
	if size > 0 && page > math.MaxInt/size {
		plan.Offset = math.MaxInt
	}
	return plan, nil
}

func criteriaPredicate(schema *instance.Schema, criteria []Criterion) (Predicate, error) {
	var preds And
	for _, c := range criteria {
		value := strings.TrimSpace(c.Value)
		if value == "" {
			continue
		}
		switch c.FieldKey {
		case KeyFirstName:
			preds = append(preds, OwnerMatch{Part: FirstName, Term: value})
			continue
		case KeyLastName:
			preds = append(preds, OwnerMatch{Part: LastName, Term: value})
			continue
		}

		id, err := strconv.ParseInt(c.FieldKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCriterion, c.FieldKey)
		}
		f, ok := schema.FieldByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", instance.ErrFieldNotFound, id)
		}
		expr, err := f.Kind.SearchPredicate(f.Definition, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if expr == nil {
			continue
		}
		preds = append(preds, FieldMatch{FieldID: f.ID, Expr: expr})
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return preds, nil
}

// textPredicate ORs the term across every searchable field and the owner's name.
func textPredicate(schema *instance.Schema, term string) Predicate {
	alts := Or{
		OwnerMatch{Part: FirstName, Term: term},
		OwnerMatch{Part: LastName, Term: term},
	}
	for _, f := range schema.Fields {
		if expr := f.FullTextPredicate(term); expr != nil {
			alts = append(alts, FieldMatch{FieldID: f.ID, Expr: expr})
		}
	}
	return alts
}

func buildSort(schema *instance.Schema, req Request) SortSpec {
	dir := req.Direction
	if !dir.Valid() {
		dir = schema.Instance.DefaultSortDir
	}
	spec := SortSpec{Key: SortTimeAdded, Desc: dir == instance.Descending}

	key := schema.Instance.DefaultSort
	if req.SortKey != nil && validSortKey(schema, *req.SortKey) {
		key = *req.SortKey
	}
	if !validSortKey(schema, key) {
		return spec
	}
	spec.Key = key
	if f, ok := schema.FieldByID(key); ok && key > 0 {
		spec.Kind = f.Kind.Capabilities().Sort
	}
	return spec
}

func validSortKey(schema *instance.Schema, key int64) bool {
	if key <= 0 {
		return key >= SortTimeModified
	}
	f, ok := schema.FieldByID(key)
	return ok && f.Known()
}
