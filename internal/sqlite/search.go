package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/query"
)

// SearchRepository implements query.Searcher for SQLite
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search returns one page of the records matching the plan, fully loaded.
func (r *SearchRepository) Search(ctx context.Context, plan query.Plan) ([]entry.Record, error) {
	var b sqlBuilder
	order := b.orderBy(plan.Sort)
	where := b.filters(plan)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + recordColumns + ` ` + recordFrom)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	if plan.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		b.args = append(b.args, plan.Limit, plan.Offset)
	} else if plan.Offset > 0 {
		sb.WriteString(" LIMIT -1 OFFSET ?")
		b.args = append(b.args, plan.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), b.all()...)
	if err != nil {
		return nil, fmt.Errorf("failed to search records: %w", err)
	}

	var records []entry.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	if err := hydrate(ctx, r.db, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records matching the plan, ignoring pagination.
func (r *SearchRepository) Count(ctx context.Context, plan query.Plan) (int, error) {
	var b sqlBuilder
	where := b.filters(plan)

	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+recordFrom+` WHERE `+where, b.all()...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// sqlBuilder accumulates joins and the positional arguments that go with them.
// Join arguments always precede WHERE arguments in the final statement.
type sqlBuilder struct {
	joins    []string
	joinArgs []any
	args     []any
}

func (b *sqlBuilder) all() []any {
	return append(append([]any{}, b.joinArgs...), b.args...)
}

func (b *sqlBuilder) filters(plan query.Plan) string {
	conditions := []string{"r.instance_id = ?"}
	b.args = append(b.args, plan.InstanceID)

	if c := b.accessFilter(plan.Access); c != "" {
		conditions = append(conditions, c)
	}
	if plan.Group != 0 {
		conditions = append(conditions, "(r.group_id = ? OR r.group_id = 0)")
		b.args = append(b.args, plan.Group)
	}
	if plan.Where != nil {
		conditions = append(conditions, b.predicate(plan.Where))
	}
	return strings.Join(conditions, " AND ")
}

func (b *sqlBuilder) accessFilter(f access.Filter) string {
	if f.Unrestricted {
		return ""
	}
	if f.Closed {
		return "0 = 1"
	}

	var conditions []string
	if f.ApprovedOrOwner {
		if f.Owner == "" {
			conditions = append(conditions, "r.approved = 1")
		} else {
			conditions = append(conditions, "(r.approved = 1 OR r.user_id = ?)")
			b.args = append(b.args, f.Owner)
		}
	}
	if !f.Groups.All {
		in := []string{"0"}
		for _, id := range f.Groups.IDs {
			in = append(in, "?")
			b.args = append(b.args, id)
		}
		conditions = append(conditions, "r.group_id IN ("+strings.Join(in, ", ")+")")
	}
	return strings.Join(conditions, " AND ")
}

func (b *sqlBuilder) predicate(p query.Predicate) string {
	switch x := p.(type) {
	case nil:
		return "1 = 1"
	case query.FieldMatch:
		b.args = append(b.args, x.FieldID)
		return "EXISTS (SELECT 1 FROM contents c WHERE c.record_id = r.id AND c.field_id = ? AND " + b.expr(x.Expr) + ")"
	case query.OwnerMatch:
		col := "COALESCE(u.first_name, '')"
		if x.Part == query.LastName {
			col = "COALESCE(u.last_name, '')"
		}
		b.args = append(b.args, "%"+escapeLike(x.Term)+"%")
		return col + ` LIKE ? ESCAPE '\'`
	case query.And:
		return b.join(len(x), " AND ", "1 = 1", func(i int) string { return b.predicate(x[i]) })
	case query.Or:
		return b.join(len(x), " OR ", "0 = 1", func(i int) string { return b.predicate(x[i]) })
	default:
		return "0 = 1"
	}
}

func (b *sqlBuilder) expr(e field.Expr) string {
	switch x := e.(type) {
	case nil:
		return "1 = 1"
	case field.Cond:
		return b.cond(x)
	case field.All:
		return b.join(len(x), " AND ", "1 = 1", func(i int) string { return b.expr(x[i]) })
	case field.Any:
		return b.join(len(x), " OR ", "0 = 1", func(i int) string { return b.expr(x[i]) })
	default:
		return "0 = 1"
	}
}

func (b *sqlBuilder) cond(c field.Cond) string {
	col := "c." + c.Slot.Column()
	switch c.Op {
	case field.OpEqual:
		b.args = append(b.args, c.Value)
		return col + " = ?"
	case field.OpContains:
		b.args = append(b.args, "%"+escapeLike(c.Value)+"%")
		return col + ` LIKE ? ESCAPE '\'`
	case field.OpPrefix:
		b.args = append(b.args, escapeLike(c.Value)+"%")
		return col + ` LIKE ? ESCAPE '\'`
	case field.OpSuffix:
		b.args = append(b.args, "%"+escapeLike(c.Value))
		return col + ` LIKE ? ESCAPE '\'`
	case field.OpMember:
		b.args = append(b.args, "##"+c.Value+"##")
		return "instr('##' || " + col + " || '##', ?) > 0"
	case field.OpAtLeast:
		b.args = append(b.args, c.Number)
		return "CAST(" + col + " AS REAL) >= ?"
	case field.OpAtMost:
		b.args = append(b.args, c.Number)
		return "CAST(" + col + " AS REAL) <= ?"
	case field.OpBelow:
		b.args = append(b.args, c.Number)
		return "CAST(" + col + " AS REAL) < ?"
	default:
		return "0 = 1"
	}
}

func (b *sqlBuilder) join(n int, sep, empty string, part func(int) string) string {
	if n == 0 {
		return empty
	}
	parts := make([]string, n)
	for i := range n {
		parts[i] = part(i)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// orderBy adds the sort join when needed. Records without content for the sort
// field come last in both directions.
func (b *sqlBuilder) orderBy(s query.SortSpec) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	var key string
	switch s.Key {
	case query.SortTimeAdded:
		key = "r.created_at " + dir
	case query.SortFirstName:
		key = "COALESCE(u.first_name, '') " + dir
	case query.SortLastName:
		key = "COALESCE(u.last_name, '') " + dir
	case query.SortApproved:
		key = "r.approved " + dir
	case query.SortTimeModified:
		key = "r.modified_at " + dir
	default:
		b.joins = append(b.joins, "LEFT JOIN contents sc ON sc.record_id = r.id AND sc.field_id = ?")
		b.joinArgs = append(b.joinArgs, s.Key)
		value := "sc.content"
		if s.Kind == field.SortNumeric {
			value = "CAST(sc.content AS REAL)"
		}
		key = "(sc.content IS NULL) ASC, " + value + " " + dir
	}
	return key + ", r.id " + dir
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
