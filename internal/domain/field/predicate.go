package field

import (
	"strconv"
	"strings"
)

// Op is a comparison applied to one content slot.
type Op int

const (
	// OpEqual is exact, case-sensitive string equality.
	OpEqual Op = iota
	// OpContains is case-insensitive substring match.
	OpContains
	// OpPrefix is case-insensitive prefix match.
	OpPrefix
	// OpSuffix is case-insensitive suffix match.
	OpSuffix
	// OpAtLeast compares the slot as a number, inclusive lower bound.
	OpAtLeast
	// OpAtMost compares the slot as a number, inclusive upper bound.
	OpAtMost
	// OpBelow compares the slot as a number, exclusive upper bound.
	OpBelow
	// OpMember is case-sensitive membership of Value in a "##"-joined set.
	OpMember
)

// Expr is a predicate over the content row of a single field.
type Expr interface {
	isExpr()
}

// Cond compares one slot against a value.
type Cond struct {
	Slot   Slot
	Op     Op
	Value  string
	Number float64
}

// All matches when every member matches.
type All []Expr

// Any matches when at least one member matches.
type Any []Expr

func (Cond) isExpr() {}
func (All) isExpr()  {}
func (Any) isExpr()  {}

// Eval applies e to a stored row. It mirrors the SQL compilation so predicates can
// be checked without a database.
func Eval(e Expr, s Slots) bool {
	switch x := e.(type) {
	case nil:
		return true
	case Cond:
		return evalCond(x, s)
	case All:
		for _, m := range x {
			if !Eval(m, s) {
				return false
			}
		}
		return true
	case Any:
		for _, m := range x {
			if Eval(m, s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalCond(c Cond, s Slots) bool {
	if !s.Has(c.Slot) {
		return false
	}
	v := s.Get(c.Slot)
	switch c.Op {
	case OpEqual:
		return v == c.Value
	case OpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case OpPrefix:
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(c.Value))
	case OpSuffix:
		return strings.HasSuffix(strings.ToLower(v), strings.ToLower(c.Value))
	case OpAtLeast:
		return numeric(v) >= c.Number
	case OpAtMost:
		return numeric(v) <= c.Number
	case OpBelow:
		return numeric(v) < c.Number
	case OpMember:
		return strings.Contains(multiSep+v+multiSep, multiSep+c.Value+multiSep)
	default:
		return false
	}
}

// numeric parses the leading number like SQLite CAST(x AS REAL); garbage is 0.
func numeric(v string) float64 {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) {
		c := v[end]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || ((c == '-' || c == '+') && (end == 0 || v[end-1] == 'e' || v[end-1] == 'E')) {
			end++
			continue
		}
		break
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(v[:end], 64); err == nil {
			return f
		}
		end--
	}
	return 0
}

// memberOf matches a "##"-joined set containing opt.
func memberOf(slot Slot, opt string) Expr {
	return Cond{Slot: slot, Op: OpMember, Value: opt}
}

func contains(slot Slot, term string) Expr {
	return Cond{Slot: slot, Op: OpContains, Value: term}
}
