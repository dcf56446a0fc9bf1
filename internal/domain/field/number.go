package field

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a decimal number.
//
// Params: param1 decimal places used when rendering, param2 minimum, param3 maximum.
// Slots: content = number in shortest decimal form.
//
// Search criteria: "n" (exact), "a..b", "a..", "..b" (inclusive ranges).
type Number struct{}

func (Number) Name() string { return NumberTypeName }

func (Number) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Sort: SortNumeric, Layout: [5]string{"number"}}
}

func (Number) Validate(def Definition, in Input) (Value, []error) {
	raw := in.Get(SubValue)
	if raw == "" {
		return Value{Blank: true}, nil
	}
	n, err := parseFinite(raw)
	if err != nil {
		return Value{}, []error{ErrInvalidNumber}
	}
	var errs []error
	if lo, ok := paramFloat(def, 2); ok && n < lo {
		errs = append(errs, fmt.Errorf("%w: below minimum %v", ErrOutOfRange, lo))
	}
	if hi, ok := paramFloat(def, 3); ok && n > hi {
		errs = append(errs, fmt.Errorf("%w: above maximum %v", ErrOutOfRange, hi))
	}
	if len(errs) > 0 {
		return Value{}, errs
	}
	return Value{Number: n}, nil
}

func (Number) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(strconv.FormatFloat(v.Number, 'f', -1, 64))
}

func (Number) FromStorage(_ Definition, s Slots) Value {
	n, _ := strconv.ParseFloat(s.Get(SlotContent), 64)
	return Value{Number: n}
}

func (Number) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil
	}
	lo, hi, hasLo, hasHi, err := parseRange(criterion, parseFinite)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCriterion, criterion)
	}
	return rangeExpr(lo, hi, hasLo, hasHi, false), nil
}

func (Number) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (Number) Render(_ context.Context, def Definition, v Value, _ RenderContext) string {
	if places, err := strconv.Atoi(strings.TrimSpace(def.Param(1))); err == nil && places >= 0 {
		return strconv.FormatFloat(v.Number, 'f', places, 64)
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

func (Number) ExportText(_ Definition, v Value) string {
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

func paramFloat(def Definition, n int) (float64, bool) {
	raw := strings.TrimSpace(def.Param(n))
	if raw == "" {
		return 0, false
	}
	f, err := parseFinite(raw)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseFinite parses a decimal number, rejecting NaN and infinities.
func parseFinite(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// parseRange parses "x", "a..b", "a.." or "..b". A single value yields lo == hi.
func parseRange(criterion string, parse func(string) (float64, error)) (lo, hi float64, hasLo, hasHi bool, err error) {
	left, right, isRange := strings.Cut(criterion, "..")
	if !isRange {
		v, err := parse(criterion)
		if err != nil {
			return 0, 0, false, false, err
		}
		return v, v, true, true, nil
	}
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)
	if left == "" && right == "" {
		return 0, 0, false, false, ErrInvalidCriterion
	}
	if left != "" {
		if lo, err = parse(left); err != nil {
			return 0, 0, false, false, err
		}
		hasLo = true
	}
	if right != "" {
		if hi, err = parse(right); err != nil {
			return 0, 0, false, false, err
		}
		hasHi = true
	}
	return lo, hi, hasLo, hasHi, nil
}

// rangeExpr bounds the content slot numerically; exclusiveHi makes the upper bound open.
func rangeExpr(lo, hi float64, hasLo, hasHi, exclusiveHi bool) Expr {
	var all All
	if hasLo {
		all = append(all, Cond{Slot: SlotContent, Op: OpAtLeast, Number: lo})
	}
	if hasHi {
		op := OpAtMost
		if exclusiveHi {
			op = OpBelow
		}
		all = append(all, Cond{Slot: SlotContent, Op: op, Number: hi})
	}
	if len(all) == 1 {
		return all[0]
	}
	return all
}
