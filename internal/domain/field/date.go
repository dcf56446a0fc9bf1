package field

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day.
//
// Input: "YYYY-MM-DD" or unix seconds.
// Slots: content = unix seconds of midnight UTC.
//
// Search criteria: "YYYY-MM-DD" (that day), "a..b", "a..", "..b" (inclusive days).
type Date struct{}

func (Date) Name() string { return DateTypeName }

func (Date) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Sort: SortNumeric, Layout: [5]string{"timestamp"}}
}

func (Date) Validate(_ Definition, in Input) (Value, []error) {
	raw := in.Get(SubValue)
	if raw == "" {
		return Value{Blank: true}, nil
	}
	t, err := parseDay(raw)
	if err != nil {
		return Value{}, []error{ErrInvalidDate}
	}
	return Value{Time: t}, nil
}

func (Date) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(strconv.FormatInt(v.Time.Unix(), 10))
}

func (Date) FromStorage(_ Definition, s Slots) Value {
	sec, _ := strconv.ParseInt(s.Get(SlotContent), 10, 64)
	return Value{Time: time.Unix(sec, 0).UTC()}
}

func (Date) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil
	}
	lo, hi, hasLo, hasHi, err := parseRange(criterion, func(s string) (float64, error) {
		t, err := parseDay(s)
		if err != nil {
			return 0, err
		}
		return float64(t.Unix()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCriterion, criterion)
	}
	// upper bound covers the whole last day
	return rangeExpr(lo, hi+24*60*60, hasLo, hasHi, true), nil
}

// TextPredicate is nil: stored timestamps carry no readable text; free text still
// reaches dates through SearchPredicate.
func (Date) TextPredicate(_ Definition, _ string) Expr { return nil }

func (Date) Render(_ context.Context, _ Definition, v Value, rc RenderContext) string {
	return escape(rc.formatTime(v.Time))
}

func (Date) ExportText(_ Definition, v Value) string {
	return v.Time.UTC().Format(dateLayout)
}

func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Unix(sec, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
