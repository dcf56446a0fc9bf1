package field

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const multiSep = "##"

// allPrefix marks a multi-choice criterion that requires every listed option.
const allPrefix = "all:"

// singleChoice is shared by menu and radiobutton.
//
// Params: param1 newline-separated options.
// Slots: content = chosen option.
type singleChoice struct{}

func (singleChoice) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"option"}}
}

func (singleChoice) Validate(def Definition, in Input) (Value, []error) {
	choice := in.Get(SubValue)
	if choice == "" {
		return Value{Blank: true}, nil
	}
	if !slices.Contains(def.Options(), choice) {
		return Value{}, []error{fmt.Errorf("%w: %q", ErrInvalidOption, choice)}
	}
	return Value{Text: choice}, nil
}

func (singleChoice) ToStorage(_ Definition, v Value) Slots { return NewSlots(v.Text) }

func (singleChoice) FromStorage(_ Definition, s Slots) Value {
	return Value{Text: s.Get(SlotContent)}
}

func (singleChoice) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil
	}
	return Cond{Slot: SlotContent, Op: OpEqual, Value: criterion}, nil
}

func (singleChoice) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (singleChoice) Render(_ context.Context, _ Definition, v Value, _ RenderContext) string {
	return escape(v.Text)
}

func (singleChoice) ExportText(_ Definition, v Value) string { return v.Text }

// Menu is a drop-down single choice.
type Menu struct{ singleChoice }

func (Menu) Name() string { return MenuTypeName }

// RadioButton is a radio-group single choice.
type RadioButton struct{ singleChoice }

func (RadioButton) Name() string { return RadioButtonTypeName }

// multiChoice is shared by checkbox and multimenu.
//
// Params: param1 newline-separated options.
// Slots: content = chosen options joined with "##", in option order.
//
// Search criteria: options joined with "##" match records holding any of them;
// an "all:" prefix requires every listed option.
type multiChoice struct{}

func (multiChoice) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"options"}}
}

func (multiChoice) Validate(def Definition, in Input) (Value, []error) {
	chosen := in.Values(SubValue)
	if len(chosen) == 0 {
		return Value{Blank: true}, nil
	}
	opts := def.Options()
	var errs []error
	for _, c := range chosen {
		if !slices.Contains(opts, c) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidOption, c))
		}
	}
	if len(errs) > 0 {
		return Value{}, errs
	}
	var ordered []string
	for _, o := range opts {
		if slices.Contains(chosen, o) {
			ordered = append(ordered, o)
		}
	}
	return Value{Options: ordered}, nil
}

func (multiChoice) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(strings.Join(v.Options, multiSep))
}

func (multiChoice) FromStorage(_ Definition, s Slots) Value {
	raw := s.Get(SlotContent)
	if raw == "" {
		return Value{}
	}
	return Value{Options: strings.Split(raw, multiSep)}
}

func (multiChoice) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	requireAll := strings.HasPrefix(criterion, allPrefix)
	criterion = strings.TrimPrefix(criterion, allPrefix)
	var members []Expr
	for _, opt := range strings.Split(criterion, multiSep) {
		if opt = strings.TrimSpace(opt); opt != "" {
			members = append(members, memberOf(SlotContent, opt))
		}
	}
	switch {
	case len(members) == 0:
		return nil, nil
	case len(members) == 1:
		return members[0], nil
	case requireAll:
		return All(members), nil
	default:
		return Any(members), nil
	}
}

func (multiChoice) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (multiChoice) Render(_ context.Context, _ Definition, v Value, _ RenderContext) string {
	parts := make([]string, 0, len(v.Options))
	for _, o := range v.Options {
		parts = append(parts, escape(o))
	}
	return strings.Join(parts, "<br />")
}

func (multiChoice) ExportText(_ Definition, v Value) string {
	return strings.Join(v.Options, multiSep)
}

// Checkbox is a set of checkboxes.
type Checkbox struct{ multiChoice }

func (Checkbox) Name() string { return CheckboxTypeName }

// MultiMenu is a multi-select list.
type MultiMenu struct{ multiChoice }

func (MultiMenu) Name() string { return MultiMenuTypeName }
