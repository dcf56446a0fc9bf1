package field

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Type names of the built-in types.
const (
	TextTypeName        = "text"
	TextareaTypeName    = "textarea"
	NumberTypeName      = "number"
	URLTypeName         = "url"
	DateTypeName        = "date"
	MenuTypeName        = "menu"
	RadioButtonTypeName = "radiobutton"
	CheckboxTypeName    = "checkbox"
	MultiMenuTypeName   = "multimenu"
	LatLongTypeName     = "latlong"
	FileTypeName        = "file"
	PictureTypeName     = "picture"
	UnknownTypeName     = "unknown"
)

// Text is a single line of free text.
//
// Params: param2 maximum length in characters (0 or empty = unlimited).
// Slots: content = text.
type Text struct{}

func (Text) Name() string { return TextTypeName }

func (Text) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"text"}}
}

func (Text) Validate(def Definition, in Input) (Value, []error) {
	return validateText(def, in)
}

func (Text) ToStorage(_ Definition, v Value) Slots { return NewSlots(v.Text) }

func (Text) FromStorage(_ Definition, s Slots) Value {
	return Value{Text: s.Get(SlotContent)}
}

func (Text) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	return containsCriterion(criterion)
}

func (Text) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (Text) Render(_ context.Context, _ Definition, v Value, _ RenderContext) string {
	return escape(v.Text)
}

func (Text) ExportText(_ Definition, v Value) string { return v.Text }

// Textarea is multi-line text rendered with line breaks.
//
// Params: param2 maximum length in characters.
// Slots: content = text.
type Textarea struct{}

func (Textarea) Name() string { return TextareaTypeName }

func (Textarea) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"text"}}
}

func (Textarea) Validate(def Definition, in Input) (Value, []error) {
	vs := in[SubValue]
	if len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
		return Value{Blank: true}, nil
	}
	// keep interior whitespace, only normalise line endings
	text := strings.ReplaceAll(vs[0], "\r\n", "\n")
	if err := checkLength(def, text); err != nil {
		return Value{}, []error{err}
	}
	return Value{Text: text}, nil
}

func (Textarea) ToStorage(_ Definition, v Value) Slots { return NewSlots(v.Text) }

func (Textarea) FromStorage(_ Definition, s Slots) Value {
	return Value{Text: s.Get(SlotContent)}
}

func (Textarea) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	return containsCriterion(criterion)
}

func (Textarea) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (Textarea) Render(_ context.Context, _ Definition, v Value, _ RenderContext) string {
	return strings.ReplaceAll(escape(v.Text), "\n", "<br />")
}

func (Textarea) ExportText(_ Definition, v Value) string { return v.Text }

func validateText(def Definition, in Input) (Value, []error) {
	text := in.Get(SubValue)
	if text == "" {
		return Value{Blank: true}, nil
	}
	if err := checkLength(def, text); err != nil {
		return Value{}, []error{err}
	}
	return Value{Text: text}, nil
}

func checkLength(def Definition, text string) error {
	limit, err := strconv.Atoi(strings.TrimSpace(def.Param(2)))
	if err != nil || limit <= 0 {
		return nil
	}
	if utf8.RuneCountInString(text) > limit {
		return ErrTooLong
	}
	return nil
}

func containsCriterion(criterion string) (Expr, error) {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return nil, nil
	}
	return contains(SlotContent, criterion), nil
}
