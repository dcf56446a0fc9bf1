package field

import "context"

// Unknown stands in for a definition whose type is not registered. Every operation
// is a no-op so one bad definition cannot break schema-wide work.
type Unknown struct{}

func (Unknown) Name() string { return UnknownTypeName }

func (Unknown) Capabilities() Capabilities { return Capabilities{} }

func (Unknown) Validate(_ Definition, _ Input) (Value, []error) {
	return Value{Blank: true}, nil
}

func (Unknown) ToStorage(_ Definition, _ Value) Slots { return Slots{} }

func (Unknown) FromStorage(_ Definition, _ Slots) Value { return Value{Blank: true} }

func (Unknown) SearchPredicate(_ Definition, _ string) (Expr, error) { return nil, nil }

func (Unknown) TextPredicate(_ Definition, _ string) Expr { return nil }

func (Unknown) Render(_ context.Context, _ Definition, _ Value, _ RenderContext) string {
	return ""
}

func (Unknown) ExportText(_ Definition, _ Value) string { return "" }
