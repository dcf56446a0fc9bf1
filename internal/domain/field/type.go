package field

import (
	"context"
	"html"
	"time"
)

// Type is the behaviour set of one field type. Implementations are stateless;
// per-field configuration arrives through the Definition.
type Type interface {
	Name() string
	Capabilities() Capabilities
	// Validate checks raw input. A Value with Blank set means nothing was entered.
	Validate(def Definition, in Input) (Value, []error)
	ToStorage(def Definition, v Value) Slots
	FromStorage(def Definition, s Slots) Value
	// SearchPredicate compiles an advanced-search criterion. A nil Expr with a nil
	// error means the criterion contributes nothing.
	SearchPredicate(def Definition, criterion string) (Expr, error)
	// TextPredicate is the free-text match for term, nil when the type is not searchable.
	TextPredicate(def Definition, term string) Expr
	Render(ctx context.Context, def Definition, v Value, rc RenderContext) string
	ExportText(def Definition, v Value) string
}

// FileLinker resolves stored blob references to URLs.
type FileLinker interface {
	FileURL(ctx context.Context, ref string) (string, error)
}

// RenderContext carries per-request presentation settings.
type RenderContext struct {
	RecordID   int64
	Files      FileLinker
	DateFormat string
	Location   *time.Location
}

func (rc RenderContext) formatTime(t time.Time) string {
	layout := rc.DateFormat
	if layout == "" {
		layout = "2 January 2006"
	}
	loc := rc.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

func (rc RenderContext) fileURL(ctx context.Context, ref string) string {
	if rc.Files == nil || ref == "" {
		return ""
	}
	u, err := rc.Files.FileURL(ctx, ref)
	if err != nil {
		return ""
	}
	return u
}

// Field binds a definition to its resolved type.
type Field struct {
	Definition
	Kind Type
}

// Known reports whether the definition resolved to a registered type.
func (f Field) Known() bool {
	return f.Kind != nil && f.Kind.Name() != UnknownTypeName
}

// Validate runs the type validation plus the required rule.
func (f Field) Validate(in Input) (Value, ValidationErrors) {
	if !f.Known() {
		return Value{Blank: true}, nil
	}
	v, errs := f.Kind.Validate(f.Definition, in)
	var out ValidationErrors
	for _, err := range errs {
		out = append(out, ValidationError{Field: f.Name, Err: err})
	}
	if len(out) == 0 && v.Blank && f.Required {
		out = append(out, ValidationError{Field: f.Name, Err: ErrRequired})
	}
	return v, out
}

// Store converts a validated value to its stored shape.
func (f Field) Store(v Value) Slots {
	return f.Kind.ToStorage(f.Definition, v)
}

// Load converts a stored row to a value.
func (f Field) Load(s Slots) Value {
	return f.Kind.FromStorage(f.Definition, s)
}

// Render renders a stored row for display.
func (f Field) Render(ctx context.Context, s Slots, rc RenderContext) string {
	if !f.Known() {
		return ""
	}
	return f.Kind.Render(ctx, f.Definition, f.Load(s), rc)
}

// FullTextPredicate matches term against this field: the type's text match OR its
// own advanced predicate for the same term.
func (f Field) FullTextPredicate(term string) Expr {
	if !f.Known() || !f.Kind.Capabilities().Searchable {
		return nil
	}
	var alts Any
	if e := f.Kind.TextPredicate(f.Definition, term); e != nil {
		alts = append(alts, e)
	}
	if e, err := f.Kind.SearchPredicate(f.Definition, term); err == nil && e != nil {
		alts = append(alts, e)
	}
	switch len(alts) {
	case 0:
		return nil
	case 1:
		return alts[0]
	default:
		return alts
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
