package field

import (
	"context"
	"fmt"
	"strings"
)

// attachment is shared by file and picture.
//
// Input: primary value = file name, "caption" = display text, "ref" = blob reference
// returned by the file store.
// Slots: content = file name, content1 = caption, content2 = blob reference.
type attachment struct{}

func (attachment) Validate(_ Definition, in Input) (Value, []error) {
	name := in.Get(SubValue)
	if name == "" {
		return Value{Blank: true}, nil
	}
	if strings.ContainsAny(name, `/\`) {
		return Value{}, []error{fmt.Errorf("%w: %q", ErrInvalidFileName, name)}
	}
	return Value{Text: name, Label: in.Get(SubCaption), Ref: in.Get(SubRef)}, nil
}

func (attachment) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(v.Text, v.Label, v.Ref)
}

func (attachment) FromStorage(_ Definition, s Slots) Value {
	return Value{Text: s.Get(SlotContent), Label: s.Get(SlotContent1), Ref: s.Get(SlotContent2)}
}

func (attachment) ExportText(_ Definition, v Value) string { return v.Text }

// File is an uploaded file shown as a download link.
type File struct{ attachment }

func (File) Name() string { return FileTypeName }

func (File) Capabilities() Capabilities {
	return Capabilities{Searchable: true, FileAttachable: true, Layout: [5]string{"filename", "caption", "ref"}}
}

func (File) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	return containsCriterion(criterion)
}

func (File) TextPredicate(_ Definition, term string) Expr { return contains(SlotContent, term) }

func (File) Render(ctx context.Context, _ Definition, v Value, rc RenderContext) string {
	text := v.Label
	if text == "" {
		text = v.Text
	}
	u := rc.fileURL(ctx, v.Ref)
	if u == "" {
		return escape(text)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, escape(u), escape(text))
}

// Picture is an uploaded image.
//
// Params: param1 display width, param2 display height (pixels, optional).
type Picture struct{ attachment }

func (Picture) Name() string { return PictureTypeName }

func (Picture) Capabilities() Capabilities {
	return Capabilities{FileAttachable: true, Layout: [5]string{"filename", "alt", "ref"}}
}

func (Picture) SearchPredicate(_ Definition, _ string) (Expr, error) {
	return nil, ErrNotSearchable
}

func (Picture) TextPredicate(_ Definition, _ string) Expr { return nil }

func (Picture) Render(ctx context.Context, def Definition, v Value, rc RenderContext) string {
	u := rc.fileURL(ctx, v.Ref)
	if u == "" {
		return escape(v.Text)
	}
	alt := v.Label
	if alt == "" {
		alt = v.Text
	}
	var size strings.Builder
	if w := strings.TrimSpace(def.Param(1)); w != "" {
		fmt.Fprintf(&size, ` width="%s"`, escape(w))
	}
	if h := strings.TrimSpace(def.Param(2)); h != "" {
		fmt.Fprintf(&size, ` height="%s"`, escape(h))
	}
	return fmt.Sprintf(`<img src="%s" alt="%s"%s />`, escape(u), escape(alt), size.String())
}
