package field

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// URL is a web link with an optional display name.
//
// Params: param1 "1" forces the field name as link text, param3 "1" opens links in a
// new window.
// Slots: content = normalised URL, content1 = link text.
type URL struct{}

func (URL) Name() string { return URLTypeName }

func (URL) Capabilities() Capabilities {
	return Capabilities{Searchable: true, TextExportable: true, Layout: [5]string{"url", "text"}}
}

func (URL) Validate(_ Definition, in Input) (Value, []error) {
	raw := in.Get(SubValue)
	if raw == "" {
		return Value{Blank: true}, nil
	}
	if !strings.Contains(raw, "://") && !hasMailto(raw) {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !linkable(u) {
		return Value{}, []error{ErrInvalidURL}
	}
	return Value{Text: u.String(), Label: in.Get(SubLabel)}, nil
}

var linkSchemes = map[string]bool{"http": true, "https": true, "ftp": true}

func hasMailto(raw string) bool {
	return len(raw) > len("mailto:") && strings.EqualFold(raw[:len("mailto:")], "mailto:")
}

// linkable reports whether u is safe to place in an href.
func linkable(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	if scheme == "mailto" {
		return u.Opaque != "" && !strings.ContainsAny(u.Opaque, " \t")
	}
	return linkSchemes[scheme] && u.Host != "" && !strings.ContainsAny(u.Host, " \t")
}

func (URL) ToStorage(_ Definition, v Value) Slots {
	return NewSlots(v.Text, v.Label)
}

func (URL) FromStorage(_ Definition, s Slots) Value {
	return Value{Text: s.Get(SlotContent), Label: s.Get(SlotContent1)}
}

func (URL) SearchPredicate(_ Definition, criterion string) (Expr, error) {
	return containsCriterion(criterion)
}

func (URL) TextPredicate(_ Definition, term string) Expr {
	return Any{contains(SlotContent, term), contains(SlotContent1, term)}
}

func (URL) Render(_ context.Context, def Definition, v Value, _ RenderContext) string {
	text := v.Label
	if def.Param(1) == "1" {
		text = def.Name
	}
	if text == "" {
		text = v.Text
	}
	if u, err := url.Parse(v.Text); err != nil || !linkable(u) {
		return escape(text)
	}
	target := ""
	if def.Param(3) == "1" {
		target = ` target="_blank"`
	}
	return fmt.Sprintf(`<a href="%s"%s>%s</a>`, escape(v.Text), target, escape(text))
}

func (URL) ExportText(_ Definition, v Value) string { return v.Text }
