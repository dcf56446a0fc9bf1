package render

import (
	"context"
	"fmt"
	"html"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/template"
)

// Options are the presentation settings of an engine.
type Options struct {
	// BaseURL prefixes every generated link.
	BaseURL string
	// DateFormat is the layout for date field values.
	DateFormat string
	// TimeFormat is the layout for ##timeadded## and ##timemodified##.
	TimeFormat       string
	ApprovedLabel    string
	NotApprovedLabel string
	Location         *time.Location
	// OnUnresolved is called once per tag left as literal text at compile time.
	OnUnresolved func(name template.Name)
}

func (o Options) withDefaults() Options {
	if o.TimeFormat == "" {
		o.TimeFormat = "2 January 2006, 3:04 PM"
	}
	if o.ApprovedLabel == "" {
		o.ApprovedLabel = "Approved"
	}
	if o.NotApprovedLabel == "" {
		o.NotApprovedLabel = "Pending approval"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

// Engine renders templates against records.
type Engine struct {
	opts   Options
	files  field.FileLinker
	logger *slog.Logger
}

// NewEngine creates an engine. files may be nil, in which case attachments render
// without links.
func NewEngine(opts Options, files field.FileLinker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{opts: opts.withDefaults(), files: files, logger: logger}
}

// View is the per-request context a template is rendered in.
type View struct {
	Schema *instance.Schema
	Policy *access.Policy
	Actor  access.Actor
}

// Compiled is a tokenized template bound to a schema. It holds no per-record state
// and may be rendered any number of times.
type Compiled struct {
	engine     *Engine
	name       template.Name
	tokens     []template.Token
	referenced map[string]bool
}

// Compile tokenizes body. Tags naming fields the schema does not have are logged
// and left as literal text.
func (e *Engine) Compile(schema *instance.Schema, name template.Name, body string) *Compiled {
	toks := template.Tokenize(body)
	c := &Compiled{engine: e, name: name, tokens: toks, referenced: map[string]bool{}}
	for _, n := range template.FieldNames(toks) {
		c.referenced[n] = true
	}
	for _, t := range toks {
		if t.Kind != template.FieldTag && t.Kind != template.FieldInfo {
			continue
		}
		if _, ok := schema.FieldByName(t.Field); !ok {
			e.logger.Debug("template tag unresolved", "template", name, "token", t.Text)
			if e.opts.OnUnresolved != nil {
				e.opts.OnUnresolved(name)
			}
		}
	}
	return c
}

// Fragments yields one rendered fragment per record, in input order.
func (c *Compiled) Fragments(ctx context.Context, v View, records []entry.Record) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := range records {
			if !yield(c.Render(ctx, v, &records[i])) {
				return
			}
		}
	}
}

// Render renders the template for one record. A nil record renders the record
// independent parts only.
func (c *Compiled) Render(ctx context.Context, v View, rec *entry.Record) string {
	var b strings.Builder
	for _, t := range c.tokens {
		b.WriteString(c.resolve(ctx, v, rec, t))
	}
	return b.String()
}

func (c *Compiled) resolve(ctx context.Context, v View, rec *entry.Record, t template.Token) string {
	switch t.Kind {
	case template.FieldTag:
		f, ok := v.Schema.FieldByName(t.Field)
		if !ok {
			return t.Text
		}
		return c.fieldValue(ctx, f, rec)
	case template.FieldInfo:
		f, ok := v.Schema.FieldByName(t.Field)
		if !ok {
			return t.Text
		}
		return fieldInfo(f, t.Info)
	case template.OtherFields:
		if rec == nil {
			return ""
		}
		return c.otherFields(ctx, v, rec)
	case template.Action:
		if rec == nil || !template.TagAvailable(c.name, t.Kind, t.Tag) {
			return ""
		}
		return c.action(v, rec, t.Tag)
	case template.Other:
		if rec == nil || !template.TagAvailable(c.name, t.Kind, t.Tag) {
			return ""
		}
		return c.engine.other(v, rec, t.Tag)
	default:
		return t.Text
	}
}

func (c *Compiled) fieldValue(ctx context.Context, f field.Field, rec *entry.Record) string {
	if rec == nil {
		return ""
	}
	s, ok := rec.Slots(f.ID)
	if !ok {
		return ""
	}
	rc := field.RenderContext{
		RecordID:   rec.ID,
		Files:      c.engine.files,
		DateFormat: c.engine.opts.DateFormat,
		Location:   c.engine.opts.Location,
	}
	return f.Render(ctx, s, rc)
}

func fieldInfo(f field.Field, info string) string {
	switch info {
	case template.InfoID:
		return "field_" + strconv.FormatInt(f.ID, 10)
	case template.InfoName:
		return html.EscapeString(f.Name)
	case template.InfoDescription:
		return html.EscapeString(f.Description)
	}
	return ""
}

func (c *Compiled) otherFields(ctx context.Context, v View, rec *entry.Record) string {
	var b strings.Builder
	for _, f := range v.Schema.Fields {
		if !f.Known() || c.referenced[f.Name] {
			continue
		}
		fmt.Fprintf(&b, "<div class=\"field\"><span class=\"name\">%s</span>: <span class=\"value\">%s</span></div>",
			html.EscapeString(f.Name), c.fieldValue(ctx, f, rec))
	}
	return b.String()
}

func (c *Compiled) action(v View, rec *entry.Record, tag string) string {
	e := c.engine
	entryAccess := rec.Access()
	switch tag {
	case template.TagEdit:
		if v.Policy.CanManage(v.Actor, entryAccess) {
			return anchor(e.recordURL("/edit", rec), "Edit", "edit")
		}
	case template.TagDelete:
		if v.Policy.CanManage(v.Actor, entryAccess) {
			return anchor(e.recordURL("/delete", rec), "Delete", "delete")
		}
	case template.TagApprove:
		if v.Policy.CanApprove(v.Actor) && !rec.Approved {
			return anchor(e.recordURL("/approve", rec), "Approve", "approve")
		}
	case template.TagDisapprove:
		if v.Policy.CanApprove(v.Actor) && rec.Approved {
			return anchor(e.recordURL("/disapprove", rec), "Undo approval", "disapprove")
		}
	case template.TagExport:
		if v.Policy.CanExport(v.Actor, entryAccess) {
			return anchor(e.recordURL("/export", rec), "Export", "export")
		}
	case template.TagMore:
		return anchor(e.recordURL("/view", rec), "More", "more")
	case template.TagMoreURL:
		return html.EscapeString(e.recordURL("/view", rec))
	case template.TagDelCheck:
		if v.Policy.CanManage(v.Actor, entryAccess) {
			return fmt.Sprintf(`<input type="checkbox" class="recordcheckbox" name="delcheck[]" value="%d" />`, rec.ID)
		}
	case template.TagActionsMenu:
		var items []string
		for _, t := range []string{
			template.TagEdit, template.TagDelete, template.TagApprove,
			template.TagDisapprove, template.TagExport, template.TagMore,
		} {
			if !template.TagAvailable(c.name, template.Action, t) {
				continue
			}
			if out := c.action(v, rec, t); out != "" {
				items = append(items, out)
			}
		}
		if len(items) == 0 {
			return ""
		}
		return `<div class="actionsmenu">` + strings.Join(items, " ") + `</div>`
	}
	return ""
}

func (e *Engine) other(v View, rec *entry.Record, tag string) string {
	switch tag {
	case template.TagTimeAdded:
		return html.EscapeString(rec.CreatedAt.In(e.opts.Location).Format(e.opts.TimeFormat))
	case template.TagTimeModified:
		return html.EscapeString(rec.ModifiedAt.In(e.opts.Location).Format(e.opts.TimeFormat))
	case template.TagUser:
		q := url.Values{"id": {rec.UserID}}
		return anchor(e.opts.BaseURL+"/user?"+q.Encode(), rec.Owner.FullName(), "user")
	case template.TagUserPicture:
		if rec.Owner.PictureURL == "" {
			return ""
		}
		return fmt.Sprintf(`<img src="%s" alt="%s" class="userpicture" />`,
			html.EscapeString(rec.Owner.PictureURL), html.EscapeString(rec.Owner.FullName()))
	case template.TagApprovalStatus:
		if !v.Schema.Instance.Settings.RequireApproval {
			return ""
		}
		if rec.Approved {
			return html.EscapeString(e.opts.ApprovedLabel)
		}
		return html.EscapeString(e.opts.NotApprovedLabel)
	case template.TagID:
		return strconv.FormatInt(rec.ID, 10)
	case template.TagComments:
		if !v.Schema.Instance.Comments {
			return ""
		}
		return anchor(e.recordURL("/view", rec)+"#comments", "Comments", "comments")
	case template.TagTags:
		if len(rec.Tags) == 0 {
			return ""
		}
		var b strings.Builder
		b.WriteString(`<ul class="tags">`)
		for _, t := range rec.Tags {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(t))
		}
		b.WriteString("</ul>")
		return b.String()
	}
	return ""
}

func (e *Engine) recordURL(path string, rec *entry.Record) string {
	q := url.Values{
		"d":   {strconv.FormatInt(rec.InstanceID, 10)},
		"rid": {strconv.FormatInt(rec.ID, 10)},
	}
	return e.opts.BaseURL + path + "?" + q.Encode()
}

func anchor(href, text, class string) string {
	return fmt.Sprintf(`<a href="%s" class="%s">%s</a>`, html.EscapeString(href), class, html.EscapeString(text))
}
