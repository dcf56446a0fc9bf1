package render

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/template"
)

// TemplateSource resolves schemas and template bodies.
type TemplateSource interface {
	LoadSchema(ctx context.Context, id int64) (*instance.Schema, error)
	Template(ctx context.Context, schema *instance.Schema, name template.Name) (*instance.Template, error)
}

// Service renders instance templates for already visible records.
type Service struct {
	source TemplateSource
	engine *Engine
	groups access.GroupVisibility
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a new render service.
func NewService(source TemplateSource, engine *Engine, groups access.GroupVisibility, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		source: source,
		engine: engine,
		groups: groups,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithClock replaces the time source used for action availability.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Request is one render call.
type Request struct {
	InstanceID int64
	Actor      access.Actor
	Template   template.Name
	// Records must already be filtered for the actor; the renderer does not check
	// visibility.
	Records []entry.Record
}

// RenderTemplate renders the named template once per record and concatenates the
// fragments. The list template is wrapped in the list header and footer. Form
// templates render once without a record when no records are given.
func (s *Service) RenderTemplate(ctx context.Context, req Request) (string, error) {
	if _, err := template.ParseName(string(req.Template)); err != nil {
		return "", err
	}
	schema, err := s.source.LoadSchema(ctx, req.InstanceID)
	if err != nil {
		return "", err
	}
	view := View{
		Schema: schema,
		Policy: access.NewPolicy(schema.Instance.Settings, s.now(), s.groups),
		Actor:  req.Actor,
	}

	compiled, err := s.compile(ctx, schema, req.Template)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if req.Template == template.List {
		header, err := s.compile(ctx, schema, template.ListHeader)
		if err != nil {
			return "", err
		}
		b.WriteString(header.Render(ctx, view, nil))
	}

	switch {
	case !req.Template.PerRecord():
		b.WriteString(compiled.Render(ctx, view, nil))
	case len(req.Records) == 0 && (req.Template == template.Add || req.Template == template.Search):
		b.WriteString(compiled.Render(ctx, view, nil))
	default:
		for fragment := range compiled.Fragments(ctx, view, req.Records) {
			b.WriteString(fragment)
		}
	}

	if req.Template == template.List {
		footer, err := s.compile(ctx, schema, template.ListFooter)
		if err != nil {
			return "", err
		}
		b.WriteString(footer.Render(ctx, view, nil))
	}
	return b.String(), nil
}

func (s *Service) compile(ctx context.Context, schema *instance.Schema, name template.Name) (*Compiled, error) {
	tmpl, err := s.source.Template(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	return s.engine.Compile(schema, name, tmpl.Body), nil
}
