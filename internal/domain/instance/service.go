package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/repository"
)

// Service manages instances, their schemas and templates.
type Service struct {
	repo      Repository
	fields    FieldRepository
	templates TemplateRepository
	registry  *field.Registry
	logger    *slog.Logger
}

// NewService creates a new instance service. A nil registry uses the default types.
func NewService(repo Repository, fields FieldRepository, templates TemplateRepository, registry *field.Registry, logger *slog.Logger) *Service {
	if registry == nil {
		registry = field.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, fields: fields, templates: templates, registry: registry, logger: logger}
}

// Registry returns the field type registry the service resolves types with.
func (s *Service) Registry() *field.Registry { return s.registry }

// CreateRequest defines instance creation inputs.
type CreateRequest struct {
	Name           string
	Intro          string
	Settings       access.Settings
	MaxEntries     int
	DefaultSort    int64
	DefaultSortDir SortDirection
	Comments       bool
}

// Create creates a new instance.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Instance, error) {
	now := time.Now().UTC()
	inst := &Instance{
		Name:           req.Name,
		Intro:          req.Intro,
		Settings:       req.Settings,
		MaxEntries:     req.MaxEntries,
		DefaultSort:    req.DefaultSort,
		DefaultSortDir: req.DefaultSortDir,
		Comments:       req.Comments,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if inst.DefaultSortDir == "" {
		inst.DefaultSortDir = Ascending
	}
	if err := validateInstance(inst); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	return inst, nil
}

// Get fetches an instance by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Instance, error) {
	inst, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("getting instance: %w", err)
	}
	return inst, nil
}

// List returns all instances.
func (s *Service) List(ctx context.Context) ([]Instance, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return list, nil
}

// Update replaces the mutable settings of an instance.
func (s *Service) Update(ctx context.Context, id int64, req CreateRequest) (*Instance, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.Name = req.Name
	inst.Intro = req.Intro
	inst.Settings = req.Settings
	inst.MaxEntries = req.MaxEntries
	inst.DefaultSort = req.DefaultSort
	if req.DefaultSortDir != "" {
		inst.DefaultSortDir = req.DefaultSortDir
	}
	inst.Comments = req.Comments
	inst.ModifiedAt = time.Now().UTC()
	if err := validateInstance(inst); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, inst); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("updating instance: %w", err)
	}
	return inst, nil
}

// LoadSchema loads an instance and binds its fields to their types. Fields whose type
// is no longer registered degrade to the unknown type.
func (s *Service) LoadSchema(ctx context.Context, id int64) (*Schema, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defs, err := s.fields.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	schema := &Schema{Instance: *inst, Fields: make([]field.Field, 0, len(defs))}
	for _, def := range defs {
		f := s.registry.Bind(def)
		if !f.Known() {
			s.logger.Warn("field type not registered", "instance_id", id, "field", def.Name, "type", def.Type)
		}
		schema.Fields = append(schema.Fields, f)
	}
	return schema, nil
}

// Capabilities reports what a field type supports. Unknown names report nothing.
func (s *Service) Capabilities(typeName string) field.Capabilities {
	return s.registry.Capabilities(typeName)
}

// FieldRequest defines field creation and update inputs.
type FieldRequest struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Params      [10]string
}

// CreateField adds a field to an instance and appends it to templates that list fields.
func (s *Service) CreateField(ctx context.Context, instanceID int64, req FieldRequest) (*field.Definition, error) {
	if err := validateFieldName(req.Name); err != nil {
		return nil, err
	}
	if _, err := s.registry.Lookup(req.Type); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := s.Get(ctx, instanceID); err != nil {
		return nil, err
	}

	def := &field.Definition{
		InstanceID:  instanceID,
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Required:    req.Required,
		Params:      req.Params,
	}
	if err := s.fields.Create(ctx, def); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateFieldName
		}
		return nil, fmt.Errorf("creating field: %w", err)
	}

	if err := s.rewriteTemplates(ctx, instanceID, func(n template.Name, body string) (string, bool) {
		return template.AppendField(n, body, def.Name)
	}); err != nil {
		return nil, err
	}
	return def, nil
}

// UpdateField changes a field. The type is fixed; a rename is propagated to every
// template of the instance.
func (s *Service) UpdateField(ctx context.Context, instanceID, id int64, req FieldRequest) (*field.Definition, error) {
	def, err := s.getField(ctx, instanceID, id)
	if err != nil {
		return nil, err
	}
	if req.Type != "" && req.Type != def.Type {
		return nil, fmt.Errorf("%w: field type cannot change", ErrInvalidInput)
	}
	if err := validateFieldName(req.Name); err != nil {
		return nil, err
	}

	oldName := def.Name
	def.Name = req.Name
	def.Description = req.Description
	def.Required = req.Required
	def.Params = req.Params
	if err := s.fields.Update(ctx, def); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateFieldName
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("updating field: %w", err)
	}

	if oldName != def.Name {
		if err := s.rewriteTemplates(ctx, instanceID, func(_ template.Name, body string) (string, bool) {
			out := template.RenameField(body, oldName, def.Name)
			return out, out != body
		}); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// DeleteField removes a field and its content rows. Templates keep any tags naming
// it, which then render as literal text.
func (s *Service) DeleteField(ctx context.Context, instanceID, id int64) error {
	if _, err := s.getField(ctx, instanceID, id); err != nil {
		return err
	}
	if err := s.fields.Delete(ctx, instanceID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFieldNotFound
		}
		return fmt.Errorf("deleting field: %w", err)
	}
	return nil
}

// ListFields returns the field definitions of an instance in schema order.
func (s *Service) ListFields(ctx context.Context, instanceID int64) ([]field.Definition, error) {
	if _, err := s.Get(ctx, instanceID); err != nil {
		return nil, err
	}
	defs, err := s.fields.List(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return defs, nil
}

// SetTemplate stores a template body. An empty body restores the generated default.
func (s *Service) SetTemplate(ctx context.Context, instanceID int64, name template.Name, body string) error {
	if _, err := template.ParseName(string(name)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := s.Get(ctx, instanceID); err != nil {
		return err
	}
	if err := s.templates.Set(ctx, instanceID, name, body); err != nil {
		return fmt.Errorf("setting template: %w", err)
	}
	return nil
}

// Template returns the stored template, or a generated default when none is stored.
func (s *Service) Template(ctx context.Context, schema *Schema, name template.Name) (*Template, error) {
	if _, err := template.ParseName(string(name)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	body, err := s.templates.Get(ctx, schema.Instance.ID, name)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("getting template: %w", err)
	}
	if body != "" {
		return &Template{Name: string(name), Body: body}, nil
	}
	return &Template{
		Name:      string(name),
		Body:      template.Default(name, schema.KnownFieldNames()),
		Generated: true,
	}, nil
}

func (s *Service) getField(ctx context.Context, instanceID, id int64) (*field.Definition, error) {
	def, err := s.fields.Get(ctx, instanceID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("getting field: %w", err)
	}
	return def, nil
}

func (s *Service) rewriteTemplates(ctx context.Context, instanceID int64, rewrite func(template.Name, string) (string, bool)) error {
	stored, err := s.templates.List(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	for _, name := range template.Names {
		body, ok := stored[name]
		if !ok {
			continue
		}
		out, changed := rewrite(name, body)
		if !changed {
			continue
		}
		if err := s.templates.Set(ctx, instanceID, name, out); err != nil {
			return fmt.Errorf("updating template %s: %w", name, err)
		}
		s.logger.Debug("template rewritten", "instance_id", instanceID, "template", name)
	}
	return nil
}
