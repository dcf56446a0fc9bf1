package instance

import (
	"context"

	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/template"
)

// Repository provides persistence for instances.
type Repository interface {
	Create(ctx context.Context, inst *Instance) error
	Get(ctx context.Context, id int64) (*Instance, error)
	Update(ctx context.Context, inst *Instance) error
	List(ctx context.Context) ([]Instance, error)
}

// FieldRepository provides persistence for field definitions.
type FieldRepository interface {
	Create(ctx context.Context, def *field.Definition) error
	Get(ctx context.Context, instanceID, id int64) (*field.Definition, error)
	List(ctx context.Context, instanceID int64) ([]field.Definition, error)
	Update(ctx context.Context, def *field.Definition) error
	Delete(ctx context.Context, instanceID, id int64) error
}

// TemplateRepository provides persistence for template bodies.
type TemplateRepository interface {
	Get(ctx context.Context, instanceID int64, name template.Name) (string, error)
	Set(ctx context.Context, instanceID int64, name template.Name, body string) error
	List(ctx context.Context, instanceID int64) (map[template.Name]string, error)
}
