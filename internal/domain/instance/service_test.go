package instance_test

import (
	"context"
	"testing"

	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/repository"
	"github.com/rpggio/recordbase/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type repos struct {
	instances *mocks.InstanceRepository
	fields    *mocks.FieldRepository
	templates *mocks.TemplateRepository
}

func newService() (*instance.Service, repos) {
	r := repos{
		instances: &mocks.InstanceRepository{},
		fields:    &mocks.FieldRepository{},
		templates: &mocks.TemplateRepository{},
	}
	return instance.NewService(r.instances, r.fields, r.templates, nil, nil), r
}

func TestInstanceService_Create(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.instances.On("Create", ctx, mock.Anything).Return(nil)

	inst, err := svc.Create(ctx, instance.CreateRequest{Name: "Papers"})
	require.NoError(t, err)
	require.Equal(t, instance.Ascending, inst.DefaultSortDir)

	_, err = svc.Create(ctx, instance.CreateRequest{Name: " "})
	require.ErrorIs(t, err, instance.ErrInvalidInput)

	_, err = svc.Create(ctx, instance.CreateRequest{Name: "x", DefaultSortDir: "sideways"})
	require.ErrorIs(t, err, instance.ErrInvalidInput)
}

func TestInstanceService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.instances.On("Get", ctx, int64(9)).Return(nil, repository.ErrNotFound)

	_, err := svc.Get(ctx, 9)
	require.ErrorIs(t, err, instance.ErrInstanceNotFound)
}

func TestInstanceService_LoadSchemaDegradesUnknownTypes(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.instances.On("Get", ctx, int64(1)).Return(&instance.Instance{ID: 1, Name: "Papers"}, nil)
	r.fields.On("List", ctx, int64(1)).Return([]field.Definition{
		{ID: 1, InstanceID: 1, Name: "title", Type: "text"},
		{ID: 2, InstanceID: 1, Name: "legacy", Type: "bogus"},
	}, nil)

	schema, err := svc.LoadSchema(ctx, 1)
	require.NoError(t, err)
	require.Len(t, schema.Fields, 2)
	require.True(t, schema.Fields[0].Known())
	require.False(t, schema.Fields[1].Known())
	require.Equal(t, []string{"title"}, schema.KnownFieldNames())
}

func TestInstanceService_Capabilities(t *testing.T) {
	svc, _ := newService()
	require.Equal(t, field.Capabilities{}, svc.Capabilities("bogus"))
	require.True(t, svc.Capabilities("file").FileAttachable)
}

func TestInstanceService_CreateFieldAppendsToTemplates(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.instances.On("Get", ctx, int64(1)).Return(&instance.Instance{ID: 1, Name: "Papers"}, nil)
	r.fields.On("Create", ctx, mock.Anything).Return(nil)
	r.templates.On("List", ctx, int64(1)).Return(map[template.Name]string{
		template.Single:   "[[title]]",
		template.List:     "[[title]] ##otherfields##",
		template.RSSTitle: "[[title]]",
	}, nil)
	r.templates.On("Set", ctx, int64(1), template.Single, mock.MatchedBy(func(body string) bool {
		return body != "[[title]]" && template.FieldNames(template.Tokenize(body))[1] == "year"
	})).Return(nil)

	def, err := svc.CreateField(ctx, 1, instance.FieldRequest{Name: "year", Type: "number"})
	require.NoError(t, err)
	require.Equal(t, "year", def.Name)
	r.templates.AssertNumberOfCalls(t, "Set", 1)
}

func TestInstanceService_CreateFieldValidation(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()

	_, err := svc.CreateField(ctx, 1, instance.FieldRequest{Name: "year", Type: "bogus"})
	require.ErrorIs(t, err, instance.ErrInvalidInput)
	require.ErrorIs(t, err, field.ErrUnknownType)

	_, err = svc.CreateField(ctx, 1, instance.FieldRequest{Name: "a#b", Type: "text"})
	require.ErrorIs(t, err, instance.ErrInvalidInput)

	r.instances.On("Get", ctx, int64(1)).Return(&instance.Instance{ID: 1, Name: "Papers"}, nil)
	r.fields.On("Create", ctx, mock.Anything).Return(repository.ErrConflict)
	_, err = svc.CreateField(ctx, 1, instance.FieldRequest{Name: "title", Type: "text"})
	require.ErrorIs(t, err, instance.ErrDuplicateFieldName)
}

func TestInstanceService_UpdateFieldRenamePropagates(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.fields.On("Get", ctx, int64(1), int64(3)).Return(&field.Definition{ID: 3, InstanceID: 1, Name: "title", Type: "text"}, nil)
	r.fields.On("Update", ctx, mock.Anything).Return(nil)
	r.templates.On("List", ctx, int64(1)).Return(map[template.Name]string{
		template.Single: "<h1>[[title]]</h1> [[title#name]]",
		template.Add:    "[[other]]",
	}, nil)
	r.templates.On("Set", ctx, int64(1), template.Single, "<h1>[[heading]]</h1> [[heading#name]]").Return(nil)

	def, err := svc.UpdateField(ctx, 1, 3, instance.FieldRequest{Name: "heading"})
	require.NoError(t, err)
	require.Equal(t, "heading", def.Name)
	require.Equal(t, "text", def.Type)
	r.templates.AssertExpectations(t)
	r.templates.AssertNumberOfCalls(t, "Set", 1)
}

func TestInstanceService_UpdateFieldRejectsTypeChange(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.fields.On("Get", ctx, int64(1), int64(3)).Return(&field.Definition{ID: 3, InstanceID: 1, Name: "title", Type: "text"}, nil)

	_, err := svc.UpdateField(ctx, 1, 3, instance.FieldRequest{Name: "title", Type: "number"})
	require.ErrorIs(t, err, instance.ErrInvalidInput)
}

func TestInstanceService_DeleteFieldNotFound(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.fields.On("Get", ctx, int64(1), int64(3)).Return(nil, repository.ErrNotFound)

	err := svc.DeleteField(ctx, 1, 3)
	require.ErrorIs(t, err, instance.ErrFieldNotFound)
}

func TestInstanceService_TemplateDefaultsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	reg := field.DefaultRegistry()
	schema := &instance.Schema{
		Instance: instance.Instance{ID: 1},
		Fields:   []field.Field{reg.Bind(field.Definition{ID: 1, Name: "title", Type: "text"})},
	}
	r.templates.On("Get", ctx, int64(1), template.Single).Return("", repository.ErrNotFound)
	r.templates.On("Get", ctx, int64(1), template.List).Return("<p>[[title]]</p>", nil)

	tmpl, err := svc.Template(ctx, schema, template.Single)
	require.NoError(t, err)
	require.True(t, tmpl.Generated)
	require.Contains(t, tmpl.Body, "[[title]]")

	tmpl, err = svc.Template(ctx, schema, template.List)
	require.NoError(t, err)
	require.False(t, tmpl.Generated)
	require.Equal(t, "<p>[[title]]</p>", tmpl.Body)

	_, err = svc.Template(ctx, schema, "css")
	require.ErrorIs(t, err, instance.ErrInvalidInput)
}

func TestInstanceService_SetTemplate(t *testing.T) {
	ctx := context.Background()
	svc, r := newService()
	r.instances.On("Get", ctx, int64(1)).Return(&instance.Instance{ID: 1, Name: "Papers"}, nil)
	r.templates.On("Set", ctx, int64(1), template.List, "[[title]]").Return(nil)

	require.NoError(t, svc.SetTemplate(ctx, 1, template.List, "[[title]]"))
	require.ErrorIs(t, svc.SetTemplate(ctx, 1, "css", ""), instance.ErrInvalidInput)
}
