package mocks

import (
	"context"
	"io"
	"time"

	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/stretchr/testify/mock"
)

// InstanceRepository is a mock for instance.Repository.
type InstanceRepository struct {
	mock.Mock
}

func (m *InstanceRepository) Create(ctx context.Context, inst *instance.Instance) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *InstanceRepository) Get(ctx context.Context, id int64) (*instance.Instance, error) {
	args := m.Called(ctx, id)
	if inst, ok := args.Get(0).(*instance.Instance); ok {
		return inst, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InstanceRepository) Update(ctx context.Context, inst *instance.Instance) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *InstanceRepository) List(ctx context.Context) ([]instance.Instance, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]instance.Instance); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// FieldRepository is a mock for instance.FieldRepository.
type FieldRepository struct {
	mock.Mock
}

func (m *FieldRepository) Create(ctx context.Context, def *field.Definition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *FieldRepository) Get(ctx context.Context, instanceID, id int64) (*field.Definition, error) {
	args := m.Called(ctx, instanceID, id)
	if def, ok := args.Get(0).(*field.Definition); ok {
		return def, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FieldRepository) List(ctx context.Context, instanceID int64) ([]field.Definition, error) {
	args := m.Called(ctx, instanceID)
	if list, ok := args.Get(0).([]field.Definition); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FieldRepository) Update(ctx context.Context, def *field.Definition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *FieldRepository) Delete(ctx context.Context, instanceID, id int64) error {
	args := m.Called(ctx, instanceID, id)
	return args.Error(0)
}

// TemplateRepository is a mock for instance.TemplateRepository.
type TemplateRepository struct {
	mock.Mock
}

func (m *TemplateRepository) Get(ctx context.Context, instanceID int64, name template.Name) (string, error) {
	args := m.Called(ctx, instanceID, name)
	return args.String(0), args.Error(1)
}

func (m *TemplateRepository) Set(ctx context.Context, instanceID int64, name template.Name, body string) error {
	args := m.Called(ctx, instanceID, name, body)
	return args.Error(0)
}

func (m *TemplateRepository) List(ctx context.Context, instanceID int64) (map[template.Name]string, error) {
	args := m.Called(ctx, instanceID)
	if bodies, ok := args.Get(0).(map[template.Name]string); ok {
		return bodies, args.Error(1)
	}
	return nil, args.Error(1)
}

// RecordRepository is a mock for entry.Repository.
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Create(ctx context.Context, rec *entry.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *RecordRepository) Get(ctx context.Context, instanceID, id int64) (*entry.Record, error) {
	args := m.Called(ctx, instanceID, id)
	if rec, ok := args.Get(0).(*entry.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecordRepository) Update(ctx context.Context, rec *entry.Record, cleared []int64) error {
	args := m.Called(ctx, rec, cleared)
	return args.Error(0)
}

func (m *RecordRepository) SetApproved(ctx context.Context, instanceID, id int64, approved bool, at time.Time) error {
	args := m.Called(ctx, instanceID, id, approved, at)
	return args.Error(0)
}

func (m *RecordRepository) Delete(ctx context.Context, instanceID, id int64) error {
	args := m.Called(ctx, instanceID, id)
	return args.Error(0)
}

func (m *RecordRepository) CountByUser(ctx context.Context, instanceID int64, userID string) (int, error) {
	args := m.Called(ctx, instanceID, userID)
	return args.Int(0), args.Error(1)
}

func (m *RecordRepository) SetTags(ctx context.Context, instanceID, id int64, tags []string) error {
	args := m.Called(ctx, instanceID, id, tags)
	return args.Error(0)
}

// ProfileRepository is a mock for entry.ProfileRepository.
type ProfileRepository struct {
	mock.Mock
}

func (m *ProfileRepository) Upsert(ctx context.Context, p *entry.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProfileRepository) Get(ctx context.Context, userID string) (*entry.Profile, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*entry.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// SchemaLoader is a mock for entry.SchemaLoader.
type SchemaLoader struct {
	mock.Mock
}

func (m *SchemaLoader) LoadSchema(ctx context.Context, id int64) (*instance.Schema, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*instance.Schema); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// FileStore is a mock for entry.FileStore.
type FileStore struct {
	mock.Mock
}

func (m *FileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *FileStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Searcher is a mock for query.Searcher.
type Searcher struct {
	mock.Mock
}

func (m *Searcher) Search(ctx context.Context, plan query.Plan) ([]entry.Record, error) {
	args := m.Called(ctx, plan)
	if list, ok := args.Get(0).([]entry.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Searcher) Count(ctx context.Context, plan query.Plan) (int, error) {
	args := m.Called(ctx, plan)
	return args.Int(0), args.Error(1)
}
