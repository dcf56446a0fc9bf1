package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/repository"
	"github.com/stretchr/testify/require"
)

func createTestInstance(t *testing.T, db *DB, settings access.Settings) *instance.Instance {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inst := &instance.Instance{
		Name:           "Bird sightings",
		Settings:       settings,
		DefaultSortDir: instance.Ascending,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	require.NoError(t, NewInstanceRepository(db).Create(context.Background(), inst))
	return inst
}

func TestInstanceRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstanceRepository(db)
	ctx := context.Background()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := createTestInstance(t, db, access.Settings{
		RequireApproval: true,
		GroupMode:       access.SeparateGroups,
		AvailableFrom:   from,
		ViewTo:          from.Add(48 * time.Hour),
	})
	require.NotZero(t, inst.ID)

	got, err := repo.Get(ctx, inst.ID)
	require.NoError(t, err)
	require.Equal(t, "Bird sightings", got.Name)
	require.True(t, got.Settings.RequireApproval)
	require.False(t, got.Settings.ManageApproved)
	require.Equal(t, access.SeparateGroups, got.Settings.GroupMode)
	require.True(t, got.Settings.AvailableFrom.Equal(from))
	require.True(t, got.Settings.AvailableTo.IsZero())
	require.True(t, got.Settings.ViewTo.Equal(from.Add(48*time.Hour)))
	require.Equal(t, instance.Ascending, got.DefaultSortDir)
	require.True(t, got.CreatedAt.Equal(inst.CreatedAt))

	_, err = repo.Get(ctx, 999)
	require.Equal(t, repository.ErrNotFound, err)
}

func TestInstanceRepository_UpdateList(t *testing.T) {
	db := NewTestDB(t)
	repo := NewInstanceRepository(db)
	ctx := context.Background()

	inst := createTestInstance(t, db, access.Settings{})
	createTestInstance(t, db, access.Settings{})

	inst.Name = "Renamed"
	inst.MaxEntries = 3
	inst.DefaultSort = -2
	inst.DefaultSortDir = instance.Descending
	require.NoError(t, repo.Update(ctx, inst))

	got, err := repo.Get(ctx, inst.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, 3, got.MaxEntries)
	require.Equal(t, int64(-2), got.DefaultSort)
	require.Equal(t, instance.Descending, got.DefaultSortDir)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, inst.ID, list[0].ID)

	missing := *inst
	missing.ID = 999
	require.Equal(t, repository.ErrNotFound, repo.Update(ctx, &missing))
}

func TestFieldRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewFieldRepository(db)
	ctx := context.Background()
	inst := createTestInstance(t, db, access.Settings{})

	title := &field.Definition{InstanceID: inst.ID, Name: "title", Type: field.TextTypeName, Required: true}
	count := &field.Definition{InstanceID: inst.ID, Name: "count", Type: field.NumberTypeName}
	count.Params[0] = "2"
	require.NoError(t, repo.Create(ctx, title))
	require.NoError(t, repo.Create(ctx, count))
	require.NotZero(t, title.ID)

	t.Run("duplicate name", func(t *testing.T) {
		err := repo.Create(ctx, &field.Definition{InstanceID: inst.ID, Name: "title", Type: field.TextTypeName})
		require.Equal(t, repository.ErrConflict, err)
	})

	t.Run("missing instance", func(t *testing.T) {
		err := repo.Create(ctx, &field.Definition{InstanceID: 999, Name: "x", Type: field.TextTypeName})
		require.Equal(t, repository.ErrForeignKeyViolation, err)
	})

	t.Run("list keeps creation order", func(t *testing.T) {
		defs, err := repo.List(ctx, inst.ID)
		require.NoError(t, err)
		require.Len(t, defs, 2)
		require.Equal(t, "title", defs[0].Name)
		require.True(t, defs[0].Required)
		require.Equal(t, "count", defs[1].Name)
		require.Equal(t, "2", defs[1].Param(1))
	})

	t.Run("update never changes type", func(t *testing.T) {
		changed := *count
		changed.Name = "total"
		changed.Type = field.TextTypeName
		require.NoError(t, repo.Update(ctx, &changed))

		got, err := repo.Get(ctx, inst.ID, count.ID)
		require.NoError(t, err)
		require.Equal(t, "total", got.Name)
		require.Equal(t, field.NumberTypeName, got.Type)
	})

	t.Run("rename onto existing name", func(t *testing.T) {
		changed := *count
		changed.Name = "title"
		require.Equal(t, repository.ErrConflict, repo.Update(ctx, &changed))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, inst.ID, count.ID))
		_, err := repo.Get(ctx, inst.ID, count.ID)
		require.Equal(t, repository.ErrNotFound, err)
		require.Equal(t, repository.ErrNotFound, repo.Delete(ctx, inst.ID, count.ID))
	})
}

func TestTemplateRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTemplateRepository(db)
	ctx := context.Background()
	inst := createTestInstance(t, db, access.Settings{})

	_, err := repo.Get(ctx, inst.ID, template.Single)
	require.Equal(t, repository.ErrNotFound, err)

	require.NoError(t, repo.Set(ctx, inst.ID, template.Single, "[[title]]"))
	require.NoError(t, repo.Set(ctx, inst.ID, template.Single, "[[title]] ##edit##"))
	require.NoError(t, repo.Set(ctx, inst.ID, template.List, "[[title]]"))

	body, err := repo.Get(ctx, inst.ID, template.Single)
	require.NoError(t, err)
	require.Equal(t, "[[title]] ##edit##", body)

	all, err := repo.List(ctx, inst.ID)
	require.NoError(t, err)
	require.Equal(t, map[template.Name]string{
		template.Single: "[[title]] ##edit##",
		template.List:   "[[title]]",
	}, all)

	require.Equal(t, repository.ErrForeignKeyViolation, repo.Set(ctx, 999, template.List, "x"))
}
