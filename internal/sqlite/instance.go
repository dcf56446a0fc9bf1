package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/repository"
)

// InstanceRepository implements instance.Repository for SQLite
type InstanceRepository struct {
	db *DB
}

// NewInstanceRepository creates a new InstanceRepository
func NewInstanceRepository(db *DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

const instanceColumns = `
	id, name, intro, require_approval, manage_approved, group_mode,
	available_from, available_to, view_from, view_to,
	max_entries, default_sort, default_sort_dir, comments, created_at, modified_at`

// Create inserts an instance and assigns its ID.
func (r *InstanceRepository) Create(ctx context.Context, inst *instance.Instance) error {
	query := `
		INSERT INTO instances (name, intro, require_approval, manage_approved, group_mode,
			available_from, available_to, view_from, view_to,
			max_entries, default_sort, default_sort_dir, comments, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	s := inst.Settings
	result, err := r.db.ExecContext(ctx, query,
		inst.Name,
		inst.Intro,
		boolInt(s.RequireApproval),
		boolInt(s.ManageApproved),
		int(s.GroupMode),
		nullTime(s.AvailableFrom),
		nullTime(s.AvailableTo),
		nullTime(s.ViewFrom),
		nullTime(s.ViewTo),
		inst.MaxEntries,
		inst.DefaultSort,
		string(inst.DefaultSortDir),
		boolInt(inst.Comments),
		inst.CreatedAt.Unix(),
		inst.ModifiedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read instance id: %w", err)
	}
	inst.ID = id
	return nil
}

// Get retrieves an instance by ID
func (r *InstanceRepository) Get(ctx context.Context, id int64) (*instance.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = ?`

	inst, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

// Update writes every mutable column of an instance.
func (r *InstanceRepository) Update(ctx context.Context, inst *instance.Instance) error {
	query := `
		UPDATE instances
		SET name = ?, intro = ?, require_approval = ?, manage_approved = ?, group_mode = ?,
			available_from = ?, available_to = ?, view_from = ?, view_to = ?,
			max_entries = ?, default_sort = ?, default_sort_dir = ?, comments = ?, modified_at = ?
		WHERE id = ?
	`

	s := inst.Settings
	result, err := r.db.ExecContext(ctx, query,
		inst.Name,
		inst.Intro,
		boolInt(s.RequireApproval),
		boolInt(s.ManageApproved),
		int(s.GroupMode),
		nullTime(s.AvailableFrom),
		nullTime(s.AvailableTo),
		nullTime(s.ViewFrom),
		nullTime(s.ViewTo),
		inst.MaxEntries,
		inst.DefaultSort,
		string(inst.DefaultSortDir),
		boolInt(inst.Comments),
		inst.ModifiedAt.Unix(),
		inst.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	return requireAffected(result)
}

// List returns all instances ordered by ID
func (r *InstanceRepository) List(ctx context.Context) ([]instance.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var instances []instance.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instance rows: %w", err)
	}
	return instances, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (*instance.Instance, error) {
	var (
		inst                           instance.Instance
		requireApproval, manageApprove bool
		groupMode                      int
		availFrom, availTo             sql.NullInt64
		viewFrom, viewTo               sql.NullInt64
		sortDir                        string
		created, modified              int64
	)
	err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.Intro,
		&requireApproval,
		&manageApprove,
		&groupMode,
		&availFrom,
		&availTo,
		&viewFrom,
		&viewTo,
		&inst.MaxEntries,
		&inst.DefaultSort,
		&sortDir,
		&inst.Comments,
		&created,
		&modified,
	)
	if err != nil {
		return nil, err
	}
	inst.Settings = access.Settings{
		RequireApproval: requireApproval,
		ManageApproved:  manageApprove,
		GroupMode:       access.GroupMode(groupMode),
		AvailableFrom:   fromNullTime(availFrom),
		AvailableTo:     fromNullTime(availTo),
		ViewFrom:        fromNullTime(viewFrom),
		ViewTo:          fromNullTime(viewTo),
	}
	inst.DefaultSortDir = instance.SortDirection(sortDir)
	inst.CreatedAt = fromUnix(created)
	inst.ModifiedAt = fromUnix(modified)
	return &inst, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
