package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/repository"
)

// FieldRepository implements instance.FieldRepository for SQLite
type FieldRepository struct {
	db *DB
}

// NewFieldRepository creates a new FieldRepository
func NewFieldRepository(db *DB) *FieldRepository {
	return &FieldRepository{db: db}
}

const fieldColumns = `
	id, instance_id, type, name, description, required,
	param1, param2, param3, param4, param5, param6, param7, param8, param9, param10`

// Create appends a field to the end of its instance's field order.
func (r *FieldRepository) Create(ctx context.Context, def *field.Definition) error {
	query := `
		INSERT INTO fields (instance_id, type, name, description, required,
			param1, param2, param3, param4, param5, param6, param7, param8, param9, param10,
			sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM fields WHERE instance_id = ?))
	`

	args := []any{def.InstanceID, def.Type, def.Name, def.Description, boolInt(def.Required)}
	for _, p := range def.Params {
		args = append(args, p)
	}
	args = append(args, def.InstanceID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create field: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read field id: %w", err)
	}
	def.ID = id
	return nil
}

// Get retrieves a field of an instance by ID
func (r *FieldRepository) Get(ctx context.Context, instanceID, id int64) (*field.Definition, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE id = ? AND instance_id = ?`

	def, err := scanField(r.db.QueryRowContext(ctx, query, id, instanceID))
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return def, nil
}

// List returns the fields of an instance in definition order
func (r *FieldRepository) List(ctx context.Context, instanceID int64) ([]field.Definition, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE instance_id = ? ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var defs []field.Definition
	for rows.Next() {
		def, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		defs = append(defs, *def)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field rows: %w", err)
	}
	return defs, nil
}

// Update writes the name, description, required flag and parameters of a field.
// The type column is never changed.
func (r *FieldRepository) Update(ctx context.Context, def *field.Definition) error {
	query := `
		UPDATE fields
		SET name = ?, description = ?, required = ?,
			param1 = ?, param2 = ?, param3 = ?, param4 = ?, param5 = ?,
			param6 = ?, param7 = ?, param8 = ?, param9 = ?, param10 = ?
		WHERE id = ? AND instance_id = ?
	`

	args := []any{def.Name, def.Description, boolInt(def.Required)}
	for _, p := range def.Params {
		args = append(args, p)
	}
	args = append(args, def.ID, def.InstanceID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to update field: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a field; its content rows go with it.
func (r *FieldRepository) Delete(ctx context.Context, instanceID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fields WHERE id = ? AND instance_id = ?`, id, instanceID)
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	return requireAffected(result)
}

func scanField(row scanner) (*field.Definition, error) {
	var def field.Definition
	dest := []any{&def.ID, &def.InstanceID, &def.Type, &def.Name, &def.Description, &def.Required}
	for i := range def.Params {
		dest = append(dest, &def.Params[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &def, nil
}
