package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/repository"
)

// TemplateRepository implements instance.TemplateRepository for SQLite
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Get returns the stored body of a template.
func (r *TemplateRepository) Get(ctx context.Context, instanceID int64, name template.Name) (string, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM templates WHERE instance_id = ? AND name = ?`,
		instanceID, string(name),
	).Scan(&body)
	if isNoRows(err) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}
	return body, nil
}

// Set stores a template body, replacing any previous one.
func (r *TemplateRepository) Set(ctx context.Context, instanceID int64, name template.Name, body string) error {
	query := `
		INSERT INTO templates (instance_id, name, body)
		VALUES (?, ?, ?)
		ON CONFLICT(instance_id, name) DO UPDATE SET body = excluded.body
	`
	if _, err := r.db.ExecContext(ctx, query, instanceID, string(name), body); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to set template: %w", err)
	}
	return nil
}

// List returns every stored template body of an instance.
func (r *TemplateRepository) List(ctx context.Context, instanceID int64) (map[template.Name]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, body FROM templates WHERE instance_id = ?`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	bodies := make(map[template.Name]string)
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		bodies[template.Name(name)] = body
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}
	return bodies, nil
}
