package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/repository"
)

// maxInParams bounds the id list of a single IN clause.
const maxInParams = 500

// RecordRepository implements entry.Repository for SQLite
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `
	r.id, r.instance_id, r.group_id, r.user_id, r.approved, r.created_at, r.modified_at,
	COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.picture_url, '')`

const recordFrom = `FROM records r LEFT JOIN users u ON u.id = r.user_id`

// Create inserts the record, its contents and tags in one transaction.
func (r *RecordRepository) Create(ctx context.Context, rec *entry.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec.CreatedAt = rec.CreatedAt.Truncate(time.Second)
	rec.ModifiedAt = rec.ModifiedAt.Truncate(time.Second)

	query := `
		INSERT INTO records (instance_id, group_id, user_id, approved, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		rec.InstanceID,
		rec.GroupID,
		rec.UserID,
		boolInt(rec.Approved),
		rec.CreatedAt.Unix(),
		rec.ModifiedAt.Unix(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	if rec.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read record id: %w", err)
	}

	if err := upsertContents(ctx, tx, rec); err != nil {
		return err
	}
	if err := writeTags(ctx, tx, rec.ID, rec.Tags); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a record with its contents, owner profile and tags.
func (r *RecordRepository) Get(ctx context.Context, instanceID, id int64) (*entry.Record, error) {
	query := `SELECT ` + recordColumns + ` ` + recordFrom + ` WHERE r.id = ? AND r.instance_id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, instanceID))
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	records := []entry.Record{*rec}
	if err := hydrate(ctx, r.db, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// Update writes record metadata, upserts contents and drops cleared fields.
func (r *RecordRepository) Update(ctx context.Context, rec *entry.Record, cleared []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec.ModifiedAt = rec.ModifiedAt.Truncate(time.Second)
	result, err := tx.ExecContext(ctx,
		`UPDATE records SET group_id = ?, approved = ?, modified_at = ? WHERE id = ? AND instance_id = ?`,
		rec.GroupID, boolInt(rec.Approved), rec.ModifiedAt.Unix(), rec.ID, rec.InstanceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if err := upsertContents(ctx, tx, rec); err != nil {
		return err
	}
	for chunk := range slices.Chunk(cleared, maxInParams) {
		args := []any{rec.ID}
		for _, id := range chunk {
			args = append(args, id)
		}
		query := `DELETE FROM contents WHERE record_id = ? AND field_id IN (` + placeholders(len(chunk)) + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear contents: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetApproved sets the approval flag and modification time.
func (r *RecordRepository) SetApproved(ctx context.Context, instanceID, id int64, approved bool, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE records SET approved = ?, modified_at = ? WHERE id = ? AND instance_id = ?`,
		boolInt(approved), at.Unix(), id, instanceID,
	)
	if err != nil {
		return fmt.Errorf("failed to set approval: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a record; contents and tags cascade.
func (r *RecordRepository) Delete(ctx context.Context, instanceID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ? AND instance_id = ?`, id, instanceID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return requireAffected(result)
}

// CountByUser counts the records a user owns in an instance.
func (r *RecordRepository) CountByUser(ctx context.Context, instanceID int64, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE instance_id = ? AND user_id = ?`,
		instanceID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// SetTags replaces the tags of a record.
func (r *RecordRepository) SetTags(ctx context.Context, instanceID, id int64, tags []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ? AND instance_id = ?`, id, instanceID).Scan(&exists)
	if isNoRows(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_tags WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if err := writeTags(ctx, tx, id, tags); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertContents(ctx context.Context, tx *sql.Tx, rec *entry.Record) error {
	query := `
		INSERT INTO contents (record_id, field_id, content, content1, content2, content3, content4)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id, field_id) DO UPDATE SET
			content = excluded.content,
			content1 = excluded.content1,
			content2 = excluded.content2,
			content3 = excluded.content3,
			content4 = excluded.content4
		RETURNING id
	`

	for _, fieldID := range slices.Sorted(maps.Keys(rec.Contents)) {
		c := rec.Contents[fieldID]
		args := []any{rec.ID, fieldID}
		for _, s := range c.Slots {
			args = append(args, s)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&c.ID); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to write content: %w", err)
		}
		c.RecordID = rec.ID
		c.FieldID = fieldID
		rec.Contents[fieldID] = c
	}
	return nil
}

func writeTags(ctx context.Context, tx *sql.Tx, recordID int64, tags []string) error {
	for _, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO record_tags (record_id, tag) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			recordID, tag,
		)
		if err != nil {
			return fmt.Errorf("failed to write tag: %w", err)
		}
	}
	return nil
}

func scanRecord(row scanner) (*entry.Record, error) {
	var (
		rec               entry.Record
		created, modified int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.InstanceID,
		&rec.GroupID,
		&rec.UserID,
		&rec.Approved,
		&created,
		&modified,
		&rec.Owner.FirstName,
		&rec.Owner.LastName,
		&rec.Owner.PictureURL,
	)
	if err != nil {
		return nil, err
	}
	rec.Owner.UserID = rec.UserID
	rec.CreatedAt = fromUnix(created)
	rec.ModifiedAt = fromUnix(modified)
	return &rec, nil
}

// hydrate loads the contents and tags of already scanned records. It must not be
// called while another result set is open on q.
func hydrate(ctx context.Context, q queryer, records []entry.Record) error {
	if len(records) == 0 {
		return nil
	}
	index := make(map[int64]*entry.Record, len(records))
	ids := make([]int64, 0, len(records))
	for i := range records {
		records[i].Contents = make(map[int64]entry.Content)
		index[records[i].ID] = &records[i]
		ids = append(ids, records[i].ID)
	}

	for chunk := range slices.Chunk(ids, maxInParams) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		in := placeholders(len(chunk))
		if err := loadContents(ctx, q, in, args, index); err != nil {
			return err
		}
		if err := loadTags(ctx, q, in, args, index); err != nil {
			return err
		}
	}
	return nil
}

func loadContents(ctx context.Context, q queryer, in string, args []any, index map[int64]*entry.Record) error {
	query := `
		SELECT id, record_id, field_id, content, content1, content2, content3, content4
		FROM contents
		WHERE record_id IN (` + in + `)
	`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c     entry.Content
			slots [5]sql.NullString
		)
		err := rows.Scan(&c.ID, &c.RecordID, &c.FieldID, &slots[0], &slots[1], &slots[2], &slots[3], &slots[4])
		if err != nil {
			return fmt.Errorf("failed to scan content: %w", err)
		}
		for i, s := range slots {
			if s.Valid {
				c.Slots.Set(field.Slot(i), s.String)
			}
		}
		if rec, ok := index[c.RecordID]; ok {
			rec.Contents[c.FieldID] = c
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating content rows: %w", err)
	}
	return nil
}

func loadTags(ctx context.Context, q queryer, in string, args []any, index map[int64]*entry.Record) error {
	query := `SELECT record_id, tag FROM record_tags WHERE record_id IN (` + in + `) ORDER BY tag`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		if rec, ok := index[id]; ok {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating tag rows: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ProfileRepository implements entry.ProfileRepository for SQLite
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert creates or replaces a user profile.
func (r *ProfileRepository) Upsert(ctx context.Context, p *entry.Profile) error {
	query := `
		INSERT INTO users (id, first_name, last_name, picture_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			picture_url = excluded.picture_url
	`
	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.FirstName, p.LastName, p.PictureURL); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Get retrieves a user profile by ID
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*entry.Profile, error) {
	var p entry.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, picture_url FROM users WHERE id = ?`, userID,
	).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.PictureURL)
	if isNoRows(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}
