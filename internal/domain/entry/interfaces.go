package entry

import (
	"context"
	"io"
	"time"

	"github.com/rpggio/recordbase/internal/domain/instance"
)

// Repository provides persistence for records and their content rows.
type Repository interface {
	// Create inserts the record and all of its contents in one transaction.
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, instanceID, id int64) (*Record, error)
	// Update writes record metadata, upserts rec.Contents and removes the rows of
	// cleared fields in one transaction.
	Update(ctx context.Context, rec *Record, cleared []int64) error
	SetApproved(ctx context.Context, instanceID, id int64, approved bool, at time.Time) error
	Delete(ctx context.Context, instanceID, id int64) error
	CountByUser(ctx context.Context, instanceID int64, userID string) (int, error)
	SetTags(ctx context.Context, instanceID, id int64, tags []string) error
}

// ProfileRepository provides persistence for owner profiles.
type ProfileRepository interface {
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
}

// SchemaLoader resolves the schema of an instance.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, id int64) (*instance.Schema, error)
}

// FileStore holds attachment blobs.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}
