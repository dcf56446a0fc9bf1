package entry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/repository"
)

// Service handles record submission and lifecycle.
type Service struct {
	records  Repository
	profiles ProfileRepository
	schemas  SchemaLoader
	files    FileStore
	groups   access.GroupVisibility
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a new entry service. files may be nil when attachments are
// not configured; groups may be nil to derive visibility from actor memberships.
func NewService(
	records Repository,
	profiles ProfileRepository,
	schemas SchemaLoader,
	files FileStore,
	groups access.GroupVisibility,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		records:  records,
		profiles: profiles,
		schemas:  schemas,
		files:    files,
		groups:   groups,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithClock replaces the time source used for policy windows and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) policy(schema *instance.Schema) *access.Policy {
	return access.NewPolicy(schema.Instance.Settings, s.now(), s.groups)
}

// ValidateSubmission checks raw values against the schema without writing anything.
func (s *Service) ValidateSubmission(ctx context.Context, instanceID int64, sub Submission) (*Report, error) {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	_, errs := validate(schema, sub, false)
	return NewReport(errs), nil
}

// SubmitRequest defines record submission inputs.
type SubmitRequest struct {
	InstanceID int64
	GroupID    int64
	Actor      access.Actor
	Values     Submission
}

// Submit validates every field and creates the record with all of its content rows,
// or nothing. Validation failures are returned as field.ValidationErrors.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Record, error) {
	schema, err := s.schemas.LoadSchema(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	policy := s.policy(schema)
	if !policy.CanAdd(req.Actor) {
		return nil, ErrAccessDenied
	}

	groupID := req.GroupID
	if schema.Instance.Settings.GroupMode == access.NoGroups {
		groupID = 0
	}
	if groupID != 0 && !policy.GroupVisible(req.Actor, groupID) {
		return nil, ErrAccessDenied
	}

	if limit := schema.Instance.MaxEntries; limit > 0 && !policy.IsManager(req.Actor) {
		n, err := s.records.CountByUser(ctx, req.InstanceID, req.Actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("counting entries: %w", err)
		}
		if n >= limit {
			return nil, ErrEntryLimit
		}
	}

	values, errs := validate(schema, withoutRefs(req.Values), false)
	if len(errs) > 0 {
		return nil, errs
	}

	now := s.now()
	rec := &Record{
		InstanceID: req.InstanceID,
		GroupID:    groupID,
		UserID:     req.Actor.UserID,
		Approved:   policy.ApproveOnCreate(req.Actor),
		CreatedAt:  now,
		ModifiedAt: now,
		Contents:   contents(schema, values),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}
	s.logger.Info("record submitted", "instance_id", rec.InstanceID, "record_id", rec.ID, "user_id", rec.UserID, "approved", rec.Approved)
	return rec, nil
}

// Get returns a record the actor may view.
func (s *Service) Get(ctx context.Context, instanceID, id int64, actor access.Actor) (*Record, error) {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	rec, err := s.get(ctx, instanceID, id)
	if err != nil {
		return nil, err
	}
	if !s.policy(schema).CanView(actor, rec.Access()) {
		return nil, ErrAccessDenied
	}
	return rec, nil
}

// UpdateRequest defines record update inputs. Fields absent from Values keep their
// stored content; present but blank fields are cleared.
type UpdateRequest struct {
	InstanceID int64
	RecordID   int64
	Actor      access.Actor
	Values     Submission
}

// Update validates and writes the submitted fields of an existing record. Concurrent
// updates of the same record are last-write-wins.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Record, error) {
	schema, err := s.schemas.LoadSchema(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	rec, err := s.get(ctx, req.InstanceID, req.RecordID)
	if err != nil {
		return nil, err
	}
	policy := s.policy(schema)
	if !policy.CanManage(req.Actor, rec.Access()) {
		return nil, ErrAccessDenied
	}

	values, errs := validate(schema, withoutRefs(req.Values), true)
	if len(errs) > 0 {
		return nil, errs
	}
	dropped := keepRefs(schema, rec, values)

	var cleared []int64
	for id, v := range values {
		if v.Blank {
			cleared = append(cleared, id)
			delete(rec.Contents, id)
		}
	}
	slices.Sort(cleared)
	if rec.Contents == nil {
		rec.Contents = map[int64]Content{}
	}
	maps.Copy(rec.Contents, contents(schema, values))

	if schema.Instance.Settings.RequireApproval && !req.Actor.Has(access.CapApprove) {
		rec.Approved = false
	}
	rec.ModifiedAt = s.now()
	if err := s.records.Update(ctx, rec, cleared); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating record: %w", err)
	}
	for _, ref := range dropped {
		s.deleteBlob(ctx, ref)
	}
	return rec, nil
}

// Approve sets or clears the approval of a record.
func (s *Service) Approve(ctx context.Context, instanceID, id int64, actor access.Actor, approve bool) (*Record, error) {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if !s.policy(schema).CanApprove(actor) {
		return nil, ErrAccessDenied
	}
	rec, err := s.get(ctx, instanceID, id)
	if err != nil {
		return nil, err
	}
	if rec.Approved == approve {
		return rec, nil
	}
	rec.Approved = approve
	rec.ModifiedAt = s.now()
	if err := s.records.SetApproved(ctx, instanceID, id, approve, rec.ModifiedAt); err != nil {
		return nil, fmt.Errorf("setting approval: %w", err)
	}
	s.logger.Info("record approval changed", "instance_id", instanceID, "record_id", id, "approved", approve)
	return rec, nil
}

// Delete removes a record, its content rows and any attached blobs.
func (s *Service) Delete(ctx context.Context, instanceID, id int64, actor access.Actor) error {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return err
	}
	rec, err := s.get(ctx, instanceID, id)
	if err != nil {
		return err
	}
	if !s.policy(schema).CanManage(actor, rec.Access()) {
		return ErrAccessDenied
	}
	if err := s.records.Delete(ctx, instanceID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting record: %w", err)
	}
	for _, ref := range blobRefs(schema, rec) {
		s.deleteBlob(ctx, ref)
	}
	return nil
}

// SetTags replaces the tags of a record.
func (s *Service) SetTags(ctx context.Context, instanceID, id int64, actor access.Actor, tags []string) (*Record, error) {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	rec, err := s.get(ctx, instanceID, id)
	if err != nil {
		return nil, err
	}
	if !s.policy(schema).CanManage(actor, rec.Access()) {
		return nil, ErrAccessDenied
	}
	rec.Tags = normalizeTags(tags)
	if err := s.records.SetTags(ctx, instanceID, id, rec.Tags); err != nil {
		return nil, fmt.Errorf("setting tags: %w", err)
	}
	return rec, nil
}

// AttachRequest defines file attachment inputs.
type AttachRequest struct {
	InstanceID  int64
	RecordID    int64
	FieldID     int64
	Actor       access.Actor
	FileName    string
	Caption     string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachFile stores a blob under a fresh key and points the field's content row at it.
func (s *Service) AttachFile(ctx context.Context, req AttachRequest) (*Record, error) {
	if s.files == nil {
		return nil, ErrNoFileStore
	}
	schema, err := s.schemas.LoadSchema(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	f, ok := schema.FieldByID(req.FieldID)
	if !ok {
		return nil, instance.ErrFieldNotFound
	}
	if !f.Known() || !f.Kind.Capabilities().FileAttachable {
		return nil, ErrNotAttachable
	}
	rec, err := s.get(ctx, req.InstanceID, req.RecordID)
	if err != nil {
		return nil, err
	}
	if !s.policy(schema).CanManage(req.Actor, rec.Access()) {
		return nil, ErrAccessDenied
	}

	key := uuid.NewString()
	v, errs := f.Validate(field.Input{
		field.SubValue:   {req.FileName},
		field.SubCaption: {req.Caption},
		field.SubRef:     {key},
	})
	if len(errs) > 0 {
		return nil, errs
	}
	if v.Blank {
		return nil, field.ValidationErrors{{Field: f.Name, Err: field.ErrRequired}}
	}

	if err := s.files.Put(ctx, key, req.Body, req.Size, req.ContentType); err != nil {
		return nil, fmt.Errorf("storing file: %w", err)
	}

	var previous string
	if old, ok := rec.Slots(f.ID); ok {
		previous = f.Load(old).Ref
	}
	if rec.Contents == nil {
		rec.Contents = map[int64]Content{}
	}
	c := rec.Contents[f.ID]
	c.RecordID, c.FieldID, c.Slots = rec.ID, f.ID, f.Store(v)
	rec.Contents[f.ID] = c
	if schema.Instance.Settings.RequireApproval && !req.Actor.Has(access.CapApprove) {
		rec.Approved = false
	}
	rec.ModifiedAt = s.now()
	if err := s.records.Update(ctx, rec, nil); err != nil {
		s.deleteBlob(ctx, key)
		return nil, fmt.Errorf("updating record: %w", err)
	}
	if previous != "" {
		s.deleteBlob(ctx, previous)
	}
	return rec, nil
}

// AccessInformation reports what actor may do in an instance.
func (s *Service) AccessInformation(ctx context.Context, instanceID int64, actor access.Actor) (*AccessInfo, error) {
	schema, err := s.schemas.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	policy := s.policy(schema)
	info := &AccessInfo{
		CanAddEntry:      policy.CanAdd(actor),
		CanManageEntries: policy.IsManager(actor),
		CanApprove:       policy.CanApprove(actor),
		TimeAvailable:    policy.Available(),
		InReadOnlyPeriod: policy.ReadOnly(),
	}
	if actor.UserID != "" {
		n, err := s.records.CountByUser(ctx, instanceID, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("counting entries: %w", err)
		}
		info.NumEntries = n
	}
	if limit := schema.Instance.MaxEntries; limit > 0 && !policy.IsManager(actor) {
		left := max(limit-info.NumEntries, 0)
		info.EntriesLeftToAdd = &left
		if left == 0 {
			info.CanAddEntry = false
		}
	}
	return info, nil
}

// SaveProfile records the display identity of a user.
func (s *Service) SaveProfile(ctx context.Context, p *Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id required", repository.ErrInvalidInput)
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, instanceID, id int64) (*Record, error) {
	rec, err := s.records.Get(ctx, instanceID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return rec, nil
}

func (s *Service) deleteBlob(ctx context.Context, key string) {
	if s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete blob", "key", key, "error", err)
	}
}
