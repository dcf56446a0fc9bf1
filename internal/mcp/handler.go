package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/metrics"
	"github.com/rpggio/recordbase/internal/ratelimit"
	"github.com/rpggio/recordbase/internal/render"
)

type methodFunc func(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error)

type method struct {
	// write methods are rate limited per actor.
	write bool
	fn    methodFunc
}

// Handler dispatches commands to domain services. It backs both the MCP tools
// and the JSON-RPC endpoint.
type Handler struct {
	svcs    Services
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	methods map[string]method
}

// Option configures a Handler.
type Option func(*Handler)

// WithLimiter throttles write methods. A nil limiter disables throttling.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a new handler.
func NewHandler(svcs Services, opts ...Option) *Handler {
	h := &Handler{
		svcs:   svcs,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.methods = map[string]method{
		"search_entries":          {fn: h.searchEntries},
		"render_template":         {fn: h.renderTemplate},
		"validate_entry":          {fn: h.validateEntry},
		"submit_entry":            {write: true, fn: h.submitEntry},
		"get_entry":               {fn: h.getEntry},
		"update_entry":            {write: true, fn: h.updateEntry},
		"approve_entry":           {write: true, fn: h.approveEntry},
		"delete_entry":            {write: true, fn: h.deleteEntry},
		"set_tags":                {write: true, fn: h.setTags},
		"attach_file":             {write: true, fn: h.attachFile},
		"access_information":      {fn: h.accessInformation},
		"field_type_capabilities": {fn: h.fieldTypeCapabilities},
		"save_profile":            {write: true, fn: h.saveProfile},
		"create_instance":         {write: true, fn: h.createInstance},
		"get_instance":            {fn: h.getInstance},
		"list_instances":          {fn: h.listInstances},
		"update_instance":         {write: true, fn: h.updateInstance},
		"create_field":            {write: true, fn: h.createField},
		"update_field":            {write: true, fn: h.updateField},
		"delete_field":            {write: true, fn: h.deleteField},
		"list_fields":             {fn: h.listFields},
		"set_template":            {write: true, fn: h.setTemplate},
		"get_template":            {fn: h.getTemplate},
	}
	return h
}

// Handle dispatches a request to domain services. Errors with a known mapping
// are returned as *APIError.
func (h *Handler) Handle(ctx context.Context, actor access.Actor, name string, params json.RawMessage) (result any, err error) {
	m, ok := h.methods[name]
	if !ok {
		return nil, mapError(fmt.Errorf("%w: %s", ErrUnknownMethod, name))
	}

	start := time.Now()
	defer func() {
		h.metrics.ObserveOperation(name, start, outcome(err))
	}()

	if m.write {
		if err := h.allow(ctx, actor); err != nil {
			return nil, mapError(err)
		}
	}
	result, err = m.fn(ctx, actor, params)
	if err != nil {
		if MapError(err) == nil {
			h.logger.Error("operation failed", "method", name, "user_id", actor.UserID, "error", err)
		}
		return nil, mapError(err)
	}
	return result, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if apiErr := MapError(err); apiErr != nil {
		return strings.ToLower(apiErr.Code)
	}
	return "error"
}

func (h *Handler) allow(ctx context.Context, actor access.Actor) error {
	if h.limiter == nil {
		return nil
	}
	ok, err := h.limiter.Allow(ctx, actor.UserID)
	if err != nil {
		// Limiter backend errors fail open.
		h.logger.Warn("rate limiter unavailable", "limiter", h.limiter.Name(), "error", err)
		return nil
	}
	h.metrics.RateLimitDecision(h.limiter.Name(), ok)
	if !ok {
		return ratelimit.ErrLimited
	}
	return nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func decode[T any](params json.RawMessage) (T, error) {
	var v T
	err := decodeParams(params, &v)
	return v, err
}

func requireTemplateManager(actor access.Actor) error {
	if !actor.Has(access.CapManageTemplates) {
		return entry.ErrAccessDenied
	}
	return nil
}

func (h *Handler) searchEntries(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[SearchEntriesParams](params)
	if err != nil {
		return nil, err
	}
	res, err := h.svcs.Search.Search(ctx, req.request(actor))
	if err != nil {
		return nil, err
	}
	h.metrics.SearchMatches(res.TotalCount)
	return res, nil
}

func (h *Handler) renderTemplate(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[RenderTemplateParams](params)
	if err != nil {
		return nil, err
	}
	name, err := template.ParseName(req.Template)
	if err != nil {
		return nil, err
	}

	var records []entry.Record
	switch {
	case len(req.EntryIDs) > 0:
		for _, id := range req.EntryIDs {
			rec, err := h.svcs.Entries.Get(ctx, req.InstanceID, id, actor)
			if err != nil {
				return nil, err
			}
			records = append(records, *rec)
		}
	case req.Search != nil:
		search := *req.Search
		search.InstanceID = req.InstanceID
		res, err := h.svcs.Search.Search(ctx, search.request(actor))
		if err != nil {
			return nil, err
		}
		records = res.Records
	}

	content, err := h.svcs.Render.RenderTemplate(ctx, render.Request{
		InstanceID: req.InstanceID,
		Actor:      actor,
		Template:   name,
		Records:    records,
	})
	if err != nil {
		return nil, err
	}
	return RenderTemplateResult{Content: content}, nil
}

func (h *Handler) validateEntry(ctx context.Context, _ access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[ValidateEntryParams](params)
	if err != nil {
		return nil, err
	}
	sub, err := req.Values.submission()
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.ValidateSubmission(ctx, req.InstanceID, sub)
}

// submitEntry reports validation failures in the result instead of as an error.
func (h *Handler) submitEntry(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[SubmitEntryParams](params)
	if err != nil {
		return nil, err
	}
	sub, err := req.Values.submission()
	if err != nil {
		return nil, err
	}
	rec, err := h.svcs.Entries.Submit(ctx, entry.SubmitRequest{
		InstanceID: req.InstanceID,
		GroupID:    req.GroupID,
		Actor:      actor,
		Values:     sub,
	})
	var verrs field.ValidationErrors
	if errors.As(err, &verrs) {
		return SubmitResult{Report: entry.NewReport(verrs)}, nil
	}
	if err != nil {
		return nil, err
	}
	report := entry.NewReport(nil)
	report.NewEntryID = rec.ID
	return SubmitResult{Report: report, Entry: rec}, nil
}

func (h *Handler) getEntry(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[EntryRefParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.Get(ctx, req.InstanceID, req.EntryID, actor)
}

func (h *Handler) updateEntry(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[UpdateEntryParams](params)
	if err != nil {
		return nil, err
	}
	sub, err := req.Values.submission()
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.Update(ctx, entry.UpdateRequest{
		InstanceID: req.InstanceID,
		RecordID:   req.EntryID,
		Actor:      actor,
		Values:     sub,
	})
}

func (h *Handler) approveEntry(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[ApproveEntryParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.Approve(ctx, req.InstanceID, req.EntryID, actor, req.Approve)
}

func (h *Handler) deleteEntry(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[EntryRefParams](params)
	if err != nil {
		return nil, err
	}
	if err := h.svcs.Entries.Delete(ctx, req.InstanceID, req.EntryID, actor); err != nil {
		return nil, err
	}
	return DeleteResult{Deleted: true}, nil
}

func (h *Handler) setTags(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[SetTagsParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.SetTags(ctx, req.InstanceID, req.EntryID, actor, req.Tags)
}

func (h *Handler) attachFile(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[AttachFileParams](params)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", errInvalidParams, err)
	}
	return h.svcs.Entries.AttachFile(ctx, entry.AttachRequest{
		InstanceID:  req.InstanceID,
		RecordID:    req.EntryID,
		FieldID:     req.FieldID,
		Actor:       actor,
		FileName:    req.FileName,
		Caption:     req.Caption,
		ContentType: req.ContentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
}

func (h *Handler) accessInformation(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[InstanceRefParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Entries.AccessInformation(ctx, req.InstanceID, actor)
}

func (h *Handler) fieldTypeCapabilities(_ context.Context, _ access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[FieldTypeParams](params)
	if err != nil {
		return nil, err
	}
	return FieldTypeCapabilities{Type: req.Type, Capabilities: h.svcs.Instances.Capabilities(req.Type)}, nil
}

func (h *Handler) saveProfile(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[SaveProfileParams](params)
	if err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, entry.ErrAccessDenied
	}
	p := &entry.Profile{
		UserID:     actor.UserID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		PictureURL: req.PictureURL,
	}
	if err := h.svcs.Entries.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (h *Handler) createInstance(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[InstanceParams](params)
	if err != nil {
		return nil, err
	}
	create, err := req.request()
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.Create(ctx, create)
}

func (h *Handler) getInstance(ctx context.Context, _ access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[InstanceRefParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.Get(ctx, req.InstanceID)
}

func (h *Handler) listInstances(ctx context.Context, _ access.Actor, _ json.RawMessage) (any, error) {
	return h.svcs.Instances.List(ctx)
}

func (h *Handler) updateInstance(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[UpdateInstanceParams](params)
	if err != nil {
		return nil, err
	}
	update, err := req.request()
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.Update(ctx, req.InstanceID, update)
}

func (h *Handler) createField(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[FieldParams](params)
	if err != nil {
		return nil, err
	}
	create, err := req.request()
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.CreateField(ctx, req.InstanceID, create)
}

func (h *Handler) updateField(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[UpdateFieldParams](params)
	if err != nil {
		return nil, err
	}
	update, err := req.request()
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.UpdateField(ctx, req.InstanceID, req.FieldID, update)
}

func (h *Handler) deleteField(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[FieldRefParams](params)
	if err != nil {
		return nil, err
	}
	if err := h.svcs.Instances.DeleteField(ctx, req.InstanceID, req.FieldID); err != nil {
		return nil, err
	}
	return DeleteResult{Deleted: true}, nil
}

func (h *Handler) listFields(ctx context.Context, _ access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[InstanceRefParams](params)
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.ListFields(ctx, req.InstanceID)
}

func (h *Handler) setTemplate(ctx context.Context, actor access.Actor, params json.RawMessage) (any, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}
	req, err := decode[SetTemplateParams](params)
	if err != nil {
		return nil, err
	}
	name, err := template.ParseName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := h.svcs.Instances.SetTemplate(ctx, req.InstanceID, name, req.Body); err != nil {
		return nil, err
	}
	return h.templateBody(ctx, req.InstanceID, name)
}

func (h *Handler) getTemplate(ctx context.Context, _ access.Actor, params json.RawMessage) (any, error) {
	req, err := decode[TemplateRefParams](params)
	if err != nil {
		return nil, err
	}
	name, err := template.ParseName(req.Name)
	if err != nil {
		return nil, err
	}
	return h.templateBody(ctx, req.InstanceID, name)
}

func (h *Handler) templateBody(ctx context.Context, instanceID int64, name template.Name) (any, error) {
	schema, err := h.svcs.Instances.LoadSchema(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return h.svcs.Instances.Template(ctx, schema, name)
}

// Methods lists the dispatchable method names.
func (h *Handler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	return names
}
