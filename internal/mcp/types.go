package mcp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
)

type InstanceRefParams struct {
	InstanceID int64 `json:"instance_id" jsonschema:"Instance id"`
}

type EntryRefParams struct {
	InstanceID int64 `json:"instance_id" jsonschema:"Instance id"`
	EntryID    int64 `json:"entry_id" jsonschema:"Entry id"`
}

type SearchEntriesParams struct {
	InstanceID int64             `json:"instance_id" jsonschema:"Instance id"`
	GroupID    int64             `json:"group_id,omitempty" jsonschema:"Restrict to one group plus entries without a group; 0 searches every visible group"`
	Search     string            `json:"search,omitempty" jsonschema:"Free text matched against every searchable field and the owner name"`
	Criteria   []query.Criterion `json:"criteria,omitempty" jsonschema:"Advanced criteria; name is a field id, fn or ln. Overrides search"`
	SortKey    *int64            `json:"sort,omitempty" jsonschema:"Field id, or 0 time added, -1 first name, -2 last name, -3 approved, -4 time modified"`
	Direction  string            `json:"order,omitempty" jsonschema:"ASC or DESC"`
	Page       int               `json:"page,omitempty" jsonschema:"Zero based page"`
	PageSize   int               `json:"perpage,omitempty" jsonschema:"Entries per page; 0 returns every match"`
}

func (p SearchEntriesParams) request(actor access.Actor) query.Request {
	return query.Request{
		InstanceID: p.InstanceID,
		Actor:      actor,
		GroupID:    p.GroupID,
		Search:     p.Search,
		Criteria:   p.Criteria,
		SortKey:    p.SortKey,
		Direction:  instance.SortDirection(p.Direction),
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
}

type RenderTemplateParams struct {
	InstanceID int64                `json:"instance_id" jsonschema:"Instance id"`
	Template   string               `json:"template" jsonschema:"list, listheader, listfooter, single, add, asearch, rss or rsstitle"`
	EntryIDs   []int64              `json:"entry_ids,omitempty" jsonschema:"Entries to render; omitted renders the search result"`
	Search     *SearchEntriesParams `json:"search,omitempty" jsonschema:"Search whose matches are rendered when entry_ids is empty"`
}

type RenderTemplateResult struct {
	Content string `json:"content"`
}

// FieldValues maps field ids to subfield values. Keys are decimal field ids.
type FieldValues map[string]field.Input

func (v FieldValues) submission() (entry.Submission, error) {
	sub := make(entry.Submission, len(v))
	for key, in := range v {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: field key %q", errInvalidParams, key)
		}
		sub[id] = in
	}
	return sub, nil
}

type ValidateEntryParams struct {
	InstanceID int64       `json:"instance_id" jsonschema:"Instance id"`
	Values     FieldValues `json:"values" jsonschema:"Raw values keyed by field id, then by subfield (\"\" for the main value)"`
}

type SubmitEntryParams struct {
	InstanceID int64       `json:"instance_id" jsonschema:"Instance id"`
	GroupID    int64       `json:"group_id,omitempty" jsonschema:"Group the entry belongs to"`
	Values     FieldValues `json:"values" jsonschema:"Raw values keyed by field id, then by subfield (\"\" for the main value)"`
}

type UpdateEntryParams struct {
	InstanceID int64       `json:"instance_id" jsonschema:"Instance id"`
	EntryID    int64       `json:"entry_id" jsonschema:"Entry id"`
	Values     FieldValues `json:"values" jsonschema:"Fields to change; blank values clear the field"`
}

type ApproveEntryParams struct {
	InstanceID int64 `json:"instance_id" jsonschema:"Instance id"`
	EntryID    int64 `json:"entry_id" jsonschema:"Entry id"`
	Approve    bool  `json:"approve" jsonschema:"true approves, false withdraws approval"`
}

type SetTagsParams struct {
	InstanceID int64    `json:"instance_id" jsonschema:"Instance id"`
	EntryID    int64    `json:"entry_id" jsonschema:"Entry id"`
	Tags       []string `json:"tags" jsonschema:"Complete tag list; replaces existing tags"`
}

type AttachFileParams struct {
	InstanceID  int64  `json:"instance_id" jsonschema:"Instance id"`
	EntryID     int64  `json:"entry_id" jsonschema:"Entry id"`
	FieldID     int64  `json:"field_id" jsonschema:"File or picture field id"`
	FileName    string `json:"file_name" jsonschema:"File name without path"`
	Caption     string `json:"caption,omitempty" jsonschema:"Alternative text for pictures"`
	ContentType string `json:"content_type,omitempty" jsonschema:"MIME type"`
	Data        string `json:"data" jsonschema:"Base64 encoded file content"`
}

type FieldTypeParams struct {
	Type string `json:"type" jsonschema:"Field type name"`
}

type FieldTypeCapabilities struct {
	Type string `json:"type"`
	field.Capabilities
}

type InstanceParams struct {
	Name            string `json:"name" jsonschema:"Instance name"`
	Intro           string `json:"intro,omitempty" jsonschema:"Introduction text"`
	RequireApproval bool   `json:"require_approval,omitempty" jsonschema:"Entries need approval before others can see them"`
	ManageApproved  bool   `json:"manage_approved,omitempty" jsonschema:"Owners may still edit approved entries"`
	GroupMode       string `json:"group_mode,omitempty" jsonschema:"none, separate or visible"`
	AvailableFrom   string `json:"available_from,omitempty" jsonschema:"RFC 3339 time entries open"`
	AvailableTo     string `json:"available_to,omitempty" jsonschema:"RFC 3339 time entries close"`
	ViewFrom        string `json:"view_from,omitempty" jsonschema:"RFC 3339 start of the read-only period"`
	ViewTo          string `json:"view_to,omitempty" jsonschema:"RFC 3339 end of the read-only period"`
	MaxEntries      int    `json:"max_entries,omitempty" jsonschema:"Per-user entry cap; 0 is unlimited"`
	DefaultSort     int64  `json:"default_sort,omitempty" jsonschema:"Default sort key"`
	DefaultSortDir  string `json:"default_sort_dir,omitempty" jsonschema:"ASC or DESC"`
	Comments        bool   `json:"comments,omitempty" jsonschema:"Enables comment links in templates"`
}

type UpdateInstanceParams struct {
	InstanceID int64 `json:"instance_id" jsonschema:"Instance id"`
	InstanceParams
}

func (p InstanceParams) request() (instance.CreateRequest, error) {
	mode, err := access.ParseGroupMode(p.GroupMode)
	if err != nil {
		return instance.CreateRequest{}, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	settings := access.Settings{
		RequireApproval: p.RequireApproval,
		ManageApproved:  p.ManageApproved,
		GroupMode:       mode,
	}
	windows := []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"available_from", p.AvailableFrom, &settings.AvailableFrom},
		{"available_to", p.AvailableTo, &settings.AvailableTo},
		{"view_from", p.ViewFrom, &settings.ViewFrom},
		{"view_to", p.ViewTo, &settings.ViewTo},
	}
	for _, w := range windows {
		if w.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, w.raw)
		if err != nil {
			return instance.CreateRequest{}, fmt.Errorf("%w: %s: %v", errInvalidParams, w.name, err)
		}
		*w.dst = t.UTC()
	}
	dir := instance.SortDirection(p.DefaultSortDir)
	if dir == "" {
		dir = instance.Ascending
	}
	return instance.CreateRequest{
		Name:           p.Name,
		Intro:          p.Intro,
		Settings:       settings,
		MaxEntries:     p.MaxEntries,
		DefaultSort:    p.DefaultSort,
		DefaultSortDir: dir,
		Comments:       p.Comments,
	}, nil
}

type FieldParams struct {
	InstanceID  int64    `json:"instance_id" jsonschema:"Instance id"`
	Name        string   `json:"name" jsonschema:"Field name, unique in the instance"`
	Type        string   `json:"type" jsonschema:"Field type name"`
	Description string   `json:"description,omitempty" jsonschema:"Field description"`
	Required    bool     `json:"required,omitempty" jsonschema:"Field must be filled in"`
	Params      []string `json:"params,omitempty" jsonschema:"Type parameters param1 to param10"`
}

type UpdateFieldParams struct {
	FieldID int64 `json:"field_id" jsonschema:"Field id"`
	FieldParams
}

type FieldRefParams struct {
	InstanceID int64 `json:"instance_id" jsonschema:"Instance id"`
	FieldID    int64 `json:"field_id" jsonschema:"Field id"`
}

func (p FieldParams) request() (instance.FieldRequest, error) {
	if len(p.Params) > 10 {
		return instance.FieldRequest{}, fmt.Errorf("%w: at most 10 params", errInvalidParams)
	}
	req := instance.FieldRequest{
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		Required:    p.Required,
	}
	copy(req.Params[:], p.Params)
	return req, nil
}

type TemplateRefParams struct {
	InstanceID int64  `json:"instance_id" jsonschema:"Instance id"`
	Name       string `json:"name" jsonschema:"Template name"`
}

type SetTemplateParams struct {
	InstanceID int64  `json:"instance_id" jsonschema:"Instance id"`
	Name       string `json:"name" jsonschema:"Template name"`
	Body       string `json:"body" jsonschema:"Template body; empty restores the generated default"`
}

type SaveProfileParams struct {
	FirstName  string `json:"first_name" jsonschema:"Given name"`
	LastName   string `json:"last_name" jsonschema:"Family name"`
	PictureURL string `json:"picture_url,omitempty" jsonschema:"Avatar URL"`
}

type EmptyParams struct{}

// SubmitResult wraps the submission report with the stored entry.
type SubmitResult struct {
	*entry.Report
	Entry *entry.Record `json:"entry,omitempty"`
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}
