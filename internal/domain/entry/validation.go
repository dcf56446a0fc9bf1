package entry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
)

// withoutRefs drops blob references from raw input; only AttachFile may set them.
func withoutRefs(in Submission) Submission {
	out := make(Submission, len(in))
	for id, input := range in {
		cp := make(field.Input, len(input))
		for k, v := range input {
			if k != field.SubRef {
				cp[k] = v
			}
		}
		out[id] = cp
	}
	return out
}

// validate checks a submission against every field. With partial set, fields absent
// from the submission are skipped.
func validate(schema *instance.Schema, in Submission, partial bool) (map[int64]field.Value, field.ValidationErrors) {
	var errs field.ValidationErrors

	ids := make([]int64, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, ok := schema.FieldByID(id); !ok {
			errs = append(errs, field.ValidationError{Err: fmt.Errorf("%w: %d", ErrUnknownField, id)})
		}
	}

	values := make(map[int64]field.Value, len(schema.Fields))
	filled := false
	for _, f := range schema.Fields {
		input, present := in[f.ID]
		if partial && !present {
			continue
		}
		if !f.Known() {
			continue
		}
		v, ferrs := f.Validate(input)
		errs = append(errs, ferrs...)
		values[f.ID] = v
		if !v.Blank {
			filled = true
		}
	}
	if !partial && !filled && len(errs) == 0 {
		errs = append(errs, field.ValidationError{Err: ErrEmptySubmission})
	}
	return values, errs
}

func contents(schema *instance.Schema, values map[int64]field.Value) map[int64]Content {
	out := make(map[int64]Content, len(values))
	for id, v := range values {
		if v.Blank {
			continue
		}
		f, ok := schema.FieldByID(id)
		if !ok {
			continue
		}
		out[id] = Content{FieldID: id, Slots: f.Store(v)}
	}
	return out
}

// keepRefs carries stored blob references into updated file values, which never
// carry one themselves. It returns the references of file fields being cleared.
func keepRefs(schema *instance.Schema, rec *Record, values map[int64]field.Value) []string {
	var dropped []string
	for id, v := range values {
		f, ok := schema.FieldByID(id)
		if !ok || !f.Known() || !f.Kind.Capabilities().FileAttachable {
			continue
		}
		old, ok := rec.Slots(id)
		if !ok {
			continue
		}
		ref := f.Load(old).Ref
		if ref == "" {
			continue
		}
		if v.Blank {
			dropped = append(dropped, ref)
			continue
		}
		if v.Ref == "" {
			v.Ref = ref
			values[id] = v
		}
	}
	slices.Sort(dropped)
	return dropped
}

func blobRefs(schema *instance.Schema, rec *Record) []string {
	var refs []string
	for _, f := range schema.Fields {
		if !f.Known() || !f.Kind.Capabilities().FileAttachable {
			continue
		}
		if s, ok := rec.Slots(f.ID); ok {
			if ref := f.Load(s).Ref; ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
