package field

import (
	"strings"
	"time"
)

// Definition is one typed field of an instance schema.
type Definition struct {
	ID          int64      `json:"id"`
	InstanceID  int64      `json:"instance_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Required    bool       `json:"required"`
	Params      [10]string `json:"params"`
}

// Param returns the 1-based parameter slot, or "" when out of range.
func (d Definition) Param(n int) string {
	if n < 1 || n > len(d.Params) {
		return ""
	}
	return d.Params[n-1]
}

// Options splits param1 into the option list used by choice types.
func (d Definition) Options() []string {
	var opts []string
	for _, line := range strings.Split(d.Param(1), "\n") {
		if opt := strings.TrimSpace(line); opt != "" {
			opts = append(opts, opt)
		}
	}
	return opts
}

// Slot addresses one column of a content row.
type Slot int

const (
	SlotContent Slot = iota
	SlotContent1
	SlotContent2
	SlotContent3
	SlotContent4
)

// Column returns the storage column name of the slot.
func (s Slot) Column() string {
	if s == SlotContent {
		return "content"
	}
	return "content" + string(rune('0'+int(s)))
}

// Slots is the stored shape of one value: content plus four optional auxiliary columns.
type Slots [5]*string

// NewSlots builds slots from the primary content and any auxiliary values in order.
func NewSlots(content string, extra ...string) Slots {
	var s Slots
	s.Set(SlotContent, content)
	for i, v := range extra {
		if i >= 4 {
			break
		}
		s.Set(Slot(i+1), v)
	}
	return s
}

// Get returns the slot value, or "" when the slot is empty.
func (s Slots) Get(slot Slot) string {
	if s[slot] == nil {
		return ""
	}
	return *s[slot]
}

// Has reports whether the slot holds a value.
func (s Slots) Has(slot Slot) bool {
	return s[slot] != nil
}

// Set stores v in the slot.
func (s *Slots) Set(slot Slot, v string) {
	s[slot] = &v
}

// Value is the logical, validated value of a field. Which members are meaningful
// depends on the field type.
type Value struct {
	Blank   bool      `json:"blank,omitempty"`
	Text    string    `json:"text,omitempty"`
	Label   string    `json:"label,omitempty"`
	Ref     string    `json:"ref,omitempty"`
	Options []string  `json:"options,omitempty"`
	Number  float64   `json:"number,omitempty"`
	Time    time.Time `json:"time,omitempty"`
	Lat     float64   `json:"lat,omitempty"`
	Long    float64   `json:"long,omitempty"`
}

// Input is the raw submission for one field keyed by subfield name.
// The empty key holds the primary value.
type Input map[string][]string

// Subfield names understood by the built-in types.
const (
	SubValue   = ""
	SubLabel   = "label"
	SubLat     = "lat"
	SubLong    = "long"
	SubRef     = "ref"
	SubCaption = "caption"
)

// Get returns the first value of key, trimmed.
func (in Input) Get(key string) string {
	vs := in[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}

// Values returns every non-empty value of key, trimmed.
func (in Input) Values(key string) []string {
	var out []string
	for _, v := range in[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SortKind tells the query compiler how to order stored content.
type SortKind int

const (
	SortText SortKind = iota
	SortNumeric
)

// Capabilities describes what a field type supports.
type Capabilities struct {
	Searchable     bool     `json:"searchable"`
	TextExportable bool     `json:"text_exportable"`
	FileAttachable bool     `json:"file_attachable"`
	Sort           SortKind `json:"-"`
	// Layout names what each content slot holds; "" means unused.
	Layout [5]string `json:"layout"`
}
