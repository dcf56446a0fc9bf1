package access

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Capability names a permission held by an actor within an instance.
type Capability string

const (
	CapManageEntries    Capability = "manageentries"
	CapApprove          Capability = "approve"
	CapManageApproved   Capability = "manageapproved"
	CapAccessAllGroups  Capability = "accessallgroups"
	CapWriteEntry       Capability = "writeentry"
	CapExportEntry      Capability = "exportentry"
	CapExportAllEntries Capability = "exportallentries"
	// CapManageTemplates allows editing instance settings, fields and templates.
	CapManageTemplates  Capability = "managetemplates"
)

// Actor is the resolved identity of the caller for one request.
type Actor struct {
	UserID       string       `json:"user_id"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	Groups       []int64      `json:"groups,omitempty"`
}

// Has reports whether the actor holds c.
func (a Actor) Has(c Capability) bool {
	return slices.Contains(a.Capabilities, c)
}

// InGroup reports membership of group id.
func (a Actor) InGroup(id int64) bool {
	return slices.Contains(a.Groups, id)
}

// Owns reports whether the actor owns the entry.
func (a Actor) Owns(e Entry) bool {
	return a.UserID != "" && a.UserID == e.OwnerID
}

// GroupMode controls how group membership restricts visibility.
type GroupMode int

const (
	NoGroups GroupMode = iota
	SeparateGroups
	VisibleGroups
)

func (m GroupMode) String() string {
	switch m {
	case SeparateGroups:
		return "separate"
	case VisibleGroups:
		return "visible"
	default:
		return "none"
	}
}

// ParseGroupMode parses "none", "separate" or "visible".
func ParseGroupMode(s string) (GroupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoGroups, nil
	case "separate":
		return SeparateGroups, nil
	case "visible":
		return VisibleGroups, nil
	default:
		return NoGroups, fmt.Errorf("invalid group mode %q", s)
	}
}

// Settings are the instance-level inputs of the policy. Zero times are unbounded.
type Settings struct {
	RequireApproval bool      `json:"require_approval"`
	ManageApproved  bool      `json:"manage_approved"`
	GroupMode       GroupMode `json:"group_mode"`
	AvailableFrom   time.Time `json:"available_from,omitzero"`
	AvailableTo     time.Time `json:"available_to,omitzero"`
	ViewFrom        time.Time `json:"view_from,omitzero"`
	ViewTo          time.Time `json:"view_to,omitzero"`
}

// Available reports whether now falls inside the availability window.
func (s Settings) Available(now time.Time) bool {
	if !s.AvailableFrom.IsZero() && now.Before(s.AvailableFrom) {
		return false
	}
	if !s.AvailableTo.IsZero() && now.After(s.AvailableTo) {
		return false
	}
	return true
}

// ReadOnly reports whether now falls inside the read-only view window.
func (s Settings) ReadOnly(now time.Time) bool {
	if s.ViewFrom.IsZero() && s.ViewTo.IsZero() {
		return false
	}
	if !s.ViewFrom.IsZero() && now.Before(s.ViewFrom) {
		return false
	}
	if !s.ViewTo.IsZero() && now.After(s.ViewTo) {
		return false
	}
	return true
}

// Entry is the record metadata the policy decides on.
type Entry struct {
	OwnerID  string
	GroupID  int64
	Approved bool
}
