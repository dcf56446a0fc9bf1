package access

import (
	"slices"
	"time"
)

// GroupScope is the set of groups an actor may see. Group 0 is always included.
type GroupScope struct {
	All bool
	IDs []int64
}

// Contains reports whether group id is inside the scope.
func (g GroupScope) Contains(id int64) bool {
	return id == 0 || g.All || slices.Contains(g.IDs, id)
}

// GroupVisibility resolves which groups an actor can see under a group mode.
type GroupVisibility interface {
	VisibleGroups(a Actor, mode GroupMode) GroupScope
}

// MembershipGroups derives visibility from the actor's own memberships.
type MembershipGroups struct{}

func (MembershipGroups) VisibleGroups(a Actor, mode GroupMode) GroupScope {
	if mode != SeparateGroups || a.Has(CapAccessAllGroups) {
		return GroupScope{All: true}
	}
	return GroupScope{IDs: slices.Clone(a.Groups)}
}

// Filter is the view rule set for one actor, shared by single-record checks and the
// search compiler.
type Filter struct {
	// Unrestricted skips every other rule.
	Unrestricted bool
	// Closed hides everything.
	Closed bool
	// ApprovedOrOwner hides unapproved entries not owned by Owner.
	ApprovedOrOwner bool
	Owner           string
	Groups          GroupScope
}

// Matches applies the filter to one entry.
func (f Filter) Matches(e Entry) bool {
	if f.Unrestricted {
		return true
	}
	if f.Closed {
		return false
	}
	if f.ApprovedOrOwner && !e.Approved && (f.Owner == "" || e.OwnerID != f.Owner) {
		return false
	}
	return f.Groups.Contains(e.GroupID)
}

// Policy answers visibility and management questions for one request.
type Policy struct {
	settings Settings
	now      time.Time
	groups   GroupVisibility
}

// NewPolicy creates a policy evaluated at now. A nil groups uses MembershipGroups.
func NewPolicy(settings Settings, now time.Time, groups GroupVisibility) *Policy {
	if groups == nil {
		groups = MembershipGroups{}
	}
	return &Policy{settings: settings, now: now, groups: groups}
}

// Settings returns the instance settings the policy was built with.
func (p *Policy) Settings() Settings { return p.settings }

// Now returns the evaluation time.
func (p *Policy) Now() time.Time { return p.now }

// Available reports whether the instance is inside its availability window.
func (p *Policy) Available() bool { return p.settings.Available(p.now) }

// ReadOnly reports whether the instance is inside its read-only period.
func (p *Policy) ReadOnly() bool { return p.settings.ReadOnly(p.now) }

// IsManager reports whether a holds the management capability.
func (p *Policy) IsManager(a Actor) bool { return a.Has(CapManageEntries) }

// ViewFilter builds the view rules for a.
func (p *Policy) ViewFilter(a Actor) Filter {
	if p.IsManager(a) {
		return Filter{Unrestricted: true}
	}
	return Filter{
		Closed:          !p.Available(),
		ApprovedOrOwner: p.settings.RequireApproval && !a.Has(CapApprove),
		Owner:           a.UserID,
		Groups:          p.groups.VisibleGroups(a, p.settings.GroupMode),
	}
}

// CanView reports whether a may see e.
func (p *Policy) CanView(a Actor, e Entry) bool {
	return p.ViewFilter(a).Matches(e)
}

// GroupVisible reports whether a can see records of group id.
func (p *Policy) GroupVisible(a Actor, id int64) bool {
	if p.IsManager(a) {
		return true
	}
	return p.groups.VisibleGroups(a, p.settings.GroupMode).Contains(id)
}

// CanManage reports whether a may edit or delete e.
func (p *Policy) CanManage(a Actor, e Entry) bool {
	if p.IsManager(a) {
		return true
	}
	if p.ReadOnly() || !p.Available() {
		return false
	}
	if !a.Owns(e) {
		return false
	}
	if !p.settings.RequireApproval || !e.Approved {
		return true
	}
	return p.settings.ManageApproved || a.Has(CapManageApproved)
}

// CanAdd reports whether a may submit a new entry.
func (p *Policy) CanAdd(a Actor) bool {
	if p.IsManager(a) {
		return true
	}
	return a.Has(CapWriteEntry) && p.Available() && !p.ReadOnly()
}

// CanApprove reports whether a may approve or disapprove entries.
func (p *Policy) CanApprove(a Actor) bool {
	return p.settings.RequireApproval && a.Has(CapApprove)
}

// CanExport reports whether a may export e.
func (p *Policy) CanExport(a Actor, e Entry) bool {
	if a.Has(CapExportAllEntries) {
		return true
	}
	return a.Has(CapExportEntry) && a.Owns(e)
}

// ApproveOnCreate reports the approval state a new entry by a starts with.
func (p *Policy) ApproveOnCreate(a Actor) bool {
	return !p.settings.RequireApproval || a.Has(CapApprove)
}
