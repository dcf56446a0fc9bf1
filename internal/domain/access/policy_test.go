package access_test

import (
	"testing"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func student(id string, groups ...int64) access.Actor {
	return access.Actor{UserID: id, Capabilities: []access.Capability{access.CapWriteEntry}, Groups: groups}
}

func manager(id string) access.Actor {
	return access.Actor{UserID: id, Capabilities: []access.Capability{access.CapManageEntries}}
}

func TestPolicy_ManagerSeesAndManagesEverything(t *testing.T) {
	settings := access.Settings{
		RequireApproval: true,
		GroupMode:       access.SeparateGroups,
		AvailableTo:     now.Add(-time.Hour),
		ViewFrom:        now.Add(-time.Hour),
	}
	p := access.NewPolicy(settings, now, nil)
	e := access.Entry{OwnerID: "other", GroupID: 5, Approved: false}

	require.True(t, p.CanView(manager("m"), e))
	require.True(t, p.CanManage(manager("m"), e))
	require.True(t, p.CanAdd(manager("m")))
}

func TestPolicy_UnapprovedVisibleToOwnerOnly(t *testing.T) {
	p := access.NewPolicy(access.Settings{RequireApproval: true}, now, nil)
	e := access.Entry{OwnerID: "a", Approved: false}

	require.True(t, p.CanView(student("a"), e))
	require.False(t, p.CanView(student("b"), e))

	approver := access.Actor{UserID: "t", Capabilities: []access.Capability{access.CapApprove}}
	require.True(t, p.CanView(approver, e))

	e.Approved = true
	require.True(t, p.CanView(student("b"), e))
}

func TestPolicy_ApprovalIgnoredWhenNotRequired(t *testing.T) {
	p := access.NewPolicy(access.Settings{}, now, nil)
	require.True(t, p.CanView(student("b"), access.Entry{OwnerID: "a", Approved: false}))
	require.True(t, p.ApproveOnCreate(student("a")))

	p = access.NewPolicy(access.Settings{RequireApproval: true}, now, nil)
	require.False(t, p.ApproveOnCreate(student("a")))
}

func TestPolicy_SeparateGroups(t *testing.T) {
	p := access.NewPolicy(access.Settings{GroupMode: access.SeparateGroups}, now, nil)
	e := access.Entry{OwnerID: "a", GroupID: 5, Approved: true}

	require.False(t, p.CanView(student("b", 3), e))
	require.True(t, p.CanView(student("b", 3, 5), e))
	require.True(t, p.CanView(student("b"), access.Entry{OwnerID: "a", GroupID: 0, Approved: true}))

	allGroups := access.Actor{UserID: "b", Capabilities: []access.Capability{access.CapAccessAllGroups}}
	require.True(t, p.CanView(allGroups, e))
	require.True(t, p.GroupVisible(allGroups, 5))
	require.False(t, p.GroupVisible(student("b", 3), 5))
}

func TestPolicy_VisibleGroupsShowsAll(t *testing.T) {
	p := access.NewPolicy(access.Settings{GroupMode: access.VisibleGroups}, now, nil)
	require.True(t, p.CanView(student("b"), access.Entry{OwnerID: "a", GroupID: 9, Approved: true}))
}

func TestPolicy_AvailabilityWindow(t *testing.T) {
	p := access.NewPolicy(access.Settings{AvailableFrom: now.Add(time.Hour)}, now, nil)
	e := access.Entry{OwnerID: "a", Approved: true}

	require.False(t, p.Available())
	require.False(t, p.CanView(student("a"), e))
	require.False(t, p.CanManage(student("a"), e))
	require.False(t, p.CanAdd(student("a")))
	require.True(t, p.ViewFilter(student("a")).Closed)
}

func TestPolicy_ReadOnlyPeriod(t *testing.T) {
	inside := access.Settings{ViewFrom: now.Add(-time.Minute), ViewTo: now.Add(time.Hour)}
	p := access.NewPolicy(inside, now, nil)
	e := access.Entry{OwnerID: "a", Approved: false}

	require.True(t, p.ReadOnly())
	require.True(t, p.CanView(student("a"), e))
	require.False(t, p.CanManage(student("a"), e))
	require.False(t, p.CanAdd(student("a")))
	require.True(t, p.CanManage(manager("m"), e))

	before := access.Settings{ViewFrom: now.Add(100 * time.Second)}
	p = access.NewPolicy(before, now, nil)
	require.False(t, p.ReadOnly())
	require.True(t, p.CanManage(student("a"), e))
}

func TestPolicy_ReadOnlyEdges(t *testing.T) {
	s := access.Settings{ViewFrom: now, ViewTo: now}
	require.True(t, s.ReadOnly(now))
	require.False(t, s.ReadOnly(now.Add(time.Nanosecond)))
	require.False(t, s.ReadOnly(now.Add(-time.Nanosecond)))
}

func TestPolicy_CanManage(t *testing.T) {
	tests := []struct {
		name     string
		settings access.Settings
		actor    access.Actor
		entry    access.Entry
		want     bool
	}{
		{"not owner", access.Settings{}, student("b"), access.Entry{OwnerID: "a"}, false},
		{"owner no approval", access.Settings{}, student("a"), access.Entry{OwnerID: "a", Approved: true}, true},
		{"owner unapproved", access.Settings{RequireApproval: true}, student("a"), access.Entry{OwnerID: "a"}, true},
		{"owner approved without manage approved", access.Settings{RequireApproval: true}, student("a"), access.Entry{OwnerID: "a", Approved: true}, false},
		{"owner approved with manage approved setting", access.Settings{RequireApproval: true, ManageApproved: true}, student("a"), access.Entry{OwnerID: "a", Approved: true}, true},
		{"owner approved with capability", access.Settings{RequireApproval: true}, access.Actor{UserID: "a", Capabilities: []access.Capability{access.CapManageApproved}}, access.Entry{OwnerID: "a", Approved: true}, true},
		{"anonymous never owns", access.Settings{}, access.Actor{}, access.Entry{OwnerID: ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := access.NewPolicy(tt.settings, now, nil)
			require.Equal(t, tt.want, p.CanManage(tt.actor, tt.entry))
		})
	}
}

func TestPolicy_CanApproveAndExport(t *testing.T) {
	approver := access.Actor{UserID: "t", Capabilities: []access.Capability{access.CapApprove, access.CapExportEntry}}

	require.False(t, access.NewPolicy(access.Settings{}, now, nil).CanApprove(approver))
	p := access.NewPolicy(access.Settings{RequireApproval: true}, now, nil)
	require.True(t, p.CanApprove(approver))

	require.True(t, p.CanExport(approver, access.Entry{OwnerID: "t"}))
	require.False(t, p.CanExport(approver, access.Entry{OwnerID: "x"}))
	all := access.Actor{UserID: "u", Capabilities: []access.Capability{access.CapExportAllEntries}}
	require.True(t, p.CanExport(all, access.Entry{OwnerID: "x"}))
}

func TestParseGroupMode(t *testing.T) {
	m, err := access.ParseGroupMode("Separate")
	require.NoError(t, err)
	require.Equal(t, access.SeparateGroups, m)
	require.Equal(t, "separate", m.String())

	_, err = access.ParseGroupMode("sideways")
	require.Error(t, err)
}
