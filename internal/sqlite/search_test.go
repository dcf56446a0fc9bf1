package sqlite

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
	"github.com/stretchr/testify/require"
)

type searchEnv struct {
	db        *DB
	instances *instance.Service
	entries   *entry.Service
	search    *query.Service
	records   *RecordRepository
	now       time.Time
}

func newSearchEnv(t *testing.T) *searchEnv {
	t.Helper()
	db := NewTestDB(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	instances := instance.NewService(
		NewInstanceRepository(db),
		NewFieldRepository(db),
		NewTemplateRepository(db),
		field.DefaultRegistry(),
		nil,
	)
	records := NewRecordRepository(db)
	groups := access.MembershipGroups{}
	clock := func() time.Time { return now }
	return &searchEnv{
		db:        db,
		instances: instances,
		entries:   entry.NewService(records, NewProfileRepository(db), instances, nil, groups, nil).WithClock(clock),
		search:    query.NewService(instances, NewSearchRepository(db), groups, nil).WithClock(clock),
		records:   records,
		now:       now,
	}
}

func (e *searchEnv) instance(t *testing.T, settings access.Settings, fields ...instance.FieldRequest) (*instance.Instance, []int64) {
	t.Helper()
	ctx := context.Background()
	inst, err := e.instances.Create(ctx, instance.CreateRequest{Name: "test", Settings: settings})
	require.NoError(t, err)
	var ids []int64
	for _, f := range fields {
		def, err := e.instances.CreateField(ctx, inst.ID, f)
		require.NoError(t, err)
		ids = append(ids, def.ID)
	}
	return inst, ids
}

// insert writes a record directly so tests control ownership, group and timestamps.
func (e *searchEnv) insert(t *testing.T, rec *entry.Record) *entry.Record {
	t.Helper()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = e.now
		rec.ModifiedAt = e.now
	}
	require.NoError(t, e.records.Create(context.Background(), rec))
	return rec
}

func recordIDs(records []entry.Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

var (
	manager  = access.Actor{UserID: "manager", Capabilities: []access.Capability{access.CapManageEntries}}
	approver = access.Actor{UserID: "approver", Capabilities: []access.Capability{access.CapApprove}}
)

func TestSearch_UnapprovedHiddenFromOthers(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, _ := env.instance(t, access.Settings{RequireApproval: true},
		instance.FieldRequest{Name: "title", Type: field.TextTypeName})

	author := access.Actor{UserID: "a", Capabilities: []access.Capability{access.CapWriteEntry}}
	other := access.Actor{UserID: "b", Capabilities: []access.Capability{access.CapWriteEntry}}

	schema, err := env.instances.LoadSchema(ctx, inst.ID)
	require.NoError(t, err)
	rec, err := env.entries.Submit(ctx, entry.SubmitRequest{
		InstanceID: inst.ID,
		Actor:      author,
		Values:     entry.Submission{schema.Fields[0].ID: field.Input{field.SubValue: {"Demo"}}},
	})
	require.NoError(t, err)
	require.False(t, rec.Approved)

	for _, tc := range []struct {
		name  string
		actor access.Actor
		want  []int64
	}{
		{"other user", other, []int64{}},
		{"owner", author, []int64{rec.ID}},
		{"approver", approver, []int64{rec.ID}},
		{"manager", manager, []int64{rec.ID}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: tc.actor})
			require.NoError(t, err)
			require.Equal(t, tc.want, recordIDs(res.Records))
			require.Equal(t, len(tc.want), res.TotalCount)
		})
	}
}

func TestSearch_SeparateGroups(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, _ := env.instance(t, access.Settings{GroupMode: access.SeparateGroups})

	inGroup := env.insert(t, &entry.Record{InstanceID: inst.ID, GroupID: 5, UserID: "a", Approved: true})
	shared := env.insert(t, &entry.Record{InstanceID: inst.ID, GroupID: 0, UserID: "a", Approved: true})

	outsider := access.Actor{UserID: "b", Groups: []int64{3}}
	res, err := env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: outsider})
	require.NoError(t, err)
	require.Equal(t, []int64{shared.ID}, recordIDs(res.Records))

	_, err = env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: outsider, GroupID: 5})
	require.ErrorIs(t, err, entry.ErrAccessDenied)

	member := outsider
	member.Groups = []int64{3, 5}
	res, err = env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: member})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{inGroup.ID, shared.ID}, recordIDs(res.Records))

	allGroups := access.Actor{UserID: "c", Capabilities: []access.Capability{access.CapAccessAllGroups}}
	res, err = env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: allGroups, GroupID: 5})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{inGroup.ID, shared.ID}, recordIDs(res.Records))
}

func TestSearch_SortTimeAddedDescending(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, _ := env.instance(t, access.Settings{})

	var ids []int64
	for i := range 3 {
		at := env.now.Add(time.Duration(i) * time.Hour)
		rec := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Approved: true, CreatedAt: at, ModifiedAt: at})
		ids = append(ids, rec.ID)
	}

	key := query.SortTimeAdded
	res, err := env.search.Search(ctx, query.Request{
		InstanceID: inst.ID,
		Actor:      manager,
		SortKey:    &key,
		Direction:  instance.Descending,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{ids[2], ids[1], ids[0]}, recordIDs(res.Records))
}

func TestSearch_SortByFieldMissingLast(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, fields := env.instance(t, access.Settings{},
		instance.FieldRequest{Name: "count", Type: field.NumberTypeName},
		instance.FieldRequest{Name: "name", Type: field.TextTypeName})
	count, name := fields[0], fields[1]

	ten := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{count: textContent(count, "10")}})
	missing := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{name: textContent(name, "x")}})
	nine := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{count: textContent(count, "9")}})

	for _, tc := range []struct {
		dir  instance.SortDirection
		want []int64
	}{
		{instance.Ascending, []int64{nine.ID, ten.ID, missing.ID}},
		{instance.Descending, []int64{ten.ID, nine.ID, missing.ID}},
	} {
		res, err := env.search.Search(ctx, query.Request{InstanceID: inst.ID, Actor: manager, SortKey: &count, Direction: tc.dir})
		require.NoError(t, err)
		require.Equal(t, tc.want, recordIDs(res.Records), "direction %s", tc.dir)
	}
}

func TestSearch_PaginationConcatenates(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, fields := env.instance(t, access.Settings{},
		instance.FieldRequest{Name: "title", Type: field.TextTypeName})
	title := fields[0]

	for i := range 23 {
		// Repeated timestamps exercise the id tiebreak.
		at := env.now.Add(time.Duration(i%4) * time.Minute)
		env.insert(t, &entry.Record{
			InstanceID: inst.ID,
			UserID:     "a",
			Approved:   true,
			CreatedAt:  at,
			ModifiedAt: at,
			Contents:   map[int64]entry.Content{title: textContent(title, fmt.Sprintf("item %d", i%5))},
		})
	}

	for _, key := range []int64{query.SortTimeAdded, title} {
		for _, dir := range []instance.SortDirection{instance.Ascending, instance.Descending} {
			req := query.Request{InstanceID: inst.ID, Actor: manager, SortKey: &key, Direction: dir}
			all, err := env.search.Search(ctx, req)
			require.NoError(t, err)
			require.Len(t, all.Records, 23)

			var paged []int64
			for page := 0; ; page++ {
				req.Page, req.PageSize = page, 5
				res, err := env.search.Search(ctx, req)
				require.NoError(t, err)
				require.Equal(t, 23, res.TotalCount)
				if len(res.Records) == 0 {
					break
				}
				paged = append(paged, recordIDs(res.Records)...)
			}
			require.Equal(t, recordIDs(all.Records), paged, "key %d %s", key, dir)
		}
	}
}

func TestSearch_FreeTextAndCriteria(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, fields := env.instance(t, access.Settings{},
		instance.FieldRequest{Name: "title", Type: field.TextTypeName},
		instance.FieldRequest{Name: "count", Type: field.NumberTypeName})
	title, count := fields[0], fields[1]

	require.NoError(t, env.entries.SaveProfile(ctx, &entry.Profile{UserID: "ada", FirstName: "Ada", LastName: "Lovelace"}))

	pie := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "bob", Contents: map[int64]entry.Content{
		title: textContent(title, "Apple pie"), count: textContent(count, "3"),
	}})
	tart := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "bob", Contents: map[int64]entry.Content{
		title: textContent(title, "100% tart"), count: textContent(count, "12"),
	}})
	byAda := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "ada", Contents: map[int64]entry.Content{
		title: textContent(title, "plain"),
	}})

	for _, tc := range []struct {
		name string
		req  query.Request
		want []int64
	}{
		{"case insensitive", query.Request{Search: "APPLE"}, []int64{pie.ID}},
		{"owner name", query.Request{Search: "lovelace"}, []int64{byAda.ID}},
		{"like wildcard is literal", query.Request{Search: "0%"}, []int64{tart.ID}},
		{"underscore is literal", query.Request{Search: "_"}, []int64{}},
		{"numeric range", query.Request{Criteria: []query.Criterion{{FieldKey: fmt.Sprint(count), Value: "5..20"}}}, []int64{tart.ID}},
		{"owner criterion", query.Request{Criteria: []query.Criterion{{FieldKey: query.KeyFirstName, Value: "ad"}}}, []int64{byAda.ID}},
		{"criteria override text", query.Request{
			Search:   "apple",
			Criteria: []query.Criterion{{FieldKey: fmt.Sprint(title), Value: "plain"}},
		}, []int64{byAda.ID}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			req.InstanceID = inst.ID
			req.Actor = manager
			res, err := env.search.Search(ctx, req)
			require.NoError(t, err)
			require.ElementsMatch(t, tc.want, recordIDs(res.Records))
			require.NotNil(t, res.MaxCount)
			require.Equal(t, 3, *res.MaxCount)
		})
	}
}

func TestSearch_CheckboxMembershipIsCaseSensitive(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	inst, fields := env.instance(t, access.Settings{},
		instance.FieldRequest{Name: "colours", Type: field.CheckboxTypeName, Params: [10]string{"red\nblue\nRed"}})
	colours := fields[0]

	pair := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{colours: textContent(colours, "red##blue")}})
	lower := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{colours: textContent(colours, "red")}})
	upper := env.insert(t, &entry.Record{InstanceID: inst.ID, UserID: "a", Contents: map[int64]entry.Content{colours: textContent(colours, "blue##Red")}})

	for value, want := range map[string][]int64{
		"red":  {pair.ID, lower.ID},
		"Red":  {upper.ID},
		"blue": {pair.ID, upper.ID},
		"re":   {},
	} {
		res, err := env.search.Search(ctx, query.Request{
			InstanceID: inst.ID,
			Actor:      manager,
			Criteria:   []query.Criterion{{FieldKey: fmt.Sprint(colours), Value: value}},
		})
		require.NoError(t, err)
		require.ElementsMatch(t, want, recordIDs(res.Records), value)
	}
}

// TestSearch_AgreesWithPolicy checks the SQL compiler against the in-memory plan
// evaluation and the single-record policy over randomized data.
func TestSearch_AgreesWithPolicy(t *testing.T) {
	env := newSearchEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))
	words := []string{"red", "green", "blue", "Red fox", "blue_jay", "50%", "9", "12.5"}
	users := []string{"u1", "u2", "u3", "u4"}

	inst, fields := env.instance(t, access.Settings{},
		instance.FieldRequest{Name: "title", Type: field.TextTypeName},
		instance.FieldRequest{Name: "count", Type: field.NumberTypeName},
		instance.FieldRequest{Name: "notes", Type: field.TextareaTypeName})
	for _, u := range users {
		require.NoError(t, env.entries.SaveProfile(ctx, &entry.Profile{UserID: u, FirstName: "First" + u, LastName: "Last" + u}))
	}
	for range 60 {
		contents := map[int64]entry.Content{}
		for _, id := range fields {
			if rng.IntN(4) > 0 {
				contents[id] = textContent(id, words[rng.IntN(len(words))])
			}
		}
		at := env.now.Add(-time.Duration(rng.IntN(100)) * time.Minute)
		env.insert(t, &entry.Record{
			InstanceID: inst.ID,
			GroupID:    int64(rng.IntN(4)),
			UserID:     users[rng.IntN(len(users))],
			Approved:   rng.IntN(2) == 0,
			CreatedAt:  at,
			ModifiedAt: at,
			Contents:   contents,
		})
	}

	everything, err := NewSearchRepository(env.db).Search(ctx, query.Plan{InstanceID: inst.ID, Access: access.Filter{Unrestricted: true}})
	require.NoError(t, err)
	require.Len(t, everything, 60)

	capabilities := []access.Capability{access.CapApprove, access.CapAccessAllGroups, access.CapManageEntries}
	for i := range 200 {
		settings := access.Settings{
			RequireApproval: rng.IntN(2) == 0,
			GroupMode:       access.GroupMode(rng.IntN(3)),
		}
		if rng.IntN(6) == 0 {
			settings.AvailableTo = env.now.Add(-time.Hour)
		}
		_, err := env.instances.Update(ctx, inst.ID, instance.CreateRequest{Name: "test", Settings: settings})
		require.NoError(t, err)

		actor := access.Actor{UserID: users[rng.IntN(len(users))]}
		for _, c := range capabilities {
			if rng.IntN(4) == 0 {
				actor.Capabilities = append(actor.Capabilities, c)
			}
		}
		for g := range int64(4) {
			if rng.IntN(2) == 0 {
				actor.Groups = append(actor.Groups, g)
			}
		}

		req := query.Request{InstanceID: inst.ID, Actor: actor}
		switch rng.IntN(3) {
		case 1:
			req.Search = strings.ToLower(words[rng.IntN(len(words))])
		case 2:
			req.Criteria = []query.Criterion{{FieldKey: fmt.Sprint(fields[1]), Value: "..10"}}
		}

		schema, err := env.instances.LoadSchema(ctx, inst.ID)
		require.NoError(t, err)
		policy := access.NewPolicy(settings, env.now, access.MembershipGroups{})

		res, err := env.search.Search(ctx, req)
		if !policy.Available() && !policy.IsManager(actor) {
			require.ErrorIs(t, err, entry.ErrAccessDenied, "case %d", i)
			continue
		}
		require.NoError(t, err, "case %d", i)

		plan, err := query.Build(schema, policy, req)
		require.NoError(t, err)
		var want []int64
		for _, rec := range everything {
			if plan.Matches(&rec) {
				want = append(want, rec.ID)
				require.True(t, policy.CanView(actor, rec.Access()), "case %d record %d", i, rec.ID)
			} else if plan.Where == nil {
				require.False(t, policy.CanView(actor, rec.Access()), "case %d record %d", i, rec.ID)
			}
		}
		got := recordIDs(res.Records)
		slices.Sort(got)
		slices.Sort(want)
		if want == nil {
			want = []int64{}
		}
		require.Equal(t, want, got, "case %d: %+v %+v", i, settings, req)
		require.Equal(t, len(want), res.TotalCount)
	}
}
