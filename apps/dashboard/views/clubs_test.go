package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
	"github.com/nexussync/clubs/core/toast"
	"github.com/nexussync/clubs/core/user"
)

func testClubs() []club.Club {
	return []club.Club{
		{ID: "1", Name: "Robotics Society", Category: "Technical", Status: status.Active, MemberCount: 12},
		{ID: "2", Name: "Coding Circle", Category: "Technical", Description: "Persistent learners", Tags: tags.List{"go"}, Status: status.Active},
		{ID: "3", Name: "Artists Guild", Category: "Cultural", Status: status.Active, Joined: true, MemberCount: 5},
		{ID: "4", Name: "Chess Club", Category: "Sports", Tags: tags.List{"persistence"}, Status: status.Inactive},
	}
}

func TestClubs_Items(t *testing.T) {
	fx := newFixture(t)
	remote := newStub()
	remote.clubs = testClubs()
	v, err := NewClubs(fx.deps, remote)
	require.NoError(t, err)
	mount(t, v)

	tests := []struct {
		name string
		qf   club.QueryFilter
		want []string
	}{
		{"everything", club.QueryFilter{}, []string{"1", "2", "3", "4"}},
		{"category and search", club.QueryFilter{Category: "Technical", Search: "iste"}, []string{"2"}},
		{"search alone", club.QueryFilter{Search: "iste"}, []string{"2", "4"}},
		{"category is case-insensitive", club.QueryFilter{Category: "technical"}, []string{"1", "2"}},
		{"status", club.QueryFilter{Status: status.Inactive}, []string{"4"}},
		{"joined", club.QueryFilter{MemberID: "u1"}, []string{"3"}},
		{"nothing", club.QueryFilter{Category: "Literary"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids := []string{}
			for _, c := range v.Items(tc.qf) {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	assert.Equal(t, []string{"Technical", "Cultural", "Sports"}, v.Categories())
}

func TestClubs_Membership(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	remote := newStub().blocking()
	remote.clubs = testClubs()
	v, err := NewClubs(fx.deps, remote)
	require.NoError(t, err)
	mount(t, v)

	p, err := v.Join(ctx, "1")
	require.NoError(t, err)
	_, err = v.Leave(ctx, "1")
	assert.ErrorIs(t, err, optimistic.ErrInFlight)
	got, _ := v.Get("1")
	assert.True(t, got.Joined)
	assert.Equal(t, core.Count(13), got.MemberCount)
	remote.release <- nil
	require.NoError(t, p.Wait())

	p, err = v.Leave(ctx, "1")
	require.NoError(t, err)
	remote.release <- nil
	require.NoError(t, p.Wait())
	got, _ = v.Get("1")
	assert.False(t, got.Joined)
	assert.Equal(t, core.Count(12), got.MemberCount)

	_, err = v.SetStatus(ctx, "1", status.Inactive)
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	requests := []budget.Request{
		{ID: "b1", ClubID: "c1", Title: "Arduino kits", Category: "equipment", Amount: 30000, Status: status.Pending},
		{ID: "b2", ClubID: "c1", Title: "Snacks", Category: "food", Amount: 5000, Status: status.Approved},
		{ID: "b3", ClubID: "c1", Title: "Bus", Category: "travel", Amount: 9000, Status: status.Cancelled},
	}

	_, err := NewBudgets(newFixture(t).deps, newStub(), "")
	assert.ErrorIs(t, err, ErrAdminOnly)

	fx := newFixture(t, "admin:")
	remote := newStub().blocking()
	remote.requests = requests
	remote.allocated = 100000
	v, err := NewBudgets(fx.deps, remote, "c1")
	require.NoError(t, err)
	mount(t, v)

	assert.Equal(t, budget.Summary{
		ClubID: "c1", Allocated: 100000, Approved: 5000, Pending: 30000, Remaining: 95000, Utilization: 5,
	}, v.Summary())

	p, err := v.Approve(ctx, "b1", "")
	require.NoError(t, err)
	s := v.Summary()
	assert.Equal(t, int64(35000), s.Approved)
	assert.Zero(t, s.Pending)

	remote.release <- errRejected
	assert.Error(t, p.Wait())
	assert.Equal(t, int64(30000), v.Summary().Pending)
	assert.Equal(t, 1, fx.tray.Count(toast.Error))

	got := v.Items(budget.QueryFilter{Statuses: []status.Status{status.Pending, status.Approved}})
	assert.Len(t, got, 2)
	got = v.Items(budget.QueryFilter{Search: "arduino"})
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	conflicts := []conflict.Conflict{
		{ID: "club:1:2", Kind: conflict.KindClub, Severity: conflict.SeverityLow, Start: now, Status: status.Open},
		{ID: "venue:1:3", Kind: conflict.KindVenue, Severity: conflict.SeverityHigh, Start: now.Add(time.Hour), Status: status.Open},
		{ID: "venue:4:5", Kind: conflict.KindVenue, Severity: conflict.SeverityHigh, Start: now, Status: status.Resolved},
	}

	_, err := NewConflicts(newFixture(t).deps, newStub(), now, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAdminOnly)

	fx := newFixture(t, "admin:")
	remote := newStub()
	remote.conflicts = conflicts
	v, err := NewConflicts(fx.deps, remote, now.Add(-time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	mount(t, v)

	ids := func(cs []conflict.Conflict) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{"venue:4:5", "venue:1:3", "club:1:2"}, ids(v.Items(conflict.QueryFilter{})))
	assert.Equal(t, []string{"venue:1:3"}, ids(v.Items(conflict.QueryFilter{Status: status.Open, MinSeverity: conflict.SeverityMedium})))
	assert.Equal(t, 2, v.OpenCount())

	p, err := v.Resolve(ctx, "venue:1:3", "moved to the hall")
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	got, _ := v.Get("venue:1:3")
	assert.Equal(t, status.Resolved, got.Status)
	assert.Equal(t, "u1", got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, 1, v.OpenCount())

	p, err = v.Reopen(ctx, "venue:1:3")
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	got, _ = v.Get("venue:1:3")
	assert.Equal(t, status.Open, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestUsers_Toggle(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, "admin:")
	remote := newStub()
	remote.users = []user.User{
		{ID: "u1", Username: "jdoe", IsActive: true, Roles: []string{"admin:"}},
		{ID: "u2", Username: "asmith", Name: "Ann Smith", IsActive: true, Roles: []string{"student:"}},
	}
	v, err := NewUsers(fx.deps, remote)
	require.NoError(t, err)
	mount(t, v)

	_, err = v.Toggle(ctx, "u1")
	assert.ErrorIs(t, err, ErrOwnAccount)
	_, err = v.Toggle(ctx, "u9")
	assert.ErrorIs(t, err, user.ErrNotFound)

	p, err := v.Toggle(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	got, _ := v.Get("u2")
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, remote.Calls("set active"))

	inactive := false
	assert.Len(t, v.Items(user.QueryFilter{IsActive: &inactive}), 1)
	assert.Len(t, v.Items(user.QueryFilter{Search: "smith", Roles: []string{"student:"}}), 1)
}
