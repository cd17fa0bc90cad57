package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/toast"
)

func TestRegistrations(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("unregister keeps the others in order", func(t *testing.T) {
		fx := newFixture(t)
		remote := newStub()
		remote.registrations = []event.Registration{{EventID: "7"}, {EventID: "8"}}
		regs, err := NewRegistrations(fx.deps, remote)
		require.NoError(t, err)
		mount(t, regs)

		p, err := regs.Unregister(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, []event.Registration{{EventID: "8"}}, regs.Items())
		require.NoError(t, p.Wait())
		assert.Equal(t, []event.Registration{{EventID: "8"}}, regs.Items())
		assert.False(t, regs.IsRegistered("7"))
	})

	t.Run("register reloads once confirmed", func(t *testing.T) {
		fx := newFixture(t)
		remote := newStub().blocking()
		regs, err := NewRegistrations(fx.deps, remote)
		require.NoError(t, err)
		mount(t, regs)

		e := event.Event{ID: "9", Title: "Hack night", StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)}
		p, err := regs.Register(ctx, e, map[string]string{"tshirt": "M"})
		require.NoError(t, err)
		assert.True(t, regs.IsRegistered("9"))
		got, _ := regs.Get("9")
		assert.Equal(t, "u1", got.UserID)
		assert.Len(t, regs.Upcoming(now), 1)

		remote.release <- nil
		require.NoError(t, p.Wait())
		// the fetched collection replaced the optimistic one
		assert.Equal(t, 2, remote.Calls("registrations"))
		assert.False(t, regs.IsRegistered("9"))
		assert.Empty(t, fx.tray.All())
	})

	t.Run("failed register is dropped", func(t *testing.T) {
		fx := newFixture(t)
		remote := newStub()
		remote.fail = errRejected
		regs, err := NewRegistrations(fx.deps, remote)
		require.NoError(t, err)
		mount(t, regs)

		p, err := regs.Register(ctx, event.Event{ID: "9", Title: "Hack night"}, nil)
		require.NoError(t, err)
		assert.Error(t, p.Wait())
		assert.Zero(t, regs.Len())
		assert.Equal(t, 1, fx.tray.Count(toast.Error))
	})
}

func TestEvents_Review(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	events := []event.Event{
		{ID: "1", Status: status.Pending, StartsAt: now.Add(48 * time.Hour)},
		{ID: "2", Status: status.Approved, StartsAt: now.Add(time.Hour)},
		{ID: "3", Status: status.Pending, StartsAt: now.Add(24 * time.Hour)},
	}

	t.Run("students cannot review", func(t *testing.T) {
		fx := newFixture(t)
		remote := newStub()
		remote.events = events
		v, err := NewEvents(fx.deps, remote, event.QueryFilter{})
		require.NoError(t, err)
		mount(t, v)

		_, err = v.Approve(ctx, "1", "")
		assert.ErrorIs(t, err, ErrAdminOnly)
		_, err = v.Cancel(ctx, "1")
		assert.ErrorIs(t, err, ErrManagerOnly)
		assert.Zero(t, remote.Calls("review event"))
	})

	t.Run("admins approve", func(t *testing.T) {
		fx := newFixture(t, "admin:")
		remote := newStub()
		remote.events = events
		v, err := NewEvents(fx.deps, remote, event.QueryFilter{})
		require.NoError(t, err)
		mount(t, v)

		pending := v.Pending()
		require.Len(t, pending, 2)
		assert.Equal(t, "3", pending[0].ID)

		p, err := v.Approve(ctx, "3", "looks good")
		require.NoError(t, err)
		require.NoError(t, p.Wait())
		got, _ := v.Get("3")
		assert.Equal(t, status.Approved, got.Status)
		assert.Equal(t, "looks good", got.ReviewNote)
		assert.Equal(t, "u1", got.ReviewedBy)
		assert.Equal(t, map[status.Status]int{status.Pending: 1, status.Approved: 2}, v.CountByStatus())
	})

	t.Run("rejected review rolls back", func(t *testing.T) {
		fx := newFixture(t, "admin:")
		remote := newStub()
		remote.events = events
		remote.fail = errRejected
		v, err := NewEvents(fx.deps, remote, event.QueryFilter{})
		require.NoError(t, err)
		mount(t, v)

		p, err := v.Reject(ctx, "1", "venue is closed")
		require.NoError(t, err)
		assert.Error(t, p.Wait())
		got, _ := v.Get("1")
		assert.Equal(t, events[0], got)
		assert.Equal(t, 1, fx.tray.Count(toast.Error))
	})
}
