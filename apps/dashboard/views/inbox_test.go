package views

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/toast"
)

func newTestInbox(t *testing.T, remote *stubRemote) (*Inbox, fixture) {
	t.Helper()
	fx := newFixture(t)
	remote.notifications = []notification.Notification{
		{ID: "n1", Kind: "event"},
		{ID: "n2", Kind: "club", Read: true},
		{ID: "n3", Kind: "event"},
	}
	in, err := NewInbox(fx.deps, remote)
	require.NoError(t, err)
	mount(t, in)
	return in, fx
}

func TestInbox_MarkReadTwiceCallsOnce(t *testing.T) {
	remote := newStub().blocking()
	in, _ := newTestInbox(t, remote)
	ctx := context.Background()

	p, err := in.MarkRead(ctx, "n1")
	require.NoError(t, err)
	_, err = in.MarkRead(ctx, "n1")
	assert.ErrorIs(t, err, optimistic.ErrInFlight)
	assert.True(t, in.InFlight("n1", OpMarkRead))
	assert.Equal(t, 1, in.UnreadCount())

	remote.release <- nil
	require.NoError(t, p.Wait())
	assert.Equal(t, 1, remote.Calls("mark read"))
	assert.False(t, in.InFlight("n1", OpMarkRead))
}

func TestInbox_Items(t *testing.T) {
	in, _ := newTestInbox(t, newStub())

	assert.Len(t, in.Items(false, ""), 3)
	assert.Len(t, in.Items(true, ""), 2)
	unreadEvents := in.Items(true, "event")
	require.Len(t, unreadEvents, 2)
	assert.Equal(t, "n1", unreadEvents[0].ID)
	assert.Empty(t, in.Items(true, "club"))
}

func TestInbox_MarkAllRead(t *testing.T) {
	remote := newStub().blocking()
	in, fx := newTestInbox(t, remote)

	p, err := in.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Zero(t, in.UnreadCount())
	for _, id := range []string{"n1", "n2", "n3"} {
		assert.True(t, in.Acknowledged(id), id)
		assert.Equal(t, optimistic.Mutated, in.State(id), id)
	}

	remote.release <- errRejected
	assert.Error(t, p.Wait())
	assert.Equal(t, 2, in.UnreadCount())
	assert.Equal(t, optimistic.Synced, in.State("n1"))
	assert.Equal(t, 1, fx.tray.Count(toast.Error))
}

func TestInbox_MarkReadFailsAfterReload(t *testing.T) {
	remote := newStub().blocking()
	in, _ := newTestInbox(t, remote)
	ctx := context.Background()

	p, err := in.MarkRead(ctx, "n1")
	require.NoError(t, err)

	remote.mu.Lock()
	remote.notifications = append(remote.notifications, notification.Notification{ID: "n4", Kind: "club"})
	remote.mu.Unlock()
	require.NoError(t, in.Reload(ctx))
	assert.Equal(t, 2, in.UnreadCount())

	remote.release <- errRejected
	assert.Error(t, p.Wait())
	assert.Equal(t, 4, in.Len())
	assert.Equal(t, 3, in.UnreadCount())
}

func TestInbox_Delete(t *testing.T) {
	remote := newStub()
	in, _ := newTestInbox(t, remote)

	p, err := in.Delete(context.Background(), "n2")
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	ids := make([]string, 0, in.Len())
	for _, n := range in.Items(false, "") {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n1", "n3"}, ids)
}
