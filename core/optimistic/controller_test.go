package optimistic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/toast"
)

type notification struct {
	ID   string
	Read bool
}

func (n notification) Key() string { return n.ID }

func markRead(n notification) notification { n.Read = true; return n }

// gate is a remote call that blocks until released.
type gate struct {
	calls   int32
	release chan error
}

func newGate() *gate { return &gate{release: make(chan error, 8)} }

func (g *gate) call(ctx context.Context) error {
	atomic.AddInt32(&g.calls, 1)
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) Calls() int { return int(atomic.LoadInt32(&g.calls)) }

func likeIntent(call Remote) Intent[post] {
	return Intent[post]{Op: "like", Delta: Update("1", toggleLike), Call: call}
}

func newPostController(t *testing.T, tray *toast.Tray, opts ...func(*Options[post])) *Controller[post] {
	o := Options[post]{Entity: broadcast.Posts, Notifier: tray}
	for _, fn := range opts {
		fn(&o)
	}
	c := NewController(o)
	c.Replace([]post{{ID: "1", Liked: false, Likes: 3}})
	t.Cleanup(c.Close)
	return c
}

func TestTriggerAppliesBeforeRemoteResolves(t *testing.T) {
	tray := new(toast.Tray)
	c := newPostController(t, tray)
	g := newGate()

	p, err := c.Trigger(context.Background(), likeIntent(g.call))
	require.NoError(t, err)

	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4}}, c.Items())
	assert.Equal(t, Mutated, c.State("1"))

	g.release <- nil
	require.NoError(t, p.Wait())
	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4}}, c.Items())
	assert.Equal(t, Synced, c.State("1"))
	assert.Empty(t, tray.All())
}

func TestTriggerRollsBackOnFailure(t *testing.T) {
	tray := new(toast.Tray)
	var states []State
	var mu sync.Mutex
	c := newPostController(t, tray, func(o *Options[post]) {
		o.Observer = func(id string, st State) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		}
	})

	err := c.Mutate(context.Background(), likeIntent(func(context.Context) error {
		return errors.New("backend unavailable")
	}))
	require.Error(t, err)

	assert.Equal(t, []post{{ID: "1", Liked: false, Likes: 3}}, c.Items())
	toasts := tray.All()
	require.Len(t, toasts, 1)
	assert.Equal(t, toast.Error, toasts[0].Severity)
	assert.Equal(t, "Could not like", toasts[0].Title)
	assert.Equal(t, "backend unavailable", toasts[0].Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Mutated, RolledBack, Synced}, states)
}

func TestTriggerKeepOnFailure(t *testing.T) {
	tray := new(toast.Tray)
	c := newPostController(t, tray, func(o *Options[post]) { o.KeepOnFailure = true })

	err := c.Mutate(context.Background(), likeIntent(func(context.Context) error { return errors.New("nope") }))
	require.Error(t, err)
	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4}}, c.Items())
	assert.Equal(t, 1, tray.Count(toast.Error))
}

func TestTriggerRecoversPanics(t *testing.T) {
	tray := new(toast.Tray)
	c := newPostController(t, tray)

	err := c.Mutate(context.Background(), likeIntent(func(context.Context) error { panic("boom") }))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []post{{ID: "1", Likes: 3}}, c.Items())
	assert.Equal(t, 1, tray.Count(toast.Error))
}

func TestToggleTwiceWithRemoteSuccess(t *testing.T) {
	c := newPostController(t, new(toast.Tray))
	ok := func(context.Context) error { return nil }

	require.NoError(t, c.Mutate(context.Background(), likeIntent(ok)))
	require.NoError(t, c.Mutate(context.Background(), likeIntent(ok)))
	assert.Equal(t, []post{{ID: "1", Likes: 3}}, c.Items())
}

func TestTriggerDedupe(t *testing.T) {
	tray := new(toast.Tray)
	c := NewController(Options[notification]{Entity: broadcast.Notifications, Notifier: tray})
	c.Replace([]notification{{ID: "n1"}, {ID: "n2"}})
	defer c.Close()
	g := newGate()

	read := func(id string) Intent[notification] {
		return Intent[notification]{Op: "mark-read", Delta: Update(id, markRead), Call: g.call}
	}

	p, err := c.Trigger(context.Background(), read("n1"))
	require.NoError(t, err)
	_, err = c.Trigger(context.Background(), read("n1"))
	assert.Equal(t, ErrInFlight, err)
	assert.True(t, c.InFlight("n1", "mark-read"))

	// another record is independent
	p2, err := c.Trigger(context.Background(), read("n2"))
	require.NoError(t, err)

	g.release <- nil
	g.release <- nil
	require.NoError(t, p.Wait())
	require.NoError(t, p2.Wait())
	assert.Equal(t, 2, g.Calls())
	assert.False(t, c.InFlight("n1", "mark-read"))

	// resolved: allowed again
	g.release <- nil
	require.NoError(t, c.Mutate(context.Background(), read("n1")))
	assert.Equal(t, 3, g.Calls())
	assert.Empty(t, tray.All())
}

func TestUnregisterRemovesRecord(t *testing.T) {
	c := NewController(Options[event]{})
	c.Replace([]event{{ID: "7"}, {ID: "8"}})
	g := newGate()

	p, err := c.Trigger(context.Background(), Intent[event]{Op: "unregister", Delta: Remove[event]("7"), Call: g.call})
	require.NoError(t, err)
	assert.Equal(t, []event{{ID: "8"}}, c.Items())

	g.release <- errors.New("still registered")
	require.Error(t, p.Wait())
	assert.Equal(t, []event{{ID: "7"}, {ID: "8"}}, c.Items())
}

func TestAcknowledgedSelfClears(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	advance := func(d time.Duration) { mu.Lock(); now = now.Add(d); mu.Unlock() }

	c := newPostController(t, new(toast.Tray), func(o *Options[post]) { o.Now = clock })
	g := newGate()

	assert.False(t, c.Acknowledged("1"))
	_, err := c.Trigger(context.Background(), likeIntent(g.call))
	require.NoError(t, err)
	assert.True(t, c.Acknowledged("1"))

	advance(399 * time.Millisecond)
	assert.True(t, c.Acknowledged("1"))
	advance(time.Millisecond)
	assert.False(t, c.Acknowledged("1"))

	// the remote call is still pending
	assert.Equal(t, Mutated, c.State("1"))
	g.release <- nil
	c.Wait()
}

func TestReloadOnSuccessRebasesPending(t *testing.T) {
	server := []post{{ID: "1", Likes: 3}, {ID: "2", Likes: 10}}
	var fetches int32
	c := newPostController(t, new(toast.Tray), func(o *Options[post]) {
		o.ReloadOnSuccess = true
		o.Fetch = func(context.Context) ([]post, error) {
			atomic.AddInt32(&fetches, 1)
			return append([]post(nil), server...), nil
		}
	})
	require.NoError(t, c.Load(context.Background()))

	slow := newGate()
	_, err := c.Trigger(context.Background(), Intent[post]{Op: "like", Delta: Update("2", toggleLike), Call: slow.call})
	require.NoError(t, err)

	// server confirms the like on 1 and counts it
	server[0] = post{ID: "1", Liked: true, Likes: 4}
	require.NoError(t, c.Mutate(context.Background(), likeIntent(func(context.Context) error { return nil })))

	// the reload kept the still-pending like on 2
	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4}, {ID: "2", Liked: true, Likes: 11}}, c.Items())
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))

	slow.release <- nil
	c.Wait()
}

func TestSuccessPublishesChange(t *testing.T) {
	hub := broadcast.NewHub(4)
	sub := hub.Subscribe(broadcast.Posts)
	defer sub.Close()

	c := newPostController(t, new(toast.Tray), func(o *Options[post]) {
		o.Hub = hub
		o.Origin = "feed-1"
	})
	require.NoError(t, c.Mutate(context.Background(), likeIntent(func(context.Context) error { return nil })))

	select {
	case ch := <-sub.C:
		assert.Equal(t, broadcast.OpUpdate, ch.Op)
		assert.Equal(t, "1", ch.RecordID)
		assert.Equal(t, "feed-1", ch.Origin)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}

	// failures are not broadcast
	_ = c.Mutate(context.Background(), likeIntent(func(context.Context) error { return errors.New("x") }))
	assert.Len(t, sub.C, 0)
}

func TestCloseIgnoresOutcomes(t *testing.T) {
	tray := new(toast.Tray)
	c := newPostController(t, tray)
	g := newGate()

	p, err := c.Trigger(context.Background(), likeIntent(g.call))
	require.NoError(t, err)
	c.Close()

	g.release <- errors.New("late failure")
	require.Error(t, p.Wait())
	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4}}, c.Items())
	assert.Empty(t, tray.All())

	_, err = c.Trigger(context.Background(), likeIntent(g.call))
	assert.Equal(t, ErrClosed, err)
}

func TestLoadWithoutFetch(t *testing.T) {
	c := NewController(Options[post]{})
	assert.Equal(t, ErrNoFetch, c.Load(context.Background()))
}

func TestFailureRestoresCollection(t *testing.T) {
	items := []post{{ID: "1", Likes: 3}, {ID: "2", Likes: 5}, {ID: "3"}}

	tests := []struct {
		name  string
		delta Delta[post]
	}{
		{name: "update", delta: Update("2", func(p post) post { p.Likes = 42; return p })},
		{name: "update all", delta: Update(AllRecords, func(p post) post { p.Liked = true; return p })},
		{name: "insert new", delta: Insert(post{ID: "4"})},
		{name: "insert existing", delta: Insert(post{ID: "1", Likes: 100})},
		{name: "remove first", delta: Remove[post]("1")},
		{name: "remove middle", delta: Remove[post]("2")},
		{name: "remove last", delta: Remove[post]("3")},
		{name: "remove absent", delta: Remove[post]("9")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(Options[post]{})
			c.Replace(items)
			defer c.Close()

			err := c.Mutate(context.Background(), Intent[post]{Op: "edit", Delta: tt.delta, Call: func(context.Context) error {
				return errors.New("rejected")
			}})
			require.Error(t, err)
			assert.Equal(t, items, c.Items())
		})
	}
}

func TestFailureKeepsOtherOpsOnSameRecord(t *testing.T) {
	tests := []struct {
		name          string
		bookmarkFirst bool // the bookmark resolves before the like fails
	}{
		{name: "bookmark confirmed", bookmarkFirst: true},
		{name: "bookmark pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tray := new(toast.Tray)
			c := newPostController(t, tray)
			like, bookmark := newGate(), newGate()

			pl, err := c.Trigger(context.Background(), likeIntent(like.call))
			require.NoError(t, err)
			pb, err := c.Trigger(context.Background(), Intent[post]{Op: "bookmark", Delta: Update("1", toggleBookmark), Call: bookmark.call})
			require.NoError(t, err)
			assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 4, Bookmarked: true}}, c.Items())

			if tt.bookmarkFirst {
				bookmark.release <- nil
				require.NoError(t, pb.Wait())
			}
			like.release <- errors.New("post is archived")
			require.Error(t, pl.Wait())
			assert.Equal(t, []post{{ID: "1", Likes: 3, Bookmarked: true}}, c.Items())

			if !tt.bookmarkFirst {
				assert.Equal(t, Mutated, c.State("1"))
				bookmark.release <- nil
				require.NoError(t, pb.Wait())
			}
			assert.Equal(t, []post{{ID: "1", Likes: 3, Bookmarked: true}}, c.Items())
			assert.Equal(t, Synced, c.State("1"))
			assert.Equal(t, 1, tray.Count(toast.Error))
		})
	}
}

func TestFailureAfterReloadKeepsReloadedData(t *testing.T) {
	c := newPostController(t, new(toast.Tray))
	g := newGate()

	p, err := c.Trigger(context.Background(), likeIntent(g.call))
	require.NoError(t, err)

	// another client liked and bookmarked meanwhile
	c.Replace([]post{{ID: "1", Likes: 8, Bookmarked: true}, {ID: "2"}})
	assert.Equal(t, []post{{ID: "1", Liked: true, Likes: 9, Bookmarked: true}, {ID: "2"}}, c.Items())

	g.release <- errors.New("rejected")
	require.Error(t, p.Wait())
	assert.Equal(t, []post{{ID: "1", Likes: 8, Bookmarked: true}, {ID: "2"}}, c.Items())
}

func TestAllRecordsTracksEachRecord(t *testing.T) {
	c := NewController(Options[notification]{})
	c.Replace([]notification{{ID: "n1"}, {ID: "n2"}})
	defer c.Close()
	g := newGate()

	p, err := c.Trigger(context.Background(), Intent[notification]{Op: "mark-all-read", Delta: Update(AllRecords, markRead), Call: g.call})
	require.NoError(t, err)
	for _, id := range []string{"n1", "n2"} {
		assert.True(t, c.Acknowledged(id), id)
		assert.Equal(t, Mutated, c.State(id), id)
	}

	g.release <- errors.New("rejected")
	require.Error(t, p.Wait())
	assert.Equal(t, []notification{{ID: "n1"}, {ID: "n2"}}, c.Items())
	assert.Equal(t, Synced, c.State("n1"))
	assert.Equal(t, Synced, c.State("n2"))
}
