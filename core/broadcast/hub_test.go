package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4)
	posts := hub.Subscribe(Posts)
	all := hub.Subscribe()
	notifs := hub.Subscribe(Notifications)
	defer posts.Close()
	defer all.Close()
	defer notifs.Close()

	hub.Publish(NewChange(Posts, OpUpdate, "p1"))

	got := <-posts.C
	assert.Equal(t, Posts, got.Entity)
	assert.Equal(t, "p1", got.RecordID)
	assert.Equal(t, got, <-all.C)
	assert.Len(t, notifs.C, 0)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe(Events)
	defer sub.Close()

	hub.Publish(NewChange(Events, OpUpdate, "1"), NewChange(Events, OpUpdate, "2"), NewChange(Events, OpUpdate, "3"))
	assert.Equal(t, 2, sub.Dropped())
	assert.Equal(t, "1", (<-sub.C).RecordID)
}

func TestSubscriptionClose(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())

	sub.Close()
	sub.Close()
	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())

	hub.Publish(NewChange(Users, OpDelete, "x")) // no subscriber, no panic
}

func TestHubClose(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe()
	hub.Close()
	_, open := <-sub.C
	assert.False(t, open)
	sub.Close()

	late := hub.Subscribe()
	_, open = <-late.C
	assert.False(t, open)
	hub.Publish(NewChange(Users, OpCreate, "y"))
}

func TestChangeWithPatch(t *testing.T) {
	type post struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}
	ch, err := NewChange(Posts, OpUpdate, "1").WithOrigin("feed").WithPatch(post{Likes: 3}, post{Liked: true, Likes: 4})
	require.NoError(t, err)
	require.Len(t, ch.Patch, 2)
	assert.Equal(t, "feed", ch.Origin)
	assert.NotEmpty(t, ch.ID)

	data, err := json.Marshal(ch)
	require.NoError(t, err)
	var decoded Change
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ch.ID, decoded.ID)
	assert.Equal(t, Posts, decoded.Entity)
	assert.Len(t, decoded.Patch, 2)
}

func TestParseEntity(t *testing.T) {
	e, ok := ParseEntity("budgets")
	assert.True(t, ok)
	assert.Equal(t, Budgets, e)
	_, ok = ParseEntity("nope")
	assert.False(t, ok)
}
