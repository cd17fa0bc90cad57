package optimistic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexussync/clubs/core"
)

type post struct {
	ID         string
	Liked      bool
	Likes      core.Count
	Bookmarked bool
}

func (p post) Key() string { return p.ID }

func toggleLike(p post) post {
	if p.Liked {
		p.Liked = false
		p.Likes = p.Likes.Dec()
	} else {
		p.Liked = true
		p.Likes = p.Likes.Inc()
	}
	return p
}

func toggleBookmark(p post) post { p.Bookmarked = !p.Bookmarked; return p }

type event struct{ ID string }

func (e event) Key() string { return e.ID }

func TestReduceToggleTwiceRestoresCount(t *testing.T) {
	for _, likes := range []core.Count{0, 1, 3, 250} {
		for _, liked := range []bool{false, true} {
			if liked && likes == 0 {
				continue
			}
			items := []post{{ID: "1", Liked: liked, Likes: likes}}
			once := Reduce(items, Update("1", toggleLike))
			twice := Reduce(once, Update("1", toggleLike))
			assert.Equal(t, items, twice)
		}
	}
}

func TestReduceNeverNegative(t *testing.T) {
	items := []post{{ID: "1", Liked: true, Likes: 0}}
	got := Reduce(items, Update("1", toggleLike))
	assert.Equal(t, core.Count(0), got[0].Likes)
	assert.False(t, got[0].Liked)
}

func TestReduceAbsentTarget(t *testing.T) {
	items := []post{{ID: "1", Likes: 3}, {ID: "2", Likes: 1}}
	for _, d := range []Delta[post]{
		Update("9", toggleLike),
		Remove[post]("9"),
	} {
		assert.Equal(t, items, Reduce(items, d))
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	items := []post{{ID: "1", Likes: 3}, {ID: "2"}}
	_ = Reduce(items, Update("1", toggleLike))
	_ = Reduce(items, Remove[post]("2"))
	assert.Equal(t, []post{{ID: "1", Likes: 3}, {ID: "2"}}, items)
}

func TestReduceOnlyTargetChanges(t *testing.T) {
	items := []post{{ID: "1", Likes: 3}, {ID: "2", Likes: 5}, {ID: "3"}}
	got := Reduce(items, Update("2", toggleLike))
	assert.Equal(t, []post{{ID: "1", Likes: 3}, {ID: "2", Liked: true, Likes: 6}, {ID: "3"}}, got)
}

func TestReduceRemoveKeepsOrder(t *testing.T) {
	items := []event{{ID: "7"}, {ID: "8"}}
	assert.Equal(t, []event{{ID: "8"}}, Reduce(items, Remove[event]("7")))

	items = []event{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	assert.Equal(t, []event{{ID: "1"}, {ID: "3"}, {ID: "4"}}, Reduce(items, Remove[event]("2")))
}

func TestReduceInsert(t *testing.T) {
	items := []event{{ID: "1"}}
	assert.Equal(t, []event{{ID: "1"}, {ID: "2"}}, Reduce(items, Insert(event{ID: "2"})))
	assert.Equal(t, []event{{ID: "0"}, {ID: "1"}}, Reduce(items, Prepend(event{ID: "0"})))

	posts := []post{{ID: "1", Likes: 1}}
	assert.Equal(t, []post{{ID: "1", Likes: 9}}, Reduce(posts, Insert(post{ID: "1", Likes: 9})))
}

func TestReduceAllRecords(t *testing.T) {
	items := []post{{ID: "1"}, {ID: "2", Liked: true, Likes: 1}}
	got := Reduce(items, Update(AllRecords, func(p post) post { p.Liked = true; return p }))
	assert.Equal(t, []post{{ID: "1", Liked: true}, {ID: "2", Liked: true, Likes: 1}}, got)
}

func TestTouched(t *testing.T) {
	items := []post{{ID: "1"}, {ID: "2"}}
	assert.Equal(t, []string{"2"}, touched(items, Update("2", toggleLike)))
	assert.Equal(t, []string{"9"}, touched(items, Remove[post]("9")))
	assert.Equal(t, []string{"3"}, touched(items, Insert(post{ID: "3"})))
	assert.Equal(t, []string{"1", "2"}, touched(items, Update(AllRecords, toggleLike)))
}
