package views

import (
	"context"
	"strings"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/post"
)

type FeedRemote interface {
	Posts(ctx context.Context, qf post.QueryFilter) ([]post.Post, error)
	ToggleLike(ctx context.Context, id string) (post.Post, error)
	ToggleBookmark(ctx context.Context, id string) (post.Post, error)
	AddComment(ctx context.Context, postID, body string) (post.Comment, error)
}

const (
	OpLike     = "like"
	OpBookmark = "bookmark"
	OpComment  = "comment"
)

// Feed is the student feed: the posts of every club, or of one club.
type Feed struct {
	*base[post.Post]
	remote FeedRemote
}

// NewFeed returns the feed of clubID (every club when empty).
func NewFeed(deps Deps, remote FeedRemote, clubID string) (*Feed, error) {
	b, err := newBase(deps, baseOptions[post.Post]{
		name:   "feed",
		entity: broadcast.Posts,
		fetch: func(ctx context.Context) ([]post.Post, error) {
			return remote.Posts(ctx, post.QueryFilter{ClubID: clubID})
		},
		watch: []broadcast.Entity{broadcast.Posts, broadcast.Comments},
	})
	if err != nil {
		return nil, err
	}
	return &Feed{base: b, remote: remote}, nil
}

// Items returns the posts matching qf, in feed order.
func (f *Feed) Items(qf post.QueryFilter) []post.Post {
	qf.Clean()
	return f.filter(func(p post.Post) bool { return post.Match(p, qf) })
}

// Tags lists the tags used by the loaded posts, in order of first use.
func (f *Feed) Tags() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range f.filter(nil) {
		for _, tag := range p.Tags {
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				out = append(out, tag)
			}
		}
	}
	return out
}

func (f *Feed) Like(ctx context.Context, id string) (*optimistic.Pending, error) {
	return f.trigger(ctx, optimistic.Intent[post.Post]{
		Op:           OpLike,
		Delta:        optimistic.Update[post.Post](id, post.FlipLike),
		Call:         func(ctx context.Context) error { _, err := f.remote.ToggleLike(ctx, id); return err },
		FailureTitle: "Could not update the like",
	})
}

func (f *Feed) Bookmark(ctx context.Context, id string) (*optimistic.Pending, error) {
	return f.trigger(ctx, optimistic.Intent[post.Post]{
		Op:           OpBookmark,
		Delta:        optimistic.Update[post.Post](id, post.FlipBookmark),
		Call:         func(ctx context.Context) error { _, err := f.remote.ToggleBookmark(ctx, id); return err },
		FailureTitle: "Could not update the bookmark",
	})
}

// Comment posts a comment; the comment count moves at once.
func (f *Feed) Comment(ctx context.Context, postID, body string) (*optimistic.Pending, error) {
	if body = strings.TrimSpace(body); body == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "body", Error: "this field cannot be blank"})
	}
	return f.trigger(ctx, optimistic.Intent[post.Post]{
		Op: OpComment,
		Delta: optimistic.Update(postID, func(p post.Post) post.Post {
			p.Comments = p.Comments.Inc()
			return p
		}),
		Call:         func(ctx context.Context) error { _, err := f.remote.AddComment(ctx, postID, body); return err },
		Change:       broadcast.OpUpdate,
		FailureTitle: "Could not post the comment",
	})
}
