package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/post"
)

func (c *Client) Posts(ctx context.Context, qf post.QueryFilter) ([]post.Post, error) {
	p := make(params)
	p.set("club", qf.ClubID)
	p.set("author", qf.AuthorID)
	p.set("tag", qf.Tag)
	p.set("search", qf.Search)
	if qf.BookmarkedOnly {
		p.set("bookmarked", "true")
	}
	var posts []post.Post
	err := c.do(ctx, rest.Get, "/v1/posts", p, nil, &posts)
	return posts, errors.Wrap(err, "querying posts")
}

func (c *Client) Post(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, rest.Get, "/v1/posts/"+id, nil, nil, &p)
	return p, errors.Wrap(err, "getting post")
}

func (c *Client) CreatePost(ctx context.Context, np post.NewPost) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, rest.Post, "/v1/posts", nil, np, &p)
	return p, errors.Wrap(err, "creating post")
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/posts/"+id, nil, nil, nil), "deleting post")
}

// ToggleLike likes the post, or takes the like back, and returns the updated post.
func (c *Client) ToggleLike(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, rest.Post, "/v1/posts/"+id+"/like", nil, nil, &p)
	return p, errors.Wrap(err, "toggling like")
}

func (c *Client) ToggleBookmark(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, rest.Post, "/v1/posts/"+id+"/bookmark", nil, nil, &p)
	return p, errors.Wrap(err, "toggling bookmark")
}

func (c *Client) Comments(ctx context.Context, postID string) ([]post.Comment, error) {
	var comments []post.Comment
	err := c.do(ctx, rest.Get, "/v1/posts/"+postID+"/comments", nil, nil, &comments)
	return comments, errors.Wrap(err, "listing comments")
}

func (c *Client) AddComment(ctx context.Context, postID, body string) (post.Comment, error) {
	var cm post.Comment
	err := c.do(ctx, rest.Post, "/v1/posts/"+postID+"/comments", nil, post.NewComment{Body: body}, &cm)
	return cm, errors.Wrap(err, "adding comment")
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	err := c.do(ctx, rest.Delete, "/v1/posts/"+postID+"/comments/"+commentID, nil, nil, nil)
	return errors.Wrap(err, "deleting comment")
}
