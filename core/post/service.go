package post

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
)

var (
	ErrNotFound        = core.NewNotFoundError("post not found")
	ErrCommentNotFound = core.NewNotFoundError("comment not found")
	ErrNotAuthor       = core.NewForbiddenError("only the author or an admin can delete this")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		// QueryPosts returns the newest posts first unless orderings say otherwise;
		// Liked and Bookmarked are computed for viewerID.
		QueryPosts(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Post, error)
		GetPost(ctx context.Context, id, viewerID string) (Post, error)
		DeletePosts(ctx context.Context, ids ...string) error
		SetLike(ctx context.Context, postID, userID string, liked bool) error
		SetBookmark(ctx context.Context, postID, userID string, bookmarked bool) error
		CreateComment(ctx context.Context, c Comment) (Comment, error)
		// QueryComments returns the comments of a post, oldest first.
		QueryComments(ctx context.Context, postID string) ([]Comment, error)
		GetComment(ctx context.Context, id string) (Comment, error)
		DeleteComment(ctx context.Context, id string) error
	}

	Notifier interface {
		NotifyUsers(ctx context.Context, userIDs []string, kind, title, body, link string) error
	}

	Service struct {
		repo     Repository
		notifier Notifier
	}
)

// NewService builds the feed service. notifier may be nil.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (svc *Service) Create(ctx context.Context, np NewPost, authorID string) (Post, error) {
	contentHTML, err := RenderMarkdown(np.Content)
	if err != nil {
		return Post{}, err
	}
	now := time.Now().UTC()
	p, err := svc.repo.CreatePost(ctx, Post{
		ID:          core.NewID(),
		ClubID:      np.ClubID,
		AuthorID:    authorID,
		Content:     np.Content,
		ContentHTML: contentHTML,
		Tags:        np.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Post{}, err
	}
	return svc.repo.GetPost(ctx, p.ID, authorID)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Post, error) {
	filter.Clean()
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryPosts(ctx, filter, core.CleanOrderings(orderings, AllowedOrderings...), viewerID)
}

func (svc *Service) Get(ctx context.Context, id, viewerID string) (Post, error) {
	return svc.repo.GetPost(ctx, id, viewerID)
}

// Delete removes a post written by userID, any post when isAdmin.
func (svc *Service) Delete(ctx context.Context, id, userID string, isAdmin bool) error {
	p, err := svc.repo.GetPost(ctx, id, "")
	if err != nil {
		return err
	}
	if !isAdmin && p.AuthorID != userID {
		return ErrNotAuthor
	}
	return svc.repo.DeletePosts(ctx, id)
}

// ToggleLike flips the like of the user and returns the post as they now see it.
func (svc *Service) ToggleLike(ctx context.Context, postID, userID string) (Post, error) {
	p, err := svc.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return Post{}, err
	}
	if err := svc.repo.SetLike(ctx, postID, userID, !p.Liked); err != nil {
		return Post{}, errors.Wrap(err, "setting like")
	}
	return svc.repo.GetPost(ctx, postID, userID)
}

// ToggleBookmark flips the bookmark of the user and returns the post as they now see it.
func (svc *Service) ToggleBookmark(ctx context.Context, postID, userID string) (Post, error) {
	p, err := svc.repo.GetPost(ctx, postID, userID)
	if err != nil {
		return Post{}, err
	}
	if err := svc.repo.SetBookmark(ctx, postID, userID, !p.Bookmarked); err != nil {
		return Post{}, errors.Wrap(err, "setting bookmark")
	}
	return svc.repo.GetPost(ctx, postID, userID)
}

// AddComment comments a post and lets its author know.
func (svc *Service) AddComment(ctx context.Context, postID, userID string, nc NewComment) (Comment, error) {
	p, err := svc.repo.GetPost(ctx, postID, "")
	if err != nil {
		return Comment{}, err
	}
	c, err := svc.repo.CreateComment(ctx, Comment{
		ID:        core.NewID(),
		PostID:    p.ID,
		AuthorID:  userID,
		Body:      nc.Body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Comment{}, err
	}
	if svc.notifier != nil && p.AuthorID != "" && p.AuthorID != userID {
		title := "New comment on your post"
		if c.AuthorName != "" {
			title = fmt.Sprintf("%s commented on your post", c.AuthorName)
		}
		// notification errors do not fail the comment
		_ = svc.notifier.NotifyUsers(ctx, []string{p.AuthorID}, "comment", title, c.Body, "/posts/"+p.ID)
	}
	return c, nil
}

func (svc *Service) Comments(ctx context.Context, postID string) ([]Comment, error) {
	if _, err := svc.repo.GetPost(ctx, postID, ""); err != nil {
		return nil, err
	}
	return svc.repo.QueryComments(ctx, postID)
}

// DeleteComment removes a comment written by userID, any comment when isAdmin.
func (svc *Service) DeleteComment(ctx context.Context, commentID, userID string, isAdmin bool) error {
	c, err := svc.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !isAdmin && c.AuthorID != userID {
		return ErrNotAuthor
	}
	return svc.repo.DeleteComment(ctx, commentID)
}
