package post

import (
	"bytes"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/tags"
)

// raw HTML in posts is escaped (goldmark's default, html.WithUnsafe is not set)
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderMarkdown converts the Markdown source of a post or comment to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}

type Post struct {
	ID          string     `json:"id"`
	ClubID      string     `json:"club_id"`
	ClubName    string     `json:"club_name"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"content_html"`
	Tags        tags.List  `json:"tags"`
	Likes       core.Count `json:"likes"`
	Comments    core.Count `json:"comments"`
	Liked       bool       `json:"liked"`
	Bookmarked  bool       `json:"bookmarked"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p Post) Key() string { return p.ID }

// FlipLike returns p as seen after the viewer toggled their like.
func FlipLike(p Post) Post {
	if p.Liked {
		p.Likes = p.Likes.Dec()
	} else {
		p.Likes = p.Likes.Inc()
	}
	p.Liked = !p.Liked
	return p
}

// FlipBookmark returns p as seen after the viewer toggled their bookmark.
func FlipBookmark(p Post) Post {
	p.Bookmarked = !p.Bookmarked
	return p
}

type NewPost struct {
	ClubID  string    `json:"club_id" validate:"required"`
	Content string    `json:"content" validate:"notblank,max=10000"`
	Tags    tags.List `json:"tags"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.ClubID = core.CleanString(np.ClubID)
	np.Content = core.CleanString(np.Content)
	np.Tags = tags.Normalize(np.Tags)
	return validate.Struct(np)
}

type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func (c Comment) Key() string { return c.ID }

type NewComment struct {
	Body string `json:"body" validate:"notblank,max=2000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Body = core.CleanString(nc.Body)
	return validate.Struct(nc)
}

type QueryFilter struct {
	ClubID   string
	AuthorID string
	Tag      string
	Search   string
	// BookmarkedOnly keeps the posts the viewer bookmarked.
	BookmarkedOnly bool
}

func (qf *QueryFilter) Clean() {
	qf.ClubID = core.CleanString(qf.ClubID)
	qf.AuthorID = core.CleanString(qf.AuthorID)
	qf.Tag = core.CleanString(qf.Tag)
	qf.Search = core.CleanString(qf.Search)
}

// Match is the client-side form of QueryFilter.
func Match(p Post, qf QueryFilter) bool {
	if qf.ClubID != "" && p.ClubID != qf.ClubID {
		return false
	}
	if qf.AuthorID != "" && p.AuthorID != qf.AuthorID {
		return false
	}
	if qf.Tag != "" && !p.Tags.Contains(qf.Tag) {
		return false
	}
	if qf.Search != "" && !(core.ContainsFold(p.Content, qf.Search) ||
		core.ContainsFold(p.ClubName, qf.Search) ||
		core.ContainsFold(p.AuthorName, qf.Search) ||
		p.Tags.MatchFold(qf.Search)) {
		return false
	}
	return !qf.BookmarkedOnly || p.Bookmarked
}

var AllowedOrderings = []string{"created_at", "likes", "comments"}
